package types

import "fmt"

type DatagramKind uint8

const (
	UpdateClientDatagram DatagramKind = iota + 1
	RecvPacketDatagram
	AcknowledgePacketDatagram
)

func (k DatagramKind) String() string {
	switch k {
	case UpdateClientDatagram:
		return "update_client"
	case RecvPacketDatagram:
		return "recv_packet"
	case AcknowledgePacketDatagram:
		return "acknowledge_packet"
	default:
		return fmt.Sprintf("datagram(%d)", uint8(k))
	}
}

// Datagram is a single IBC message ready to be put in a transaction on the
// destination chain. Value is opaque: a protobuf message for Cosmos hosts
// (TypeUrl set) or contract calldata for EVM hosts.
type Datagram struct {
	ChainId  string
	ClientId ClientId
	Kind     DatagramKind
	TypeUrl  string
	Value    []byte
	// Height is the client height after an update, or the proof height of a
	// business message.
	Height Height
}

func (d *Datagram) String() string {
	return fmt.Sprintf("%s(client: %s, chain: %s, height: %s)", d.Kind, d.ClientId, d.ChainId, d.Height)
}

// Op is one step of a plan executed by the sequencer.
type Op interface {
	isOp()
}

// WaitForTimestamp holds the plan until the chain's latest block time
// reaches Timestamp (unix seconds).
type WaitForTimestamp struct {
	ChainId   string
	Timestamp uint64
}

// WaitForHeight holds the plan until the chain reaches Height.
type WaitForHeight struct {
	ChainId string
	Height  Height
}

// Submit sends the datagram and waits for its inclusion.
type Submit struct {
	Datagram Datagram
}

func (WaitForTimestamp) isOp() {}
func (WaitForHeight) isOp()    {}
func (Submit) isOp()           {}

// Plan is an ordered list of operations. Step k+1 never starts before step k
// has completed.
type Plan []Op

// Datagrams returns the datagrams of the plan in submission order.
func (p Plan) Datagrams() []Datagram {
	datagrams := make([]Datagram, 0, len(p))
	for _, op := range p {
		if submit, ok := op.(Submit); ok {
			datagrams = append(datagrams, submit.Datagram)
		}
	}
	return datagrams
}
