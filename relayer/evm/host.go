package evm

import (
	"context"
	"math/big"
	"strings"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const ibcHandlerABI = `[
	{
		"type": "function",
		"name": "updateClient",
		"stateMutability": "nonpayable",
		"inputs": [
			{"name": "clientId", "type": "string"},
			{"name": "clientMessage", "type": "bytes"}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "recvPacket",
		"stateMutability": "nonpayable",
		"inputs": [
			{
				"name": "packet",
				"type": "tuple",
				"components": [
					{"name": "sequence", "type": "uint64"},
					{"name": "sourcePort", "type": "string"},
					{"name": "sourceChannel", "type": "string"},
					{"name": "destinationPort", "type": "string"},
					{"name": "destinationChannel", "type": "string"},
					{"name": "data", "type": "bytes"},
					{"name": "timeoutRevisionNumber", "type": "uint64"},
					{"name": "timeoutRevisionHeight", "type": "uint64"},
					{"name": "timeoutTimestamp", "type": "uint64"}
				]
			},
			{"name": "proof", "type": "bytes"},
			{"name": "proofRevisionNumber", "type": "uint64"},
			{"name": "proofRevisionHeight", "type": "uint64"}
		],
		"outputs": []
	},
	{
		"type": "function",
		"name": "getLatestHeight",
		"stateMutability": "view",
		"inputs": [{"name": "clientId", "type": "string"}],
		"outputs": [
			{"name": "revisionNumber", "type": "uint64"},
			{"name": "revisionHeight", "type": "uint64"},
			{"name": "found", "type": "bool"}
		]
	},
	{
		"type": "event",
		"name": "SendPacket",
		"anonymous": false,
		"inputs": [
			{"name": "sequence", "type": "uint64", "indexed": false},
			{"name": "sourcePort", "type": "string", "indexed": false},
			{"name": "sourceChannel", "type": "string", "indexed": false},
			{"name": "destinationPort", "type": "string", "indexed": false},
			{"name": "destinationChannel", "type": "string", "indexed": false},
			{"name": "data", "type": "bytes", "indexed": false},
			{"name": "timeoutRevisionNumber", "type": "uint64", "indexed": false},
			{"name": "timeoutRevisionHeight", "type": "uint64", "indexed": false},
			{"name": "timeoutTimestamp", "type": "uint64", "indexed": false}
		]
	}
]`

// HandlerABI is the parsed interface of the IBC handler contract.
var HandlerABI = mustParseABI(ibcHandlerABI)

func mustParseABI(definition string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		panic(err)
	}
	return parsed
}

// Packet mirrors the packet tuple of the IBC handler, fields named after the
// ABI components.
type Packet struct {
	Sequence              uint64
	SourcePort            string
	SourceChannel         string
	DestinationPort       string
	DestinationChannel    string
	Data                  []byte
	TimeoutRevisionNumber uint64
	TimeoutRevisionHeight uint64
	TimeoutTimestamp      uint64
}

func (p *Packet) IBCPacket() *types.Packet {
	return &types.Packet{
		Sequence:           p.Sequence,
		SourcePort:         p.SourcePort,
		SourceChannel:      p.SourceChannel,
		DestinationPort:    p.DestinationPort,
		DestinationChannel: p.DestinationChannel,
		Data:               p.Data,
		TimeoutHeight:      types.NewHeight(p.TimeoutRevisionNumber, p.TimeoutRevisionHeight),
		TimeoutTimestamp:   p.TimeoutTimestamp,
	}
}

func PacketFromIBC(packet *types.Packet) *Packet {
	return &Packet{
		Sequence:              packet.Sequence,
		SourcePort:            packet.SourcePort,
		SourceChannel:         packet.SourceChannel,
		DestinationPort:       packet.DestinationPort,
		DestinationChannel:    packet.DestinationChannel,
		Data:                  packet.Data,
		TimeoutRevisionNumber: packet.TimeoutHeight.RevisionNumber,
		TimeoutRevisionHeight: packet.TimeoutHeight.RevisionHeight,
		TimeoutTimestamp:      packet.TimeoutTimestamp,
	}
}

func UpdateClientCalldata(clientId types.ClientId, clientMessage []byte) ([]byte, error) {
	calldata, err := HandlerABI.Pack("updateClient", clientId.String(), clientMessage)
	if err != nil {
		return nil, errors.Wrap(err, "packing updateClient")
	}
	return calldata, nil
}

func RecvPacketCalldata(packet *Packet, proof []byte, proofHeight types.Height) ([]byte, error) {
	calldata, err := HandlerABI.Pack(
		"recvPacket", *packet, proof, proofHeight.RevisionNumber, proofHeight.RevisionHeight,
	)
	if err != nil {
		return nil, errors.Wrap(err, "packing recvPacket")
	}
	return calldata, nil
}

// DecodeSendPacket reads a SendPacket log payload.
func DecodeSendPacket(data []byte) (*Packet, error) {
	var packet Packet
	if err := HandlerABI.UnpackIntoInterface(&packet, "SendPacket", data); err != nil {
		return nil, types.Fatalf(types.ErrFatal, "decoding SendPacket log: %s", err.Error())
	}
	return &packet, nil
}

// Caller is implemented by ethclient.Client.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Host reads light client state from the IBC handler contract.
type Host struct {
	caller  Caller
	handler common.Address
}

func NewHost(caller Caller, handler common.Address) *Host {
	return &Host{caller: caller, handler: handler}
}

func (h *Host) Handler() common.Address {
	return h.handler
}

// TrustedHeight returns the latest height verified by clientId.
func (h *Host) TrustedHeight(ctx context.Context, clientId types.ClientId) (types.Height, error) {
	calldata, err := HandlerABI.Pack("getLatestHeight", clientId.String())
	if err != nil {
		return types.Height{}, errors.Wrap(err, "packing getLatestHeight")
	}
	output, err := h.caller.CallContract(ctx, ethereum.CallMsg{To: &h.handler, Data: calldata}, nil)
	if err != nil {
		return types.Height{}, types.MarkTransient(errors.Wrapf(err, "calling getLatestHeight(%s)", clientId))
	}
	values, err := HandlerABI.Unpack("getLatestHeight", output)
	if err != nil || len(values) != 3 {
		return types.Height{}, types.Fatalf(types.ErrFatal, "unexpected getLatestHeight output %x", output)
	}
	revisionNumber, okNumber := values[0].(uint64)
	revisionHeight, okHeight := values[1].(uint64)
	found, okFound := values[2].(bool)
	if !okNumber || !okHeight || !okFound {
		return types.Height{}, types.Fatalf(types.ErrFatal, "unexpected getLatestHeight output %x", output)
	}
	if !found {
		return types.Height{}, types.Fatalf(types.ErrUnknownClient, "client %s is unknown to the IBC handler", clientId)
	}
	return types.NewHeight(revisionNumber, revisionHeight), nil
}
