package types

import (
	"fmt"

	"github.com/cockroachdb/errors"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
)

// Height is an IBC height: (revision number, revision height), ordered
// lexicographically.
type Height = clienttypes.Height

func NewHeight(revisionNumber, revisionHeight uint64) Height {
	return clienttypes.NewHeight(revisionNumber, revisionHeight)
}

// SameRevision reports whether two heights can be compared by this relayer.
func SameRevision(a, b Height) bool {
	return a.RevisionNumber == b.RevisionNumber
}

type ClientId string

func (c ClientId) String() string {
	return string(c)
}

// ConsensusKind identifies a family of consensus systems a chain can belong to.
type ConsensusKind uint8

const (
	UnknownConsensus ConsensusKind = iota
	BeaconConsensus
	TendermintConsensus
)

func ConsensusKindFromString(s string) (ConsensusKind, error) {
	switch s {
	case "beacon", "ethereum":
		return BeaconConsensus, nil
	case "tendermint", "cometbft":
		return TendermintConsensus, nil
	}
	return UnknownConsensus, errors.Errorf("unknown consensus kind `%s`", s)
}

func (k ConsensusKind) String() string {
	switch k {
	case BeaconConsensus:
		return "beacon"
	case TendermintConsensus:
		return "tendermint"
	default:
		return "unknown"
	}
}

// FetchUpdateHeaders asks for the header messages needed to move a client's
// trusted height from UpdateFrom to at least UpdateTo.
type FetchUpdateHeaders struct {
	ClientType string
	// ChainId is the chain the client tracks, headers are read from it.
	ChainId string
	// CounterpartyChainId hosts the client, the update messages are
	// submitted to it.
	CounterpartyChainId string
	ClientId            ClientId
	UpdateFrom          Height
	UpdateTo            Height
}

func (r *FetchUpdateHeaders) String() string {
	return fmt.Sprintf(
		"{client: %s (%s), chain: %s -> %s, from: %s, to: %s}",
		r.ClientId,
		r.ClientType,
		r.ChainId,
		r.CounterpartyChainId,
		r.UpdateFrom,
		r.UpdateTo,
	)
}

// Packet is a sent IBC packet as observed on its source chain.
type Packet struct {
	Sequence           uint64
	SourcePort         string
	SourceChannel      string
	DestinationPort    string
	DestinationChannel string
	Data               []byte
	TimeoutHeight      Height
	TimeoutTimestamp   uint64
}

// Event is an IBC event observed on a source chain which has to be proven to
// the counterparty. Path is the state the proof is read for.
type Event struct {
	ChainId     string
	ProofHeight Height
	Path        Path
	Packet      *Packet
}

func (e *Event) String() string {
	return fmt.Sprintf("{chain: %s, path: %s, height: %s}", e.ChainId, e.Path, e.ProofHeight)
}
