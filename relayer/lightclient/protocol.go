package lightclient

import (
	"context"
	"fmt"
	"sync"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
)

// Protocol is a light client of one counterparty consensus living on one host
// chain. It knows how to read the client's trust and how to phrase messages
// for the host.
type Protocol interface {
	Pair() Pair
	// ClientType is the client type string carried by update requests.
	ClientType() string
	TrustedHeight(ctx context.Context, clientId types.ClientId) (types.Height, error)
	// VerifyHeader runs the checks the host would run and that can be done
	// off chain, so obviously bad headers are never submitted.
	VerifyHeader(header any) error
	EncodeUpdateMessage(clientId types.ClientId, header any) (types.Datagram, error)
	EncodeRecvPacket(packet *types.Packet, proof []byte, proofHeight types.Height) (types.Datagram, error)
	// SupportsReverseUpdate reports whether the client accepts headers below
	// its latest trusted height.
	SupportsReverseUpdate() bool
}

// Pair is the (host, counterparty) consensus tuple a protocol serves.
type Pair struct {
	Host         types.ConsensusKind
	Counterparty types.ConsensusKind
}

func (p Pair) String() string {
	return fmt.Sprintf("%s on %s", p.Counterparty, p.Host)
}

// Registry holds one protocol per pair.
type Registry struct {
	mu        sync.RWMutex
	protocols map[Pair]Protocol
}

func NewRegistry() *Registry {
	return &Registry{protocols: make(map[Pair]Protocol)}
}

func (r *Registry) Register(protocol Protocol) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair := protocol.Pair()
	if _, ok := r.protocols[pair]; ok {
		return errors.Errorf("a light client protocol for %s is already registered", pair)
	}
	r.protocols[pair] = protocol
	return nil
}

func (r *Registry) Lookup(host, counterparty types.ConsensusKind) (Protocol, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pair := Pair{Host: host, Counterparty: counterparty}
	protocol, ok := r.protocols[pair]
	if !ok {
		return nil, types.Fatalf(types.ErrFatal, "no light client protocol for %s", pair)
	}
	return protocol, nil
}
