package lightclient

import (
	"context"
	"encoding/json"

	"github.com/NethermindEth/ibc-relayer/relayer/evm"
	"github.com/NethermindEth/ibc-relayer/relayer/tendermint"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
)

const CometblsClientType = "cometbls"

// TrustedHeightReader is implemented by evm.Host.
type TrustedHeightReader interface {
	TrustedHeight(ctx context.Context, clientId types.ClientId) (types.Height, error)
}

// Cometbls is the zero knowledge Tendermint light client hosted by the IBC
// handler contract of an EVM chain.
type Cometbls struct {
	host TrustedHeightReader
}

func NewCometbls(host TrustedHeightReader) *Cometbls {
	return &Cometbls{host: host}
}

func (c *Cometbls) Pair() Pair {
	return Pair{Host: types.BeaconConsensus, Counterparty: types.TendermintConsensus}
}

func (c *Cometbls) ClientType() string {
	return CometblsClientType
}

// SupportsReverseUpdate is false, the contract only moves forward.
func (c *Cometbls) SupportsReverseUpdate() bool {
	return false
}

func (c *Cometbls) TrustedHeight(ctx context.Context, clientId types.ClientId) (types.Height, error) {
	return c.host.TrustedHeight(ctx, clientId)
}

func (c *Cometbls) VerifyHeader(header any) error {
	h, ok := header.(*tendermint.Header)
	if !ok {
		return types.Fatalf(types.ErrFatal, "cometbls client cannot verify a %T header", header)
	}
	if h.SignedHeader == nil || h.SignedHeader.Header == nil || h.SignedHeader.Commit == nil {
		return types.Fatalf(types.ErrFatal, "header has no signed header")
	}
	if h.SignedHeader.Commit.Height != h.SignedHeader.Height {
		return types.Fatalf(types.ErrFatal, "commit at %d signs header at %d",
			h.SignedHeader.Commit.Height, h.SignedHeader.Height)
	}
	if len(h.ZeroKnowledgeProof) == 0 {
		return types.Fatalf(types.ErrFatal, "header at %d has no proof", h.SignedHeader.Height)
	}
	if !h.TrustedHeight.LT(h.NewHeight()) {
		return types.Fatalf(
			types.ErrPeriodRegression,
			"header at %s does not advance trusted height %s",
			h.NewHeight(), h.TrustedHeight,
		)
	}
	return nil
}

func (c *Cometbls) EncodeUpdateMessage(clientId types.ClientId, header any) (types.Datagram, error) {
	if err := c.VerifyHeader(header); err != nil {
		return types.Datagram{}, err
	}
	h := header.(*tendermint.Header)

	encoded, err := json.Marshal(h)
	if err != nil {
		return types.Datagram{}, errors.Wrap(err, "encoding tendermint header")
	}
	calldata, err := evm.UpdateClientCalldata(clientId, encoded)
	if err != nil {
		return types.Datagram{}, err
	}
	return types.Datagram{
		ClientId: clientId,
		Kind:     types.UpdateClientDatagram,
		Value:    calldata,
		Height:   h.NewHeight(),
	}, nil
}

func (c *Cometbls) EncodeRecvPacket(
	packet *types.Packet, proof []byte, proofHeight types.Height,
) (types.Datagram, error) {
	calldata, err := evm.RecvPacketCalldata(evm.PacketFromIBC(packet), proof, proofHeight)
	if err != nil {
		return types.Datagram{}, err
	}
	return types.Datagram{
		Kind:   types.RecvPacketDatagram,
		Value:  calldata,
		Height: proofHeight,
	}, nil
}
