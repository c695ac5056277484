package lightclient

import (
	"context"
	"encoding/json"

	"github.com/NethermindEth/ibc-relayer/relayer/beacon"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/cockroachdb/errors"
	codectypes "github.com/cosmos/cosmos-sdk/codec/types"
	sdk "github.com/cosmos/cosmos-sdk/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
	"google.golang.org/protobuf/encoding/protowire"
)

const (
	EthereumClientType = "ethereum"
	// wasm clients wrap the light client specific message in a ClientMessage
	wasmClientMessageTypeUrl = "/ibc.lightclients.wasm.v1.ClientMessage"
)

// ClientHeights is implemented by tendermint.Querier.
type ClientHeights interface {
	LatestHeight(ctx context.Context, clientId types.ClientId) (types.Height, error)
}

// Ethereum is the beacon light client hosted by a Cosmos chain as a wasm
// client.
type Ethereum struct {
	heights            ClientHeights
	signer             string
	allowReverseUpdate bool
}

func NewEthereum(heights ClientHeights, signer string, allowReverseUpdate bool) *Ethereum {
	return &Ethereum{
		heights:            heights,
		signer:             signer,
		allowReverseUpdate: allowReverseUpdate,
	}
}

func (e *Ethereum) Pair() Pair {
	return Pair{Host: types.TendermintConsensus, Counterparty: types.BeaconConsensus}
}

func (e *Ethereum) ClientType() string {
	return EthereumClientType
}

func (e *Ethereum) SupportsReverseUpdate() bool {
	return e.allowReverseUpdate
}

func (e *Ethereum) TrustedHeight(ctx context.Context, clientId types.ClientId) (types.Height, error) {
	return e.heights.LatestHeight(ctx, clientId)
}

func (e *Ethereum) VerifyHeader(header any) error {
	h, ok := header.(*beacon.Header)
	if !ok {
		return types.Fatalf(types.ErrFatal, "ethereum client cannot verify a %T header", header)
	}
	update := &h.ConsensusUpdate
	if err := update.CheckSlots(); err != nil {
		return errors.Mark(err, types.ErrFatal)
	}
	if update.SyncAggregate.Participants() == 0 {
		return types.Fatalf(types.ErrFatal, "update attested at slot %d has no participants",
			update.AttestedHeader.Beacon.Slot)
	}
	if h.TrustedSyncCommittee.SyncCommittee.Committee() == nil {
		return types.Fatalf(types.ErrFatal, "header has no trusted sync committee")
	}
	if !e.allowReverseUpdate && !h.TrustedSyncCommittee.TrustedHeight.LT(h.NewHeight()) {
		return types.Fatalf(
			types.ErrPeriodRegression,
			"header at %s does not advance trusted height %s",
			h.NewHeight(), h.TrustedSyncCommittee.TrustedHeight,
		)
	}
	return nil
}

func (e *Ethereum) EncodeUpdateMessage(clientId types.ClientId, header any) (types.Datagram, error) {
	if err := e.VerifyHeader(header); err != nil {
		return types.Datagram{}, err
	}
	h := header.(*beacon.Header)

	encoded, err := json.Marshal(h)
	if err != nil {
		return types.Datagram{}, errors.Wrap(err, "encoding beacon header")
	}
	msg := &clienttypes.MsgUpdateClient{
		ClientId: clientId.String(),
		ClientMessage: &codectypes.Any{
			TypeUrl: wasmClientMessageTypeUrl,
			Value:   wasmClientMessage(encoded),
		},
		Signer: e.signer,
	}
	value, err := msg.Marshal()
	if err != nil {
		return types.Datagram{}, errors.Wrap(err, "encoding MsgUpdateClient")
	}
	return types.Datagram{
		ClientId: clientId,
		Kind:     types.UpdateClientDatagram,
		TypeUrl:  sdk.MsgTypeURL(msg),
		Value:    value,
		Height:   h.NewHeight(),
	}, nil
}

func (e *Ethereum) EncodeRecvPacket(
	packet *types.Packet, proof []byte, proofHeight types.Height,
) (types.Datagram, error) {
	msg := channeltypes.NewMsgRecvPacket(
		channeltypes.NewPacket(
			packet.Data,
			packet.Sequence,
			packet.SourcePort,
			packet.SourceChannel,
			packet.DestinationPort,
			packet.DestinationChannel,
			packet.TimeoutHeight,
			packet.TimeoutTimestamp,
		),
		proof,
		proofHeight,
		e.signer,
	)
	value, err := msg.Marshal()
	if err != nil {
		return types.Datagram{}, errors.Wrap(err, "encoding MsgRecvPacket")
	}
	return types.Datagram{
		Kind:    types.RecvPacketDatagram,
		TypeUrl: sdk.MsgTypeURL(msg),
		Value:   value,
		Height:  proofHeight,
	}, nil
}

// wasmClientMessage is the protobuf encoding of ClientMessage{data}.
func wasmClientMessage(data []byte) []byte {
	b := protowire.AppendTag(nil, 1, protowire.BytesType)
	return protowire.AppendBytes(b, data)
}
