package evm

import (
	"context"
	"math/big"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/beacon"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
)

const resubscribeDelay = 5 * time.Second

type GenesisReader interface {
	Genesis(ctx context.Context) (*beacon.Genesis, error)
}

// EventSource turns SendPacket logs of the IBC handler into relay events.
// Proof heights are beacon slots, derived from the block timestamps.
type EventSource struct {
	logger  *utils.ZapLogger
	chainId string
	client  Client
	handler common.Address
	genesis GenesisReader
	spec    beacon.Spec
}

func NewEventSource(
	logger *utils.ZapLogger,
	chainId string,
	client Client,
	handler common.Address,
	genesis GenesisReader,
	spec beacon.Spec,
) *EventSource {
	return &EventSource{
		logger:  logger,
		chainId: chainId,
		client:  client,
		handler: handler,
		genesis: genesis,
		spec:    spec,
	}
}

func (s *EventSource) ChainId() string {
	return s.chainId
}

// Subscribe forwards events until ctx is done. A failed subscription is
// re-established after a delay.
func (s *EventSource) Subscribe(ctx context.Context, events chan<- types.Event) error {
	query := ethereum.FilterQuery{
		Addresses: []common.Address{s.handler},
		Topics:    [][]common.Hash{{HandlerABI.Events["SendPacket"].ID}},
	}

	for {
		logs := make(chan ethtypes.Log)
		sub, err := s.client.SubscribeFilterLogs(ctx, query, logs)
		if err != nil {
			s.logger.Errorw("Failed to subscribe to SendPacket logs", "chain", s.chainId, "error", err)
			if err := wait(ctx, resubscribeDelay); err != nil {
				return err
			}
			continue
		}
		s.logger.Infow("Subscribed to SendPacket logs", "chain", s.chainId, "handler", s.handler.Hex())

		err = s.forward(ctx, sub, logs, events)
		sub.Unsubscribe()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.logger.Warnw("Log subscription dropped, resubscribing", "chain", s.chainId, "error", err)
		if err := wait(ctx, resubscribeDelay); err != nil {
			return err
		}
	}
}

func (s *EventSource) forward(
	ctx context.Context,
	sub ethereum.Subscription,
	logs <-chan ethtypes.Log,
	events chan<- types.Event,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case log := <-logs:
			if log.Removed {
				continue
			}
			event, err := s.toEvent(ctx, &log)
			if err != nil {
				s.logger.Errorw("Skipping SendPacket log", "tx", log.TxHash.Hex(), "error", err)
				continue
			}
			select {
			case events <- event:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (s *EventSource) toEvent(ctx context.Context, log *ethtypes.Log) (types.Event, error) {
	packet, err := DecodeSendPacket(log.Data)
	if err != nil {
		return types.Event{}, err
	}
	header, err := s.client.HeaderByNumber(ctx, new(big.Int).SetUint64(log.BlockNumber))
	if err != nil {
		return types.Event{}, errors.Wrapf(err, "fetching header %d", log.BlockNumber)
	}
	genesis, err := s.genesis.Genesis(ctx)
	if err != nil {
		return types.Event{}, err
	}
	slot := s.spec.SlotAt(uint64(genesis.GenesisTime), header.Time)

	s.logger.Debugw(
		"Observed SendPacket",
		"sequence", packet.Sequence,
		"channel", packet.SourceChannel,
		"block", log.BlockNumber,
		"slot", slot,
	)
	return types.Event{
		ChainId:     s.chainId,
		ProofHeight: types.NewHeight(0, slot),
		Path: types.CommitmentPath{
			PortId:    packet.SourcePort,
			ChannelId: packet.SourceChannel,
			Sequence:  packet.Sequence,
		},
		Packet: packet.IBCPacket(),
	}, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	Sleep(d)
	return ctx.Err()
}
