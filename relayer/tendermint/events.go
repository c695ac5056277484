package tendermint

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	coretypes "github.com/cometbft/cometbft/rpc/core/types"
	clienttypes "github.com/cosmos/ibc-go/v8/modules/core/02-client/types"
	channeltypes "github.com/cosmos/ibc-go/v8/modules/core/04-channel/types"
)

const (
	subscriber       = "ibc-relayer"
	resubscribeDelay = 5 * time.Second
)

var sendPacketQuery = fmt.Sprintf(
	"tm.event='Tx' AND %s.%s EXISTS", channeltypes.EventTypeSendPacket, channeltypes.AttributeKeySequence,
)

// EventSource turns send_packet events of a CometBFT chain into relay
// events.
type EventSource struct {
	logger   *utils.ZapLogger
	chainId  string
	revision uint64
	client   EventsClient
}

func NewEventSource(logger *utils.ZapLogger, chainId string, client EventsClient) *EventSource {
	return &EventSource{
		logger:   logger,
		chainId:  chainId,
		revision: Revision(chainId),
		client:   client,
	}
}

func (s *EventSource) ChainId() string {
	return s.chainId
}

// Subscribe forwards events until ctx is done. A closed subscription is
// re-established after a delay.
func (s *EventSource) Subscribe(ctx context.Context, events chan<- types.Event) error {
	for {
		results, err := s.client.Subscribe(ctx, subscriber, sendPacketQuery)
		if err != nil {
			s.logger.Errorw("Failed to subscribe to send_packet events", "chain", s.chainId, "error", err)
		} else {
			s.logger.Infow("Subscribed to send_packet events", "chain", s.chainId)
			if err := s.forward(ctx, results, events); err != nil {
				return err
			}
			s.logger.Warnw("Event subscription closed, resubscribing", "chain", s.chainId)
			if err := s.client.UnsubscribeAll(context.WithoutCancel(ctx), subscriber); err != nil {
				s.logger.Debugw("Failed to unsubscribe", "chain", s.chainId, "error", err)
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		Sleep(resubscribeDelay)
	}
}

// forward returns nil when results is closed.
func (s *EventSource) forward(
	ctx context.Context, results <-chan coretypes.ResultEvent, events chan<- types.Event,
) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case result, ok := <-results:
			if !ok {
				return nil
			}
			parsed, err := s.parse(result.Events)
			if err != nil {
				s.logger.Errorw("Skipping send_packet event", "chain", s.chainId, "error", err)
				continue
			}
			for _, event := range parsed {
				select {
				case events <- event:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}

// parse reads the send_packet events of one transaction. The commitment is
// written by block h and proven against the app hash of block h+1.
func (s *EventSource) parse(attributes map[string][]string) ([]types.Event, error) {
	heights := attributes["tx.height"]
	if len(heights) == 0 {
		return nil, errors.New("event has no tx.height")
	}
	txHeight, err := strconv.ParseUint(heights[0], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "parsing tx.height")
	}

	key := func(attribute string) []string {
		return attributes[channeltypes.EventTypeSendPacket+"."+attribute]
	}
	sequences := key(channeltypes.AttributeKeySequence)
	srcPorts := key(channeltypes.AttributeKeySrcPort)
	srcChannels := key(channeltypes.AttributeKeySrcChannel)
	dstPorts := key(channeltypes.AttributeKeyDstPort)
	dstChannels := key(channeltypes.AttributeKeyDstChannel)
	data := key(channeltypes.AttributeKeyDataHex)
	timeoutHeights := key(channeltypes.AttributeKeyTimeoutHeight)
	timeoutTimestamps := key(channeltypes.AttributeKeyTimeoutTimestamp)

	for _, values := range [][]string{srcPorts, srcChannels, dstPorts, dstChannels, data, timeoutHeights, timeoutTimestamps} {
		if len(values) != len(sequences) {
			return nil, errors.Errorf("send_packet attributes of tx at %d have mismatched lengths", txHeight)
		}
	}

	events := make([]types.Event, 0, len(sequences))
	for i := range sequences {
		sequence, err := strconv.ParseUint(sequences[i], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing packet sequence `%s`", sequences[i])
		}
		packetData, err := hex.DecodeString(data[i])
		if err != nil {
			return nil, errors.Wrap(err, "decoding packet data")
		}
		timeoutHeight, err := clienttypes.ParseHeight(timeoutHeights[i])
		if err != nil {
			return nil, errors.Wrapf(err, "parsing timeout height `%s`", timeoutHeights[i])
		}
		timeoutTimestamp, err := strconv.ParseUint(timeoutTimestamps[i], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing timeout timestamp `%s`", timeoutTimestamps[i])
		}

		s.logger.Debugw(
			"Observed send_packet",
			"chain", s.chainId,
			"sequence", sequence,
			"channel", srcChannels[i],
			"height", txHeight,
		)
		events = append(events, types.Event{
			ChainId:     s.chainId,
			ProofHeight: types.NewHeight(s.revision, txHeight+1),
			Path: types.CommitmentPath{
				PortId:    srcPorts[i],
				ChannelId: srcChannels[i],
				Sequence:  sequence,
			},
			Packet: &types.Packet{
				Sequence:           sequence,
				SourcePort:         srcPorts[i],
				SourceChannel:      srcChannels[i],
				DestinationPort:    dstPorts[i],
				DestinationChannel: dstChannels[i],
				Data:               packetData,
				TimeoutHeight:      timeoutHeight,
				TimeoutTimestamp:   timeoutTimestamp,
			},
		})
	}
	return events, nil
}
