package relayer

import (
	"context"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/evm"
	"github.com/NethermindEth/ibc-relayer/relayer/lightclient"
	"github.com/NethermindEth/ibc-relayer/relayer/task"
	"github.com/NethermindEth/ibc-relayer/relayer/tendermint"
	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
)

// Created a function variable for mocking purposes in tests
var Sleep = time.Sleep

// UpdateBuilder is the root of the task graph producing the headers which
// move a client forward. Implemented by beacon.Pipeline and
// tendermint.Pipeline.
type UpdateBuilder interface {
	MakeCreateUpdates(req *types.FetchUpdateHeaders) task.Node
}

// StateReader proves a path of the source chain against the consensus state
// a client holds at height. value is empty when the path is absent.
type StateReader interface {
	ReadProof(ctx context.Context, path types.Path, height types.Height) (value []byte, proof []byte, err error)
}

type PlanResolver interface {
	ResolvePlan(ctx context.Context, n task.Node) (types.Plan, error)
}

type PlanExecutor interface {
	Execute(ctx context.Context, plan types.Plan) error
}

type Recorder interface {
	UpdateTrustedHeight(chainId string, clientId types.ClientId, height types.Height)
	RecordUpdatesEmitted(chainId string, clientId types.ClientId, count int)
}

// Route relays the events of one source chain to the client tracking it on
// the destination chain.
type Route struct {
	ClientId           types.ClientId
	SourceChainId      string
	DestinationChainId string
	Protocol           lightclient.Protocol
	Updates            UpdateBuilder
	State              StateReader
}

func (r *Route) String() string {
	return r.SourceChainId + " -> " + r.DestinationChainId + " (" + r.ClientId.String() + ")"
}

// Job turns one observed event into a plan and runs it.
type Job struct {
	logger   *utils.ZapLogger
	route    *Route
	resolver PlanResolver
	executor PlanExecutor
	recorder Recorder
	options  task.Options
}

func NewJob(
	logger *utils.ZapLogger,
	route *Route,
	resolver PlanResolver,
	executor PlanExecutor,
	recorder Recorder,
	options task.Options,
) *Job {
	return &Job{
		logger:   logger,
		route:    route,
		resolver: resolver,
		executor: executor,
		recorder: recorder,
		options:  options,
	}
}

// Plan builds the datagrams proving event to the destination: the client
// updates needed to reach the event height, if any, followed by the
// business message. An empty plan means there is nothing left to relay.
func (j *Job) Plan(ctx context.Context, event *types.Event) (types.Plan, error) {
	route := j.route
	if event.Packet == nil {
		return nil, types.Fatalf(types.ErrFatal, "event %s carries no packet", event.String())
	}

	trusted, err := route.Protocol.TrustedHeight(ctx, route.ClientId)
	if err != nil {
		return nil, errors.Wrapf(err, "trusted height of client %s", route.ClientId)
	}
	j.recorder.UpdateTrustedHeight(route.DestinationChainId, route.ClientId, trusted)

	plan := types.Plan{}
	proofHeight := trusted
	if trusted.LT(event.ProofHeight) {
		req := types.FetchUpdateHeaders{
			ClientType:          route.Protocol.ClientType(),
			ChainId:             route.SourceChainId,
			CounterpartyChainId: route.DestinationChainId,
			ClientId:            route.ClientId,
			UpdateFrom:          trusted,
			UpdateTo:            event.ProofHeight,
		}
		j.logger.Infow("Client is behind, building updates", "request", req.String())

		if plan, err = j.resolver.ResolvePlan(ctx, route.Updates.MakeCreateUpdates(&req)); err != nil {
			return nil, errors.Wrapf(err, "building updates %s", req.String())
		}
		updates := plan.Datagrams()
		for i := range updates {
			if proofHeight.LT(updates[i].Height) {
				proofHeight = updates[i].Height
			}
		}
		if proofHeight.LT(event.ProofHeight) {
			return nil, types.Fatalf(
				types.ErrFatal,
				"updates of client %s stop at %s, below event height %s",
				route.ClientId, proofHeight, event.ProofHeight,
			)
		}
		j.recorder.RecordUpdatesEmitted(route.DestinationChainId, route.ClientId, len(updates))
	}

	value, proof, err := route.State.ReadProof(ctx, event.Path, proofHeight)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s at %s", event.Path, proofHeight)
	}
	if len(value) == 0 {
		j.logger.Infow(
			"Packet commitment is gone, packet already relayed",
			"path", event.Path.String(),
			"height", proofHeight,
		)
		return types.Plan{}, nil
	}

	datagram, err := route.Protocol.EncodeRecvPacket(event.Packet, proof, proofHeight)
	if err != nil {
		return nil, errors.Wrapf(err, "encoding packet %d", event.Packet.Sequence)
	}
	datagram.ChainId = route.DestinationChainId
	datagram.ClientId = route.ClientId

	return append(plan, types.Submit{Datagram: datagram}), nil
}

// Run plans event and executes the plan. Planning is retried on transient
// failures, e.g. a trusted height read that timed out.
func (j *Job) Run(ctx context.Context, event *types.Event) error {
	retries := j.options.Retries
	backoff := types.NewBackoff(j.options.Backoff, j.options.MaxBackoff)

	var plan types.Plan
	for {
		var err error
		plan, err = j.Plan(ctx, event)
		if err == nil {
			break
		}
		if !types.IsTransient(err) || types.IsFatal(err) || retries.IsZero() {
			return err
		}
		retries.Sub()
		delay := backoff.Next()
		j.logger.Debugw(
			"Failed to plan event, retrying",
			"event", event.String(),
			"retry in", delay,
			"retries left", retries.String(),
			"error", err,
		)
		if err := ctx.Err(); err != nil {
			return err
		}
		Sleep(delay)
	}
	if len(plan) == 0 {
		return nil
	}
	j.logger.Debugw("Executing plan", "event", event.String(), "steps", len(plan))
	return j.executor.Execute(ctx, plan)
}

// BeaconState reads the IBC handler storage of an EVM chain. Client heights
// are beacon slots.
type BeaconState struct {
	Reader *evm.ProofReader
}

func (s BeaconState) ReadProof(ctx context.Context, path types.Path, height types.Height) ([]byte, []byte, error) {
	proof, err := s.Reader.ReadStateWithProof(ctx, path, height.RevisionHeight)
	if err != nil {
		return nil, nil, err
	}
	return proof.Value, proof.Proof, nil
}

// TendermintState reads the IBC store of a CometBFT chain.
type TendermintState struct {
	Reader *tendermint.ProofReader
}

func (s TendermintState) ReadProof(ctx context.Context, path types.Path, height types.Height) ([]byte, []byte, error) {
	proof, err := s.Reader.ReadStateWithProof(ctx, path, height)
	if err != nil {
		return nil, nil, err
	}
	return proof.Value, proof.Proof, nil
}
