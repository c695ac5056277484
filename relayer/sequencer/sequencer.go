package sequencer

import (
	"context"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
)

// Created a function variable for mocking purposes in tests
var Sleep = time.Sleep

const (
	OutcomeIncluded  = "included"
	OutcomeRedundant = "redundant"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// Chain is a destination chain datagrams are submitted to. Submit returns
// once the datagram is included.
//
//go:generate go tool mockgen -destination=../../mocks/mock_chain.go -package=mocks github.com/NethermindEth/ibc-relayer/relayer/sequencer Chain
type Chain interface {
	ChainId() string
	LatestHeight(ctx context.Context) (types.Height, error)
	LatestTimestamp(ctx context.Context) (uint64, error)
	Submit(ctx context.Context, datagram types.Datagram) error
}

type Recorder interface {
	RecordDatagram(chainId string, kind types.DatagramKind, outcome string)
}

type Options struct {
	Retries      types.Retries
	PollInterval time.Duration
	Backoff      time.Duration
	MaxBackoff   time.Duration
	// Optional
	Recorder Recorder
}

// Sequencer executes plans against their destination chains, one op at a
// time.
type Sequencer struct {
	logger  *utils.ZapLogger
	chains  map[string]Chain
	options Options
}

func New(logger *utils.ZapLogger, options Options, chains ...Chain) *Sequencer {
	byId := make(map[string]Chain, len(chains))
	for _, chain := range chains {
		byId[chain.ChainId()] = chain
	}
	return &Sequencer{
		logger:  logger,
		chains:  byId,
		options: options,
	}
}

func (s *Sequencer) chain(chainId string) (Chain, error) {
	chain, ok := s.chains[chainId]
	if !ok {
		return nil, types.Fatalf(types.ErrFatal, "no destination chain with id `%s`", chainId)
	}
	return chain, nil
}

// Execute runs the ops of plan in order. An op starts only after the
// previous one took effect.
func (s *Sequencer) Execute(ctx context.Context, plan types.Plan) error {
	for i, op := range plan {
		var err error
		switch o := op.(type) {
		case types.WaitForTimestamp:
			err = s.waitForTimestamp(ctx, &o)
		case types.WaitForHeight:
			err = s.waitForHeight(ctx, &o)
		case types.Submit:
			err = s.submit(ctx, &o.Datagram)
		default:
			err = types.Fatalf(types.ErrFatal, "unknown plan op %T", op)
		}
		if err != nil {
			return errors.Wrapf(err, "step %d of %d", i+1, len(plan))
		}
	}
	return nil
}

func (s *Sequencer) waitForTimestamp(ctx context.Context, op *types.WaitForTimestamp) error {
	chain, err := s.chain(op.ChainId)
	if err != nil {
		return err
	}
	for {
		timestamp, err := chain.LatestTimestamp(ctx)
		if err != nil {
			if !types.IsTransient(err) {
				return err
			}
			s.logger.Debugw("Failed to read latest timestamp", "chain", op.ChainId, "error", err)
		} else if timestamp >= op.Timestamp {
			return nil
		} else {
			s.logger.Debugw(
				"Waiting for destination timestamp",
				"chain", op.ChainId,
				"latest", timestamp,
				"target", op.Timestamp,
			)
		}
		if err := s.sleep(ctx, s.options.PollInterval); err != nil {
			return err
		}
	}
}

func (s *Sequencer) waitForHeight(ctx context.Context, op *types.WaitForHeight) error {
	chain, err := s.chain(op.ChainId)
	if err != nil {
		return err
	}
	for {
		height, err := chain.LatestHeight(ctx)
		if err != nil {
			if !types.IsTransient(err) {
				return err
			}
			s.logger.Debugw("Failed to read latest height", "chain", op.ChainId, "error", err)
		} else if height.GTE(op.Height) {
			return nil
		} else {
			s.logger.Debugw(
				"Waiting for destination height",
				"chain", op.ChainId,
				"latest", height,
				"target", op.Height,
			)
		}
		if err := s.sleep(ctx, s.options.PollInterval); err != nil {
			return err
		}
	}
}

// submit retries transient failures, sequence mismatches included. A
// datagram the destination already applied or rejected counts as done.
func (s *Sequencer) submit(ctx context.Context, datagram *types.Datagram) error {
	chain, err := s.chain(datagram.ChainId)
	if err != nil {
		return err
	}

	retries := s.options.Retries
	backoff := types.NewBackoff(s.options.Backoff, s.options.MaxBackoff)
	for {
		err := chain.Submit(ctx, *datagram)
		switch {
		case err == nil:
			s.record(datagram, OutcomeIncluded)
			return nil
		case errors.Is(err, types.ErrRedundant):
			s.logger.Infow("Datagram already applied", "datagram", datagram.String(), "reason", err.Error())
			s.record(datagram, OutcomeRedundant)
			return nil
		case errors.Is(err, types.ErrCounterpartyRejected):
			s.logger.Infow("Datagram rejected by destination", "datagram", datagram.String(), "reason", err.Error())
			s.record(datagram, OutcomeRejected)
			return nil
		case types.IsTransient(err) && !types.IsFatal(err):
			if retries.IsZero() {
				s.record(datagram, OutcomeFailed)
				return errors.Wrapf(err, "submitting %s: retries exhausted", datagram.String())
			}
			retries.Sub()
			delay := backoff.Next()
			s.logger.Debugw(
				"Submission failed, retrying",
				"datagram", datagram.String(),
				"sequence mismatch", errors.Is(err, types.ErrSequenceMismatch),
				"retry in", delay,
				"retries left", retries.String(),
				"error", err,
			)
			if err := s.sleep(ctx, delay); err != nil {
				return err
			}
		default:
			s.record(datagram, OutcomeFailed)
			return errors.Wrapf(err, "submitting %s", datagram.String())
		}
	}
}

func (s *Sequencer) record(datagram *types.Datagram, outcome string) {
	if s.options.Recorder != nil {
		s.options.Recorder.RecordDatagram(datagram.ChainId, datagram.Kind, outcome)
	}
}

func (s *Sequencer) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	Sleep(d)
	return ctx.Err()
}
