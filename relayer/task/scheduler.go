package task

import (
	"context"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/pool"
)

// Created a function variable for mocking purposes in tests
var Sleep = time.Sleep

const (
	DefaultPollInterval = 6 * time.Second
	DefaultBackoff      = 2 * time.Second
	DefaultMaxBackoff   = time.Minute
)

type RetryRecorder interface {
	RecordRetry(family string)
}

type Options struct {
	Retries      types.Retries
	PollInterval time.Duration
	Backoff      time.Duration
	MaxBackoff   time.Duration
	// Optional
	Recorder RetryRecorder
}

func DefaultOptions() Options {
	return Options{
		Retries:      types.NewRetries(),
		PollInterval: DefaultPollInterval,
		Backoff:      DefaultBackoff,
		MaxBackoff:   DefaultMaxBackoff,
	}
}

// Scheduler resolves task graphs. Independent dependencies of an Aggregate
// run concurrently, Sequence steps run strictly one after the other, and
// transient failures requeue the failing node after a backoff.
type Scheduler struct {
	logger   *utils.ZapLogger
	handlers map[string]Handler
	options  Options
}

func NewScheduler(logger *utils.ZapLogger, options Options) *Scheduler {
	return &Scheduler{
		logger:   logger,
		handlers: make(map[string]Handler),
		options:  options,
	}
}

// Register must be called before any Resolve.
func (s *Scheduler) Register(family string, handler Handler) {
	s.handlers[family] = handler
}

func (s *Scheduler) Resolve(ctx context.Context, n Node) (any, error) {
	switch node := n.(type) {
	case Data:
		return node.Value, nil
	case Fetch:
		handler, err := s.handler(node.Kind)
		if err != nil {
			return nil, err
		}
		next, err := s.call(ctx, node, func() (Node, error) {
			return handler.Fetch(ctx, node.Kind)
		})
		if err != nil {
			return nil, err
		}
		return s.Resolve(ctx, next)
	case Aggregate:
		handler, err := s.handler(node.Kind)
		if err != nil {
			return nil, err
		}
		inputs, err := s.resolveAll(ctx, node.Deps)
		if err != nil {
			return nil, err
		}
		next, err := s.call(ctx, node, func() (Node, error) {
			return handler.Aggregate(ctx, node.Kind, inputs)
		})
		if err != nil {
			return nil, err
		}
		return s.Resolve(ctx, next)
	case Wait:
		return s.wait(ctx, node)
	case Sequence:
		values := make([]any, 0, len(node.Steps))
		for _, step := range node.Steps {
			value, err := s.Resolve(ctx, step)
			if err != nil {
				return nil, err
			}
			values = append(values, value)
		}
		return values, nil
	case nil:
		return nil, types.Fatalf(types.ErrFatal, "cannot resolve a nil node")
	default:
		return nil, types.Fatalf(types.ErrFatal, "unknown node type %T", n)
	}
}

// ResolvePlan resolves n and flattens its value into a plan.
func (s *Scheduler) ResolvePlan(ctx context.Context, n Node) (types.Plan, error) {
	value, err := s.Resolve(ctx, n)
	if err != nil {
		return nil, err
	}
	return CollectPlan(value)
}

// CollectPlan flattens nested sequence values made of plans and ops.
func CollectPlan(value any) (types.Plan, error) {
	switch v := value.(type) {
	case nil:
		return types.Plan{}, nil
	case types.Plan:
		return v, nil
	case types.Op:
		return types.Plan{v}, nil
	case []any:
		plan := types.Plan{}
		for _, item := range v {
			sub, err := CollectPlan(item)
			if err != nil {
				return nil, err
			}
			plan = append(plan, sub...)
		}
		return plan, nil
	default:
		return nil, types.Fatalf(types.ErrFatal, "value of type %T is not part of a plan", value)
	}
}

func (s *Scheduler) handler(kind Kind) (Handler, error) {
	if kind == nil {
		return nil, types.Fatalf(types.ErrFatal, "node has no kind")
	}
	handler, ok := s.handlers[kind.Family()]
	if !ok {
		return nil, types.Fatalf(types.ErrFatal, "no handler registered for family `%s`", kind.Family())
	}
	return handler, nil
}

func (s *Scheduler) resolveAll(ctx context.Context, deps []Node) ([]any, error) {
	values := make([]any, len(deps))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	for i, dep := range deps {
		p.Go(func(ctx context.Context) error {
			value, err := s.Resolve(ctx, dep)
			if err != nil {
				return err
			}
			values[i] = value
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return values, nil
}

func (s *Scheduler) wait(ctx context.Context, node Wait) (any, error) {
	handler, err := s.handler(node.Kind)
	if err != nil {
		return nil, err
	}
	for {
		next, err := s.call(ctx, node, func() (Node, error) {
			value, done, err := handler.Wait(ctx, node.Kind)
			if err != nil || !done {
				return nil, err
			}
			return Data{Value: value}, nil
		})
		if err != nil {
			return nil, err
		}
		if next != nil {
			return s.Resolve(ctx, next)
		}
		s.logger.Debugw("Condition not met yet", "task", Describe(node), "recheck in", s.options.PollInterval)
		if err := sleep(ctx, s.options.PollInterval); err != nil {
			return nil, err
		}
	}
}

// call runs f until it succeeds, fails with a non transient error, or the
// retry budget is spent.
func (s *Scheduler) call(ctx context.Context, n Node, f func() (Node, error)) (Node, error) {
	retries := s.options.Retries
	backoff := types.NewBackoff(s.options.Backoff, s.options.MaxBackoff)
	for {
		next, err := f()
		if err == nil {
			return next, nil
		}
		if !types.IsTransient(err) || types.IsFatal(err) {
			return nil, errors.Wrapf(err, "%s", Describe(n))
		}
		if retries.IsZero() {
			return nil, errors.Wrapf(err, "%s: retries exhausted", Describe(n))
		}
		retries.Sub()

		delay := backoff.Next()
		s.logger.Debugw(
			"Transient failure, requeueing task",
			"task", Describe(n),
			"retry in", delay,
			"retries left", retries.String(),
			"error", err,
		)
		if s.options.Recorder != nil {
			s.options.Recorder.RecordRetry(familyOf(n))
		}
		if err := sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

func familyOf(n Node) string {
	switch node := n.(type) {
	case Fetch:
		return node.Kind.Family()
	case Aggregate:
		return node.Kind.Family()
	case Wait:
		return node.Kind.Family()
	default:
		return ""
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	Sleep(d)
	return ctx.Err()
}
