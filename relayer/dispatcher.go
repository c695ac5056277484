package relayer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NethermindEth/ibc-relayer/relayer/types"
	"github.com/NethermindEth/juno/utils"
	"github.com/sourcegraph/conc"
)

type JobStatus uint8

const (
	Ongoing JobStatus = iota + 1
	Successful
	Failed
)

func (s JobStatus) String() string {
	switch s {
	case Ongoing:
		return "ongoing"
	case Successful:
		return "successful"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

type Runner interface {
	Run(ctx context.Context, event *types.Event) error
}

type JobRecorder interface {
	RecordEvent(chainId string)
	RecordRelayJob(chainId string, elapsed time.Duration, err error)
}

// JobTracker follows the jobs started for distinct events. An event seen
// again while its job is in flight, or after it succeeded, is dropped.
type JobTracker struct {
	mu   sync.Mutex
	jobs map[string]JobStatus
}

func NewJobTracker() *JobTracker {
	return &JobTracker{jobs: make(map[string]JobStatus)}
}

func jobKey(event *types.Event) string {
	return event.ChainId + "/" + event.Path.String()
}

// start reports whether a job has to run for event and marks it ongoing.
func (t *JobTracker) start(event *types.Event) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := jobKey(event)
	if status, ok := t.jobs[key]; ok && status != Failed {
		return false
	}
	t.jobs[key] = Ongoing
	return true
}

func (t *JobTracker) finish(event *types.Event, status JobStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[jobKey(event)] = status
}

func (t *JobTracker) Status(event *types.Event) (JobStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	status, ok := t.jobs[jobKey(event)]
	return status, ok
}

type EventDispatcher struct {
	Tracker *JobTracker
	// Event channel
	Events chan types.Event
	// Routes by source chain id
	routes map[string]Runner
}

func NewEventDispatcher(routes map[string]Runner) EventDispatcher {
	return EventDispatcher{
		Tracker: NewJobTracker(),
		Events:  make(chan types.Event),
		routes:  routes,
	}
}

// Dispatch starts one job per new event until Events is closed, then waits
// for the running jobs. A failed job is logged and the relayer moves on: the
// same event seen again is retried.
func (d *EventDispatcher) Dispatch(ctx context.Context, logger *utils.ZapLogger, recorder JobRecorder) {
	wg := conc.NewWaitGroup()
	defer wg.Wait()

	for event := range d.Events {
		recorder.RecordEvent(event.ChainId)

		runner, ok := d.routes[event.ChainId]
		if !ok {
			logger.Warnw("No client tracks the source chain of event", "event", event.String())
			continue
		}
		if !d.Tracker.start(&event) {
			logger.Debugw("Event already being relayed", "event", event.String())
			continue
		}

		logger.Infow("Relaying event", "event", event.String())
		wg.Go(func() {
			start := time.Now()
			err := runner.Run(ctx, &event)
			recorder.RecordRelayJob(event.ChainId, time.Since(start), err)
			if err != nil {
				logger.Errorw(
					"Failed to relay event",
					"event", event.String(),
					"fatal", types.IsFatal(err),
					"error", err,
				)
				d.Tracker.finish(&event, Failed)
				return
			}
			logger.Infow("Event relayed", "event", event.String())
			d.Tracker.finish(&event, Successful)
		})
	}
}
