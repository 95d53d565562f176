package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weftlabs/weft/internal/taskqueue"
	"github.com/weftlabs/weft/pkg/api"
)

// Config tunes the worker's retry policy for failed runs.
type Config struct {
	// MaxAttempts is how many times a trigger task may be attempted before
	// the worker gives up. Zero or negative means 1 (no retries).
	MaxAttempts int

	// RetryBackoff is the delay before a failed task becomes eligible
	// again. Zero means re-enqueue immediately.
	RetryBackoff time.Duration
}

// Worker pulls tasks from a Queue and drives runs through an Engine.
// Run one or more workers as goroutines calling ProcessOne in a loop, or
// use Run for a managed loop.
type Worker struct {
	engine api.Engine
	queue  taskqueue.Queue
	cfg    Config
}

// New creates a Worker.
func New(engine api.Engine, queue taskqueue.Queue, cfg Config) *Worker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Worker{engine: engine, queue: queue, cfg: cfg}
}

// EnqueueTrigger enqueues a trigger event for asynchronous execution. It
// does not run the workflow itself; that is done by ProcessOne.
func (w *Worker) EnqueueTrigger(ctx context.Context, ev api.TriggerEvent) error {
	return w.queue.Enqueue(ctx, taskqueue.Task{
		Type:       taskqueue.TaskTypeTriggerRun,
		Event:      ev,
		Attempts:   0,
		EnqueuedAt: time.Now(),
	})
}

// EnqueueTriggerAt enqueues a trigger event to run no earlier than at.
func (w *Worker) EnqueueTriggerAt(ctx context.Context, ev api.TriggerEvent, at time.Time) error {
	return w.queue.Enqueue(ctx, taskqueue.Task{
		Type:       taskqueue.TaskTypeTriggerRun,
		Event:      ev,
		Attempts:   0,
		EnqueuedAt: time.Now(),
		NotBefore:  at,
	})
}

// EnqueueRetry enqueues a replay of an existing failed run.
func (w *Worker) EnqueueRetry(ctx context.Context, runID string) error {
	return w.queue.Enqueue(ctx, taskqueue.Task{
		Type:       taskqueue.TaskTypeRetryRun,
		RunID:      runID,
		EnqueuedAt: time.Now(),
	})
}

// ProcessOne pulls a single task from the queue and processes it.
// Returns (processed, error):
//   - processed == false, err != nil: dequeue failed (usually cancellation)
//   - processed == true: a task was handled; err is the terminal outcome,
//     nil when the run succeeded or the failure was re-enqueued for retry.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}

	switch task.Type {
	case taskqueue.TaskTypeTriggerRun:
		run, runErr := w.engine.Trigger(ctx, task.Event)
		if runErr == nil {
			return true, nil
		}
		return true, w.handleFailure(ctx, *task, run, runErr)

	case taskqueue.TaskTypeRetryRun:
		run, retryErr := w.engine.Retry(ctx, task.RunID)
		if retryErr == nil {
			return true, nil
		}
		return true, w.handleFailure(ctx, *task, run, retryErr)

	default:
		return true, fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// handleFailure decides whether a failed trigger run is retried. Retries
// replay the same run id, so memoized steps are not repeated.
func (w *Worker) handleFailure(ctx context.Context, task taskqueue.Task, run *api.Run, runErr error) error {
	attempts := task.Attempts + 1

	if isNonRetriable(runErr) || attempts >= w.cfg.MaxAttempts || run == nil {
		return runErr
	}

	enqErr := w.queue.Enqueue(ctx, taskqueue.Task{
		Type:       taskqueue.TaskTypeRetryRun,
		RunID:      run.ID,
		Attempts:   attempts,
		EnqueuedAt: time.Now(),
		NotBefore:  time.Now().Add(w.cfg.RetryBackoff),
	})
	if enqErr != nil {
		return errors.Join(runErr, enqErr)
	}
	return nil
}

// isNonRetriable reports whether retrying could never succeed: the
// workflow shape or node configuration is wrong, not the outside world.
func isNonRetriable(err error) bool {
	var confErr *api.ConfigurationError
	var credErr *api.CredentialError
	var unregErr *api.UnregisteredNodeTypeError
	return api.IsCycleError(err) ||
		errors.As(err, &confErr) ||
		errors.As(err, &credErr) ||
		errors.As(err, &unregErr)
}

// Run processes tasks until ctx is cancelled. Per-task errors are sent to
// onError when provided; they do not stop the loop.
func (w *Worker) Run(ctx context.Context, onError func(error)) error {
	for {
		processed, err := w.ProcessOne(ctx)
		if !processed {
			if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return err
			}
			if err != nil && onError != nil {
				onError(err)
			}
			continue
		}
		if err != nil && onError != nil {
			onError(err)
		}
	}
}
