package weft

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/weftlabs/weft/internal/taskqueue"
	"github.com/weftlabs/weft/pkg/worker"
)

// LocalRunner bundles an in-memory Engine, an in-memory task queue, and a
// Worker into a simple single-process runner for development and tests.
//
// Typical usage:
//
//	runner := weft.NewLocalRunner(weft.Options{}, worker.Config{MaxAttempts: 3})
//	_ = runner.Engine.SaveWorkflow(ctx, wf)
//
//	// Synchronous run (no queue/worker involved):
//	run, err := runner.Engine.Trigger(ctx, ev)
//
//	// Asynchronous run:
//	_ = runner.StartWorkers(ctx, 2)
//	_ = runner.TriggerAsync(ctx, ev)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Engine is the in-memory workflow engine used by this runner.
	Engine Engine

	// Queue is the in-memory task queue used by the Worker.
	Queue taskqueue.Queue

	// Worker processes tasks from Queue using Engine.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory engine
// and queue, with the built-in executors registered.
func NewLocalRunner(opts Options, cfg worker.Config) *LocalRunner {
	eng := NewInMemoryEngine(opts)
	q := taskqueue.NewMemoryQueue(1024)
	w := worker.New(eng, q, cfg)

	return &LocalRunner{
		Engine: eng,
		Queue:  q,
		Worker: w,
	}
}

// StartWorkers starts 'concurrency' worker goroutines that continuously
// call Worker.ProcessOne(ctx) until the context is cancelled via Stop.
//
// If StartWorkers is called more than once without Stop, it returns an
// error.
func (r *LocalRunner) StartWorkers(ctx context.Context, concurrency int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("weft: LocalRunner already started")
	}

	if concurrency <= 0 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true

	r.wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func() {
			defer r.wg.Done()

			for {
				processed, err := r.Worker.ProcessOne(ctx)
				if err != nil {
					// Cancellation is a clean shutdown signal for a local runner.
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return
					}
					// Log and keep going so a single bad task doesn't kill the loop.
					log.Printf("weft: local runner worker error: %v", err)
					continue
				}
				if !processed {
					continue
				}
			}
		}()
	}

	return nil
}

// Stop cancels all worker goroutines started by StartWorkers and waits
// for them to exit.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// TriggerAsync enqueues a trigger event for asynchronous execution. The
// workflow must already be saved on the runner's Engine.
func (r *LocalRunner) TriggerAsync(ctx context.Context, ev TriggerEvent) error {
	return r.Worker.EnqueueTrigger(ctx, ev)
}

// RetryAsync enqueues a replay of an existing failed run.
func (r *LocalRunner) RetryAsync(ctx context.Context, runID string) error {
	return r.Worker.EnqueueRetry(ctx, runID)
}
