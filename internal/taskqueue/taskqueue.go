// Package taskqueue provides the async delivery channel between trigger
// sources and the engine. Trigger webhooks enqueue; a worker dequeues and
// drives runs.
package taskqueue

import (
	"context"
	"time"

	"github.com/weftlabs/weft/pkg/api"
)

// TaskType identifies what the worker should do with a task.
type TaskType string

const (
	// TaskTypeTriggerRun starts a new run for the event carried in the task.
	TaskTypeTriggerRun TaskType = "trigger-run"

	// TaskTypeRetryRun replays an existing failed run.
	TaskTypeRetryRun TaskType = "retry-run"
)

// Task is a unit of work for the worker.
type Task struct {
	ID   string
	Type TaskType

	// For trigger-run tasks.
	Event api.TriggerEvent

	// For retry-run tasks.
	RunID string

	// Attempts counts how many times this task has been handed to the
	// worker. Used for the worker's bounded-retry policy.
	Attempts int

	EnqueuedAt time.Time

	// NotBefore is the earliest time this task is eligible for processing.
	// Zero means "immediately".
	NotBefore time.Time
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next eligible task, blocking until one
	// is available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
