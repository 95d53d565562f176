package taskqueue

import (
	"context"
	"sync"
	"time"
)

// MemoryQueue is a Queue backed by a buffered channel. It is safe for
// concurrent use. Ordering is FIFO; a task with a future NotBefore blocks
// the head of the queue until it becomes eligible.
type MemoryQueue struct {
	ch chan Task

	// held keeps tasks whose NotBefore wait was interrupted by
	// cancellation. They stay at the head of the queue, ahead of anything
	// still in the channel, and do not compete for buffer space.
	mu   sync.Mutex
	held []Task
}

// NewMemoryQueue creates a queue with the given capacity. For tests and
// small deployments a modest capacity (e.g. 1024) is fine.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{ch: make(chan Task, capacity)}
}

var _ Queue = (*MemoryQueue)(nil)

func (q *MemoryQueue) Enqueue(ctx context.Context, t Task) error {
	if t.EnqueuedAt.IsZero() {
		t.EnqueuedAt = time.Now()
	}
	select {
	case q.ch <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context) (*Task, error) {
	t, ok := q.takeHeld()
	if !ok {
		select {
		case t = <-q.ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if wait := time.Until(t.NotBefore); wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			q.hold(t)
			return nil, ctx.Err()
		}
	}
	return &t, nil
}

func (q *MemoryQueue) takeHeld() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.held) == 0 {
		return Task{}, false
	}
	t := q.held[0]
	q.held = q.held[1:]
	return t, true
}

func (q *MemoryQueue) hold(t Task) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.held = append(q.held, t)
}

func (q *MemoryQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.ch) + len(q.held)
}
