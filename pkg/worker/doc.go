// Package worker provides the background worker that drives weft workflow
// runs from queued trigger events.
//
// Trigger sources (webhook handlers, schedulers, manual execution) enqueue
// tasks; workers consume them, start runs through an Engine, and apply a
// bounded retry policy for failed runs. Workers are lightweight and easy
// to embed in existing services, and multiple workers can safely share one
// queue to scale processing.
//
// # Worker Responsibilities
//
// A worker is responsible for:
//
//   - Polling a task queue for pending trigger and retry tasks
//   - Starting runs through the engine
//   - Re-enqueuing failed runs as retry tasks, with backoff, up to the
//     configured attempt limit
//   - Recognizing non-retriable failures (cycles, bad configuration,
//     missing credentials) and surfacing them instead of retrying
//
// Retries replay the original run id, so steps recorded during a failed
// attempt return their memoized results and completed side effects are
// not repeated.
//
// # Integration with Engine and Queues
//
// Workers are decoupled from any particular queue backend. The in-memory
// queue suits tests and single-process deployments; the SQLite queue
// survives restarts and supports delayed delivery via NotBefore.
package worker
