package weft

import (
	"database/sql"

	"github.com/weftlabs/weft/internal/taskqueue"
	workerpkg "github.com/weftlabs/weft/pkg/worker"
)

// WorkerBundle wires together an Engine, a durable task queue, and a
// Worker that consumes tasks from that queue.
type WorkerBundle struct {
	Engine Engine
	Worker *workerpkg.Worker

	// queue is kept unexported; it is primarily useful for internal
	// inspection and tests. The public API focuses on Engine and Worker.
	queue taskqueue.Queue
}

// NewSQLiteBundle constructs a durable Engine + Queue + Worker combo
// sharing the same SQLite database. Workflows, runs, step records,
// credentials, and queued tasks all persist in the provided *sql.DB.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:weft.db?_journal=WAL")
//	bundle, err := weft.NewSQLiteBundle(db, weft.Options{}, worker.Config{MaxAttempts: 3})
//	// save workflows on bundle.Engine
//	// enqueue trigger events via bundle.Worker
func NewSQLiteBundle(db *sql.DB, opts Options, cfg workerpkg.Config) (*WorkerBundle, error) {
	eng, err := NewSQLiteEngine(db, opts)
	if err != nil {
		return nil, err
	}

	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}

	return &WorkerBundle{
		Engine: eng,
		Worker: workerpkg.New(eng, q, cfg),
		queue:  q,
	}, nil
}
