package api

import "context"

// Engine orders a workflow's node graph, drives the ordered sequence
// through the registered executors, and records the resulting run.
type Engine interface {
	// RegisterExecutor registers an executor for its node type. Registering
	// the same type twice is an error.
	RegisterExecutor(ex Executor) error

	// SaveWorkflow stores a workflow definition. It enforces the edit-time
	// invariant that a workflow holds at most one manual trigger.
	SaveWorkflow(ctx context.Context, wf Workflow) error

	// GetWorkflow fetches a stored workflow by id.
	GetWorkflow(ctx context.Context, id string) (Workflow, error)

	// SaveCredential encrypts cred.Value and stores the credential scoped to
	// its owning user. The plaintext never reaches the store.
	SaveCredential(ctx context.Context, cred Credential) error

	// Trigger starts a run for the event's workflow and drives it to a
	// terminal status. The returned run is also persisted; on failure it is
	// returned together with the failing node's error.
	Trigger(ctx context.Context, ev TriggerEvent) (*Run, error)

	// Retry replays a FAILED run from the first node using its original
	// trigger payload. Steps already recorded for the run are returned from
	// memoization instead of re-executing their side effects.
	Retry(ctx context.Context, runID string) (*Run, error)

	// GetRun looks up a run by id.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns runs matching the given options.
	ListRuns(ctx context.Context, opts RunListOptions) ([]*Run, error)
}
