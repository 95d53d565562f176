// Package persistence defines the storage interfaces the engine depends on
// and provides in-memory, SQLite, and Redis implementations.
package persistence

import (
	"context"
	"errors"

	"github.com/weftlabs/weft/pkg/api"
)

var (
	// ErrWorkflowNotFound is returned when a workflow is not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrRunNotFound is returned when a run is not found.
	ErrRunNotFound = errors.New("run not found")

	// ErrCredentialNotFound is returned when a credential does not exist or
	// is owned by a different user. The two cases are indistinguishable on
	// purpose.
	ErrCredentialNotFound = errors.New("credential not found")
)

// WorkflowStore handles storage of workflow definitions. The engine only
// ever reads them; writes come from the editing surface.
type WorkflowStore interface {
	SaveWorkflow(ctx context.Context, wf api.Workflow) error
	GetWorkflow(ctx context.Context, id string) (api.Workflow, error)
}

// RunFilter selects runs from the store. Zero values mean "no filter".
type RunFilter struct {
	WorkflowID string
	Status     api.RunStatus
}

// RunStore handles storage of runs.
type RunStore interface {
	SaveRun(ctx context.Context, run *api.Run) error
	UpdateRun(ctx context.Context, run *api.Run) error
	GetRun(ctx context.Context, id string) (*api.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error)
}

// StepRecord is the durable result of one named step within a run.
type StepRecord struct {
	// Result is the JSON-encoded step result.
	Result []byte
}

// StepStore records completed steps, keyed by run id plus step key. Records
// are written once, on first successful execution of a step, and read on
// replay of the same run. Only successful results are recorded: a failed
// step left no durable side-effect receipt, so a run-level retry must
// re-execute it.
type StepStore interface {
	SaveStep(ctx context.Context, runID, stepKey string, rec StepRecord) error
	// GetStep returns the record and true if the step has already completed
	// for this run.
	GetStep(ctx context.Context, runID, stepKey string) (StepRecord, bool, error)
}

// StoredCredential is a credential at rest: the secret is ciphertext.
type StoredCredential struct {
	ID         string
	UserID     string
	Type       api.CredentialType
	Ciphertext []byte
}

// CredentialStore handles storage of encrypted credentials. GetCredential
// is scoped by both id and owning user; a wrong-owner lookup returns
// ErrCredentialNotFound, never a permission error.
type CredentialStore interface {
	SaveCredential(ctx context.Context, cred StoredCredential) error
	GetCredential(ctx context.Context, id, userID string) (StoredCredential, error)
}

// Persistence bundles the stores an engine needs.
type Persistence struct {
	Workflows   WorkflowStore
	Runs        RunStore
	Steps       StepStore
	Credentials CredentialStore
}
