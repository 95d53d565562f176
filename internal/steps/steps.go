// Package steps provides the durable, idempotent step runner that wraps
// every node side effect.
package steps

import (
	"context"
	"fmt"

	"github.com/weftlabs/weft/internal/persistence"
)

// Runner executes named units of work at most once per run. Results are
// persisted in a StepStore keyed by run id, so replaying the run (after a
// run-level retry) returns recorded results instead of repeating side
// effects. Each run gets its own Runner; runs never share step state.
type Runner struct {
	runID string
	store persistence.StepStore
}

// NewRunner creates a Runner scoped to one run.
func NewRunner(runID string, store persistence.StepStore) *Runner {
	return &Runner{runID: runID, store: store}
}

// Run executes fn under stepKey. If a result for the key is already
// recorded for this run, fn is not called and the recorded result is
// returned. Results round-trip through JSON, so a replayed value is
// identical to what a fresh decode of the original would have produced.
//
// A failed fn records nothing: the effect produced no durable receipt, and
// a later replay of the run must attempt it again.
func (r *Runner) Run(ctx context.Context, stepKey string, fn func(ctx context.Context) (any, error)) (any, error) {
	rec, ok, err := r.store.GetStep(ctx, r.runID, stepKey)
	if err != nil {
		return nil, fmt.Errorf("step %s: read record: %w", stepKey, err)
	}
	if ok {
		return persistence.DecodeValue[any](rec.Result)
	}

	result, err := fn(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := persistence.EncodeValue(result)
	if err != nil {
		return nil, fmt.Errorf("step %s: encode result: %w", stepKey, err)
	}
	if err := r.store.SaveStep(ctx, r.runID, stepKey, persistence.StepRecord{Result: encoded}); err != nil {
		return nil, fmt.Errorf("step %s: save record: %w", stepKey, err)
	}

	// Return the decoded form, not fn's in-memory value, so first execution
	// and replay observe byte-for-byte identical results.
	return persistence.DecodeValue[any](encoded)
}
