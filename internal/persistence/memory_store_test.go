package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/weftlabs/weft/pkg/api"
)

func TestInMemoryStore_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	run := &api.Run{
		ID:         "run-1",
		WorkflowID: "wf-1",
		UserID:     "user-1",
		Status:     api.RunRunning,
		Context:    api.Context{"a": "1"},
		NodeStatuses: map[string]api.NodeStatus{
			"n1": api.NodeInitial,
		},
	}

	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	// Mutating the caller's run must not leak into the stored copy.
	run.Context["a"] = "mutated"
	run.NodeStatuses["n1"] = api.NodeError

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Context["a"] != "1" {
		t.Fatalf("stored run shares context with caller: %v", got.Context)
	}
	if got.NodeStatuses["n1"] != api.NodeInitial {
		t.Fatalf("stored run shares node statuses with caller: %v", got.NodeStatuses)
	}

	run.Status = api.RunCompleted
	if err := s.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	got, err = s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun after update: %v", err)
	}
	if got.Status != api.RunCompleted {
		t.Fatalf("status = %s, want COMPLETED", got.Status)
	}
}

func TestInMemoryStore_UpdateUnknownRun(t *testing.T) {
	s := NewInMemoryStore()
	err := s.UpdateRun(context.Background(), &api.Run{ID: "nope"})
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestInMemoryStore_ListRunsFilters(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	for _, run := range []*api.Run{
		{ID: "r1", WorkflowID: "wf-a", Status: api.RunCompleted},
		{ID: "r2", WorkflowID: "wf-a", Status: api.RunFailed},
		{ID: "r3", WorkflowID: "wf-b", Status: api.RunCompleted},
	} {
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun %s: %v", run.ID, err)
		}
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListRuns all: %d runs, err %v", len(all), err)
	}
	// Insertion order is preserved.
	if all[0].ID != "r1" || all[2].ID != "r3" {
		t.Fatalf("unexpected order: %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}

	byWf, err := s.ListRuns(ctx, RunFilter{WorkflowID: "wf-a"})
	if err != nil || len(byWf) != 2 {
		t.Fatalf("ListRuns wf-a: %d runs, err %v", len(byWf), err)
	}

	failed, err := s.ListRuns(ctx, RunFilter{Status: api.RunFailed})
	if err != nil || len(failed) != 1 || failed[0].ID != "r2" {
		t.Fatalf("ListRuns failed: %v, err %v", failed, err)
	}
}

func TestInMemoryStore_CredentialScopedByUser(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	cred := StoredCredential{
		ID:         "cred-1",
		UserID:     "alice",
		Type:       api.CredentialOpenAI,
		Ciphertext: []byte("sealed"),
	}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}

	got, err := s.GetCredential(ctx, "cred-1", "alice")
	if err != nil {
		t.Fatalf("GetCredential: %v", err)
	}
	if string(got.Ciphertext) != "sealed" {
		t.Fatalf("ciphertext = %q", got.Ciphertext)
	}

	// Another user's lookup is not-found, not a permission error.
	_, err = s.GetCredential(ctx, "cred-1", "mallory")
	if !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound, got %v", err)
	}
}

func TestInMemoryStore_StepFirstWriteWins(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()

	if _, ok, err := s.GetStep(ctx, "run-1", "k"); err != nil || ok {
		t.Fatalf("GetStep before save: ok=%v err=%v", ok, err)
	}
	if err := s.SaveStep(ctx, "run-1", "k", StepRecord{Result: []byte(`"one"`)}); err != nil {
		t.Fatalf("SaveStep: %v", err)
	}
	rec, ok, err := s.GetStep(ctx, "run-1", "k")
	if err != nil || !ok {
		t.Fatalf("GetStep: ok=%v err=%v", ok, err)
	}
	if string(rec.Result) != `"one"` {
		t.Fatalf("result = %s", rec.Result)
	}

	// Same key in another run is independent.
	if _, ok, _ := s.GetStep(ctx, "run-2", "k"); ok {
		t.Fatal("step leaked across runs")
	}
}
