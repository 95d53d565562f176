package persistence

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/weftlabs/weft/pkg/api"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "weft_test.db")
	db, err := sql.Open("sqlite", "file:"+dbPath+"?_journal=WAL")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteStore_WorkflowRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	wf := api.Workflow{
		ID:     "wf-1",
		UserID: "user-1",
		Name:   "notify",
		Nodes: []api.Node{
			{ID: "t", Type: api.NodeTypeManualTrigger},
			{ID: "h", Type: api.NodeTypeHTTPRequest, Config: map[string]any{
				"endpoint": "https://api.example.com/data",
				"method":   "GET",
			}},
		},
		Connections: []api.Connection{{FromNodeID: "t", ToNodeID: "h"}},
	}
	if err := s.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("SaveWorkflow: %v", err)
	}

	got, err := s.GetWorkflow(ctx, "wf-1")
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if len(got.Nodes) != 2 || got.Nodes[1].Config["endpoint"] != "https://api.example.com/data" {
		t.Fatalf("workflow did not round-trip: %+v", got)
	}

	// Save again overwrites.
	wf.Name = "notify-v2"
	if err := s.SaveWorkflow(ctx, wf); err != nil {
		t.Fatalf("SaveWorkflow overwrite: %v", err)
	}
	got, _ = s.GetWorkflow(ctx, "wf-1")
	if got.Name != "notify-v2" {
		t.Fatalf("name = %s", got.Name)
	}

	if _, err := s.GetWorkflow(ctx, "missing"); !errors.Is(err, ErrWorkflowNotFound) {
		t.Fatalf("expected ErrWorkflowNotFound, got %v", err)
	}
}

func TestSQLiteStore_RunRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	run := &api.Run{
		ID:             "run-1",
		WorkflowID:     "wf-1",
		UserID:         "user-1",
		Status:         api.RunFailed,
		CurrentNode:    1,
		TriggerPayload: map[string]any{"source": "manual"},
		Context:        api.Context{"httpResponse": map[string]any{"status": float64(200)}},
		NodeStatuses: map[string]api.NodeStatus{
			"t": api.NodeSuccess,
			"h": api.NodeError,
		},
		Err: errors.New("node h: request failed"),
	}
	if err := s.SaveRun(ctx, run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != api.RunFailed || got.CurrentNode != 1 {
		t.Fatalf("run fields lost: %+v", got)
	}
	resp, ok := got.Context["httpResponse"].(map[string]any)
	if !ok || resp["status"] != float64(200) {
		t.Fatalf("context did not round-trip: %v", got.Context)
	}
	if got.NodeStatuses["h"] != api.NodeError {
		t.Fatalf("node statuses lost: %v", got.NodeStatuses)
	}
	if got.Err == nil || got.Err.Error() != "node h: request failed" {
		t.Fatalf("error lost: %v", got.Err)
	}

	run.Status = api.RunCompleted
	run.Err = nil
	if err := s.UpdateRun(ctx, run); err != nil {
		t.Fatalf("UpdateRun: %v", err)
	}
	got, _ = s.GetRun(ctx, "run-1")
	if got.Status != api.RunCompleted || got.Err != nil {
		t.Fatalf("update lost: %+v", got)
	}

	if err := s.UpdateRun(ctx, &api.Run{ID: "nope"}); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestSQLiteStore_ListRunsOrderedAndFiltered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	for _, run := range []*api.Run{
		{ID: "r1", WorkflowID: "wf-a", Status: api.RunCompleted},
		{ID: "r2", WorkflowID: "wf-b", Status: api.RunFailed},
		{ID: "r3", WorkflowID: "wf-a", Status: api.RunFailed},
	} {
		if err := s.SaveRun(ctx, run); err != nil {
			t.Fatalf("SaveRun %s: %v", run.ID, err)
		}
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("ListRuns: %d, err %v", len(all), err)
	}
	if all[0].ID != "r1" || all[1].ID != "r2" || all[2].ID != "r3" {
		t.Fatalf("save order not preserved: %s %s %s", all[0].ID, all[1].ID, all[2].ID)
	}

	failedA, err := s.ListRuns(ctx, RunFilter{WorkflowID: "wf-a", Status: api.RunFailed})
	if err != nil || len(failedA) != 1 || failedA[0].ID != "r3" {
		t.Fatalf("filtered list: %v, err %v", failedA, err)
	}
}

func TestSQLiteStore_StepAtMostOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	if err := s.SaveStep(ctx, "run-1", "http-request-n1", StepRecord{Result: []byte(`{"status":200}`)}); err != nil {
		t.Fatalf("SaveStep: %v", err)
	}
	// A second write for the same key is a no-op: first writer wins.
	if err := s.SaveStep(ctx, "run-1", "http-request-n1", StepRecord{Result: []byte(`{"status":500}`)}); err != nil {
		t.Fatalf("SaveStep second: %v", err)
	}

	rec, ok, err := s.GetStep(ctx, "run-1", "http-request-n1")
	if err != nil || !ok {
		t.Fatalf("GetStep: ok=%v err=%v", ok, err)
	}
	if string(rec.Result) != `{"status":200}` {
		t.Fatalf("second write overwrote step record: %s", rec.Result)
	}
}

func TestSQLiteStore_CredentialScopedByUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s, err := NewSQLiteStore(newTestDB(t))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	cred := StoredCredential{ID: "c1", UserID: "alice", Type: api.CredentialGemini, Ciphertext: []byte{1, 2, 3}}
	if err := s.SaveCredential(ctx, cred); err != nil {
		t.Fatalf("SaveCredential: %v", err)
	}

	if _, err := s.GetCredential(ctx, "c1", "alice"); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := s.GetCredential(ctx, "c1", "bob"); !errors.Is(err, ErrCredentialNotFound) {
		t.Fatalf("expected ErrCredentialNotFound for wrong owner, got %v", err)
	}
}
