package weft_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/weftlabs/weft"
	"github.com/weftlabs/weft/pkg/api"
	"github.com/weftlabs/weft/pkg/worker"
)

// TestEndToEnd_HTTPIntoDiscord drives the canonical workflow: a manual
// trigger, an HTTP fetch, and a Discord webhook that interpolates the
// fetched payload.
func TestEndToEnd_HTTPIntoDiscord(t *testing.T) {
	ctx := context.Background()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"title": "delectus aut autem", "completed": false}`))
	}))
	defer apiSrv.Close()

	var delivered map[string]any
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&delivered))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	eng := weft.NewInMemoryEngine(weft.Options{})

	wf := weft.Workflow{
		ID:     "wf-1",
		UserID: "alice",
		Name:   "fetch and announce",
		Nodes: []weft.Node{
			{ID: "start", Type: api.NodeTypeManualTrigger},
			{ID: "fetch", Type: api.NodeTypeHTTPRequest, Config: map[string]any{
				"endpoint": apiSrv.URL,
			}},
			{ID: "announce", Type: api.NodeTypeDiscord, Config: map[string]any{
				"variableName": "discordResult",
				"webhookUrl":   sink.URL,
				"content":      "Got: {{json httpResponse.data}}",
			}},
		},
		Connections: []weft.Connection{
			{FromNodeID: "start", ToNodeID: "fetch"},
			{FromNodeID: "fetch", ToNodeID: "announce"},
		},
	}
	require.NoError(t, eng.SaveWorkflow(ctx, wf))

	run, err := eng.Trigger(ctx, weft.TriggerEvent{WorkflowID: "wf-1", UserID: "alice"})
	require.NoError(t, err)
	require.Equal(t, weft.RunCompleted, run.Status)

	content := delivered["content"].(string)
	require.Contains(t, content, `"title": "delectus aut autem"`)

	result := run.Context["discordResult"].(map[string]any)
	require.Equal(t, content, result["messageContent"])

	for _, id := range []string{"start", "fetch", "announce"} {
		require.Equal(t, api.NodeSuccess, run.NodeStatuses[id])
	}
}

// TestEndToEnd_FailFastStatuses asserts the status protocol across a run
// where the middle node fails.
func TestEndToEnd_FailFastStatuses(t *testing.T) {
	ctx := context.Background()

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer down.Close()

	pub := weft.NewMemoryPublisher()
	eng := weft.NewInMemoryEngine(weft.Options{Publisher: pub})

	httpEvents, cancelHTTP := pub.Subscribe("http-request", api.TopicStatus)
	defer cancelHTTP()
	discordEvents, cancelDiscord := pub.Subscribe("discord", api.TopicStatus)
	defer cancelDiscord()

	wf := weft.Workflow{
		ID:     "wf-1",
		UserID: "alice",
		Nodes: []weft.Node{
			{ID: "start", Type: api.NodeTypeManualTrigger},
			{ID: "fetch", Type: api.NodeTypeHTTPRequest, Config: map[string]any{
				"endpoint": down.URL,
			}},
			{ID: "announce", Type: api.NodeTypeDiscord, Config: map[string]any{
				"variableName": "v",
				"webhookUrl":   "http://localhost/never-called",
				"content":      "never sent",
			}},
		},
		Connections: []weft.Connection{
			{FromNodeID: "start", ToNodeID: "fetch"},
			{FromNodeID: "fetch", ToNodeID: "announce"},
		},
	}
	require.NoError(t, eng.SaveWorkflow(ctx, wf))

	run, err := eng.Trigger(ctx, weft.TriggerEvent{WorkflowID: "wf-1", UserID: "alice"})
	require.Error(t, err)
	require.Equal(t, weft.RunFailed, run.Status)

	// The failed node got its loading/error pair.
	first, second := <-httpEvents, <-httpEvents
	require.Equal(t, api.NodeLoading, first.Status)
	require.Equal(t, api.NodeError, second.Status)

	// The node after the failure never published anything.
	select {
	case ev := <-discordEvents:
		t.Fatalf("discord node ran after upstream failure: %v", ev)
	case <-time.After(20 * time.Millisecond):
	}
	require.Equal(t, api.NodeInitial, run.NodeStatuses["announce"])
}

// TestLocalRunner_AsyncTrigger exercises the queue + worker path.
func TestLocalRunner_AsyncTrigger(t *testing.T) {
	ctx := context.Background()

	apiSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer apiSrv.Close()

	runner := weft.NewLocalRunner(weft.Options{}, worker.Config{MaxAttempts: 1})

	wf := weft.Workflow{
		ID:     "wf-1",
		UserID: "alice",
		Nodes: []weft.Node{
			{ID: "start", Type: api.NodeTypeManualTrigger},
			{ID: "fetch", Type: api.NodeTypeHTTPRequest, Config: map[string]any{
				"endpoint": apiSrv.URL,
			}},
		},
		Connections: []weft.Connection{{FromNodeID: "start", ToNodeID: "fetch"}},
	}
	require.NoError(t, runner.Engine.SaveWorkflow(ctx, wf))

	require.NoError(t, runner.StartWorkers(ctx, 2))
	defer runner.Stop()

	require.NoError(t, runner.TriggerAsync(ctx, weft.TriggerEvent{WorkflowID: "wf-1", UserID: "alice"}))

	require.Eventually(t, func() bool {
		runs, err := runner.Engine.ListRuns(ctx, weft.RunListOptions{
			WorkflowID: "wf-1",
			Status:     weft.RunCompleted,
		})
		return err == nil && len(runs) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

// TestSQLiteBundle_RetrySkipsDeliveredWebhook proves durability across
// engine restarts: the first attempt delivers a webhook then fails
// downstream; after a restart on the same database, the retry completes
// without re-delivering.
func TestSQLiteBundle_RetrySkipsDeliveredWebhook(t *testing.T) {
	ctx := context.Background()

	deliveries := 0
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deliveries++
		w.WriteHeader(http.StatusNoContent)
	}))
	defer sink.Close()

	flaky := 0
	flakySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flaky++
		if flaky == 1 {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ready": true}`))
	}))
	defer flakySrv.Close()

	path := filepath.Join(t.TempDir(), "weft.db")
	wf := weft.Workflow{
		ID:     "wf-1",
		UserID: "alice",
		Nodes: []weft.Node{
			{ID: "announce", Type: api.NodeTypeDiscord, Config: map[string]any{
				"variableName": "v",
				"webhookUrl":   sink.URL,
				"content":      "deploy starting",
			}},
			{ID: "check", Type: api.NodeTypeHTTPRequest, Config: map[string]any{
				"endpoint": flakySrv.URL,
			}},
		},
		Connections: []weft.Connection{{FromNodeID: "announce", ToNodeID: "check"}},
	}

	var runID string

	// First process: webhook delivered, health check fails, run FAILED.
	{
		db, err := sql.Open("sqlite", "file:"+path+"?_journal=WAL")
		require.NoError(t, err)
		bundle, err := weft.NewSQLiteBundle(db, weft.Options{}, worker.Config{MaxAttempts: 1})
		require.NoError(t, err)
		require.NoError(t, bundle.Engine.SaveWorkflow(ctx, wf))

		run, err := bundle.Engine.Trigger(ctx, weft.TriggerEvent{WorkflowID: "wf-1", UserID: "alice"})
		require.Error(t, err)
		require.Equal(t, weft.RunFailed, run.Status)
		require.Equal(t, 1, deliveries)
		runID = run.ID
		require.NoError(t, db.Close())
	}

	// Second process on the same database: retry completes, the webhook
	// step replays from its record.
	{
		db, err := sql.Open("sqlite", "file:"+path+"?_journal=WAL")
		require.NoError(t, err)
		defer db.Close()
		bundle, err := weft.NewSQLiteBundle(db, weft.Options{}, worker.Config{MaxAttempts: 1})
		require.NoError(t, err)

		run, err := bundle.Engine.Retry(ctx, runID)
		require.NoError(t, err)
		require.Equal(t, weft.RunCompleted, run.Status)
		require.Equal(t, 1, deliveries, "webhook must not be re-delivered on retry")
		require.Equal(t, "deploy starting", run.Context["v"].(map[string]any)["messageContent"])
	}
}

func TestBuiltins_CoverEveryRunnableNodeType(t *testing.T) {
	covered := map[api.NodeType]bool{}
	for _, ex := range weft.Builtins() {
		require.False(t, covered[ex.Type()], "duplicate executor for %s", ex.Type())
		covered[ex.Type()] = true
	}

	for _, nt := range []api.NodeType{
		api.NodeTypeManualTrigger,
		api.NodeTypeGoogleFormTrigger,
		api.NodeTypeStripeTrigger,
		api.NodeTypeHTTPRequest,
		api.NodeTypeOpenAI,
		api.NodeTypeAnthropic,
		api.NodeTypeGemini,
		api.NodeTypeDiscord,
		api.NodeTypeSlack,
	} {
		require.True(t, covered[nt], "no builtin executor for %s", nt)
	}
	require.False(t, covered[api.NodeTypeInitial], "INITIAL must stay unregistered")
}
