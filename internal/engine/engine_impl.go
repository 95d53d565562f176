// Package engine implements the orchestrator that drives a workflow run
// end to end.
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/internal/credentials"
	"github.com/weftlabs/weft/internal/graph"
	"github.com/weftlabs/weft/internal/persistence"
	"github.com/weftlabs/weft/internal/steps"
	"github.com/weftlabs/weft/pkg/api"
)

// defaultTimeout bounds every outbound side effect unless the caller
// injects a client of their own.
const defaultTimeout = 30 * time.Second

// engineImpl is a synchronous, in-process orchestrator. Nodes within one
// run execute strictly sequentially; the unit of concurrency is the run,
// and engineImpl is safe for concurrent Trigger calls.
type engineImpl struct {
	workflows  persistence.WorkflowStore
	runs       persistence.RunStore
	steps      persistence.StepStore
	creds      *credentials.Manager
	publisher  api.Publisher
	observer   api.Observer
	httpClient *http.Client

	mu        sync.RWMutex
	executors map[api.NodeType]api.Executor
}

// Config describes how to construct an engine. Only used inside this
// package; external callers use the weft package constructors.
type Config struct {
	Persistence persistence.Persistence
	Cipher      credentials.Cipher
	Publisher   api.Publisher
	Observer    api.Observer
	HTTPClient  *http.Client
}

// New creates an Engine from the given configuration.
func New(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	pub := cfg.Publisher
	if pub == nil {
		pub = api.NoopPublisher{}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	ciph := cfg.Cipher
	if ciph == nil {
		ciph = unconfiguredCipher{}
	}
	return &engineImpl{
		workflows:  cfg.Persistence.Workflows,
		runs:       cfg.Persistence.Runs,
		steps:      cfg.Persistence.Steps,
		creds:      credentials.NewManager(cfg.Persistence.Credentials, ciph),
		publisher:  pub,
		observer:   obs,
		httpClient: client,
		executors:  make(map[api.NodeType]api.Executor),
	}
}

// NewInMemory returns an Engine backed entirely by in-memory stores.
func NewInMemory(cfg Config) api.Engine {
	mem := persistence.NewInMemoryStore()
	cfg.Persistence = persistence.Persistence{
		Workflows:   mem,
		Runs:        mem,
		Steps:       mem,
		Credentials: mem,
	}
	return New(cfg)
}

// NewSQLite returns an Engine that persists workflows, runs, steps, and
// credentials in a SQLite database.
func NewSQLite(db *sql.DB, cfg Config) (api.Engine, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	cfg.Persistence = persistence.Persistence{
		Workflows:   store,
		Runs:        store,
		Steps:       store,
		Credentials: store,
	}
	return New(cfg), nil
}

// NewRedis returns an Engine that persists runs and step records in Redis.
// Workflow definitions and credentials remain in-memory.
func NewRedis(client *redis.Client, cfg Config) api.Engine {
	mem := persistence.NewInMemoryStore()
	rds := persistence.NewRedisStore(client, "weft:")
	cfg.Persistence = persistence.Persistence{
		Workflows:   mem,
		Runs:        rds,
		Steps:       rds,
		Credentials: mem,
	}
	return New(cfg)
}

// unconfiguredCipher rejects all credential traffic when no encryption key
// was provided.
type unconfiguredCipher struct{}

func (unconfiguredCipher) Encrypt([]byte) ([]byte, error) {
	return nil, errors.New("no credential encryption key configured")
}

func (unconfiguredCipher) Decrypt([]byte) ([]byte, error) {
	return nil, errors.New("no credential encryption key configured")
}

func (e *engineImpl) RegisterExecutor(ex api.Executor) error {
	if ex == nil {
		return errors.New("executor must not be nil")
	}
	t := ex.Type()
	if t == "" {
		return errors.New("executor node type is required")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.executors[t]; ok {
		return fmt.Errorf("executor already registered for node type %s", t)
	}
	e.executors[t] = ex
	return nil
}

func (e *engineImpl) executorFor(t api.NodeType) (api.Executor, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ex, ok := e.executors[t]
	return ex, ok
}

func (e *engineImpl) SaveWorkflow(ctx context.Context, wf api.Workflow) error {
	if wf.ID == "" {
		return errors.New("workflow id is required")
	}
	manualTriggers := 0
	for _, n := range wf.Nodes {
		if n.Type == api.NodeTypeManualTrigger {
			manualTriggers++
		}
	}
	if manualTriggers > 1 {
		return errors.New("workflow may hold at most one manual trigger")
	}
	return e.workflows.SaveWorkflow(ctx, wf)
}

func (e *engineImpl) GetWorkflow(ctx context.Context, id string) (api.Workflow, error) {
	wf, err := e.workflows.GetWorkflow(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			return api.Workflow{}, fmt.Errorf("unknown workflow: %s", id)
		}
		return api.Workflow{}, err
	}
	return wf, nil
}

func (e *engineImpl) SaveCredential(ctx context.Context, cred api.Credential) error {
	return e.creds.Save(ctx, cred)
}

// Trigger starts a run for the event's workflow and drives it to a
// terminal status. The graph is ordered before any node executes; a cycle
// is surfaced to the caller and no run record is created.
func (e *engineImpl) Trigger(ctx context.Context, ev api.TriggerEvent) (*api.Run, error) {
	wf, err := e.GetWorkflow(ctx, ev.WorkflowID)
	if err != nil {
		return nil, err
	}

	order, err := graph.Order(wf.Nodes, wf.Connections)
	if err != nil {
		return nil, err
	}

	run := &api.Run{
		ID:             uuid.NewString(),
		WorkflowID:     wf.ID,
		UserID:         ev.UserID,
		Status:         api.RunPending,
		TriggerPayload: ev.Payload,
		Context:        api.Context{},
		NodeStatuses:   make(map[string]api.NodeStatus, len(order)),
	}
	for _, n := range order {
		run.NodeStatuses[n.ID] = api.NodeInitial
	}

	e.observer.OnRunStart(ctx, run)

	if err := e.runs.SaveRun(ctx, run); err != nil {
		run.Status = api.RunFailed
		run.Err = err
		e.observer.OnRunFailed(ctx, run, err)
		return run, err
	}

	return e.executeNodes(ctx, run, order)
}

// Retry replays a FAILED run from the first node using its original
// trigger payload. Context is re-derived node by node; steps recorded
// during the failed attempt return their memoized results, so completed
// side effects are not repeated.
func (e *engineImpl) Retry(ctx context.Context, runID string) (*api.Run, error) {
	run, err := e.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.Status != api.RunFailed {
		return nil, fmt.Errorf("cannot retry run %s in status %s", runID, run.Status)
	}

	wf, err := e.GetWorkflow(ctx, run.WorkflowID)
	if err != nil {
		return nil, err
	}
	order, err := graph.Order(wf.Nodes, wf.Connections)
	if err != nil {
		return nil, err
	}

	// Reset runtime fields and replay from the beginning.
	run.Status = api.RunRunning
	run.Err = nil
	run.Context = api.Context{}
	run.CurrentNode = 0
	run.NodeStatuses = make(map[string]api.NodeStatus, len(order))
	for _, n := range order {
		run.NodeStatuses[n.ID] = api.NodeInitial
	}

	if err := e.runs.UpdateRun(ctx, run); err != nil {
		return run, err
	}

	return e.executeNodes(ctx, run, order)
}

func (e *engineImpl) GetRun(ctx context.Context, id string) (*api.Run, error) {
	run, err := e.runs.GetRun(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrRunNotFound) {
			return nil, fmt.Errorf("run not found: %s", id)
		}
		return nil, err
	}
	return run, nil
}

func (e *engineImpl) ListRuns(ctx context.Context, opts api.RunListOptions) ([]*api.Run, error) {
	return e.runs.ListRuns(ctx, persistence.RunFilter{
		WorkflowID: opts.WorkflowID,
		Status:     opts.Status,
	})
}

// executeNodes drives the ordered sequence. Fail-fast: the first node
// error stops the run, remaining nodes are never invoked, and the context
// as of the last successful node is the final observable state.
func (e *engineImpl) executeNodes(ctx context.Context, run *api.Run, order []api.Node) (*api.Run, error) {
	run.Status = api.RunRunning
	_ = e.runs.UpdateRun(ctx, run)

	stepRunner := steps.NewRunner(run.ID, e.steps)

	for i, node := range order {
		// Cancellation is honored between nodes, never inside a step, so an
		// in-flight side effect keeps its idempotency receipt.
		select {
		case <-ctx.Done():
			return e.failRun(ctx, run, ctx.Err())
		default:
		}

		run.CurrentNode = i
		_ = e.runs.UpdateRun(ctx, run)

		newCtx, err := e.runNode(ctx, run, node, i, stepRunner)
		if err != nil {
			return e.failRun(ctx, run, err)
		}

		run.Context = newCtx
		run.NodeStatuses[node.ID] = api.NodeSuccess
		_ = e.runs.UpdateRun(ctx, run)
	}

	run.Status = api.RunCompleted
	run.CurrentNode = len(order)
	_ = e.runs.UpdateRun(ctx, run)

	e.observer.OnRunCompleted(ctx, run)
	return run, nil
}

// runNode wraps one executor invocation in the status protocol: loading is
// published before the executor runs, and exactly one terminal event is
// published when it finishes, whatever the failure path. Centralizing the
// pair here keeps the ordering invariant out of individual executors.
func (e *engineImpl) runNode(
	ctx context.Context,
	run *api.Run,
	node api.Node,
	orderIndex int,
	stepRunner api.StepRunner,
) (api.Context, error) {
	e.publishStatus(ctx, node, api.NodeLoading)
	run.NodeStatuses[node.ID] = api.NodeLoading
	_ = e.runs.UpdateRun(ctx, run)

	start := time.Now()
	e.observer.OnNodeStart(ctx, run, node, orderIndex)

	var (
		newCtx api.Context
		err    error
	)
	if ex, ok := e.executorFor(node.Type); ok {
		newCtx, err = ex.Execute(ctx, api.ExecRequest{
			Node:           node,
			RunID:          run.ID,
			UserID:         run.UserID,
			Context:        run.Context,
			TriggerPayload: run.TriggerPayload,
			Steps:          stepRunner,
			Credentials:    e.creds,
			HTTP:           e.httpClient,
			Publisher:      e.publisher,
		})
	} else {
		err = &api.UnregisteredNodeTypeError{NodeType: node.Type}
	}

	e.observer.OnNodeCompleted(ctx, run, node, orderIndex, err, time.Since(start))

	if err != nil {
		e.publishStatus(ctx, node, api.NodeError)
		run.NodeStatuses[node.ID] = api.NodeError
		return nil, err
	}

	e.publishStatus(ctx, node, api.NodeSuccess)
	return newCtx, nil
}

func (e *engineImpl) failRun(ctx context.Context, run *api.Run, err error) (*api.Run, error) {
	run.Status = api.RunFailed
	run.Err = err
	_ = e.runs.UpdateRun(ctx, run)
	e.observer.OnRunFailed(ctx, run, err)
	return run, err
}

// publishStatus is fire-and-forget: a realtime outage never fails a node.
func (e *engineImpl) publishStatus(ctx context.Context, node api.Node, status api.NodeStatus) {
	_ = e.publisher.Publish(ctx, api.ChannelFor(node.Type), api.TopicStatus, api.StatusEvent{
		NodeID: node.ID,
		Status: status,
	})
}
