package persistence

import (
	"context"
	"sync"

	"github.com/weftlabs/weft/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of every store
// interface, backed by maps. Non-durable; intended for tests and
// development.
type InMemoryStore struct {
	mu          sync.RWMutex
	workflows   map[string]api.Workflow
	runs        map[string]*api.Run
	runOrder    []string
	steps       map[string]StepRecord
	credentials map[string]StoredCredential
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workflows:   make(map[string]api.Workflow),
		runs:        make(map[string]*api.Run),
		steps:       make(map[string]StepRecord),
		credentials: make(map[string]StoredCredential),
	}
}

var (
	_ WorkflowStore   = (*InMemoryStore)(nil)
	_ RunStore        = (*InMemoryStore)(nil)
	_ StepStore       = (*InMemoryStore)(nil)
	_ CredentialStore = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) SaveWorkflow(ctx context.Context, wf api.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[wf.ID] = wf
	return nil
}

func (s *InMemoryStore) GetWorkflow(ctx context.Context, id string) (api.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return api.Workflow{}, ErrWorkflowNotFound
	}
	return wf, nil
}

func (s *InMemoryStore) SaveRun(ctx context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		s.runOrder = append(s.runOrder, run.ID)
	}
	s.runs[run.ID] = snapshotRun(run)
	return nil
}

func (s *InMemoryStore) UpdateRun(ctx context.Context, run *api.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return ErrRunNotFound
	}
	s.runs[run.ID] = snapshotRun(run)
	return nil
}

func (s *InMemoryStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return snapshotRun(run), nil
}

func (s *InMemoryStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Run
	for _, id := range s.runOrder {
		run := s.runs[id]
		if filter.WorkflowID != "" && run.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		result = append(result, snapshotRun(run))
	}
	return result, nil
}

func (s *InMemoryStore) SaveStep(ctx context.Context, runID, stepKey string, rec StepRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First writer wins, matching the SQLite store's conflict behavior.
	key := runID + "\x00" + stepKey
	if _, ok := s.steps[key]; !ok {
		s.steps[key] = rec
	}
	return nil
}

func (s *InMemoryStore) GetStep(ctx context.Context, runID, stepKey string) (StepRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.steps[runID+"\x00"+stepKey]
	return rec, ok, nil
}

func (s *InMemoryStore) SaveCredential(ctx context.Context, cred StoredCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.credentials[cred.ID] = cred
	return nil
}

func (s *InMemoryStore) GetCredential(ctx context.Context, id, userID string) (StoredCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.credentials[id]
	if !ok || cred.UserID != userID {
		return StoredCredential{}, ErrCredentialNotFound
	}
	return cred, nil
}

// snapshotRun deep-copies the mutable fields so callers cannot observe
// later in-place mutations through a shared pointer.
func snapshotRun(run *api.Run) *api.Run {
	cp := *run
	cp.Context = run.Context.Clone()
	if run.NodeStatuses != nil {
		cp.NodeStatuses = make(map[string]api.NodeStatus, len(run.NodeStatuses))
		for k, v := range run.NodeStatuses {
			cp.NodeStatuses[k] = v
		}
	}
	return &cp
}
