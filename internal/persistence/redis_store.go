package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/weftlabs/weft/pkg/api"
)

// RedisStore implements RunStore and StepStore on Redis. Key structure:
//
//	<prefix>run:<id>                => JSON-encoded redisRunPayload
//	<prefix>idx:all                 => LIST of run IDs in save order
//	<prefix>step:<runID>:<stepKey>  => step result (SET NX for first-writer-wins)
//
// Workflow definitions and credentials stay in a relational store; Redis
// carries the hot run/step state that replays and dashboards read.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var (
	_ RunStore  = (*RedisStore)(nil)
	_ StepStore = (*RedisStore)(nil)
)

type redisRunPayload struct {
	ID             string                    `json:"id"`
	WorkflowID     string                    `json:"workflowId"`
	UserID         string                    `json:"userId"`
	Status         string                    `json:"status"`
	CurrentNode    int                       `json:"currentNode"`
	TriggerPayload map[string]any            `json:"triggerPayload,omitempty"`
	Context        api.Context               `json:"context,omitempty"`
	NodeStatuses   map[string]api.NodeStatus `json:"nodeStatuses,omitempty"`
	Error          string                    `json:"error,omitempty"`
}

// NewRedisStore creates a RedisStore. prefix is optional but recommended
// (e.g. "weft:").
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "weft:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) keyRun(id string) string { return s.prefix + "run:" + id }

func (s *RedisStore) keyAll() string { return s.prefix + "idx:all" }

func (s *RedisStore) keyStep(runID, stepKey string) string {
	return s.prefix + "step:" + runID + ":" + stepKey
}

func encodeRedisRun(run *api.Run) ([]byte, error) {
	payload := redisRunPayload{
		ID:             run.ID,
		WorkflowID:     run.WorkflowID,
		UserID:         run.UserID,
		Status:         string(run.Status),
		CurrentNode:    run.CurrentNode,
		TriggerPayload: run.TriggerPayload,
		Context:        run.Context,
		NodeStatuses:   run.NodeStatuses,
	}
	if run.Err != nil {
		payload.Error = run.Err.Error()
	}
	return json.Marshal(payload)
}

func decodeRedisRun(data []byte) (*api.Run, error) {
	if len(data) == 0 {
		return nil, ErrRunNotFound
	}
	var payload redisRunPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	run := &api.Run{
		ID:             payload.ID,
		WorkflowID:     payload.WorkflowID,
		UserID:         payload.UserID,
		Status:         api.RunStatus(payload.Status),
		CurrentNode:    payload.CurrentNode,
		TriggerPayload: payload.TriggerPayload,
		Context:        payload.Context,
		NodeStatuses:   payload.NodeStatuses,
	}
	if payload.Error != "" {
		run.Err = errors.New(payload.Error)
	}
	return run, nil
}

func (s *RedisStore) SaveRun(ctx context.Context, run *api.Run) error {
	data, err := encodeRedisRun(run)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.keyRun(run.ID), data, 0)
	pipe.RPush(ctx, s.keyAll(), run.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) UpdateRun(ctx context.Context, run *api.Run) error {
	exists, err := s.client.Exists(ctx, s.keyRun(run.ID)).Result()
	if err != nil {
		return err
	}
	if exists == 0 {
		return ErrRunNotFound
	}
	data, err := encodeRedisRun(run)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyRun(run.ID), data, 0).Err()
}

func (s *RedisStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	data, err := s.client.Get(ctx, s.keyRun(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return decodeRedisRun(data)
}

func (s *RedisStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	ids, err := s.client.LRange(ctx, s.keyAll(), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	var runs []*api.Run
	for _, id := range ids {
		run, err := s.GetRun(ctx, id)
		if err != nil {
			if errors.Is(err, ErrRunNotFound) {
				continue
			}
			return nil, err
		}
		if filter.WorkflowID != "" && run.WorkflowID != filter.WorkflowID {
			continue
		}
		if filter.Status != "" && run.Status != filter.Status {
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (s *RedisStore) SaveStep(ctx context.Context, runID, stepKey string, rec StepRecord) error {
	// SET NX: the first writer wins, later writers are no-ops, matching the
	// at-most-once step contract.
	return s.client.SetNX(ctx, s.keyStep(runID, stepKey), rec.Result, 0).Err()
}

func (s *RedisStore) GetStep(ctx context.Context, runID, stepKey string) (StepRecord, bool, error) {
	data, err := s.client.Get(ctx, s.keyStep(runID, stepKey)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return StepRecord{}, false, nil
		}
		return StepRecord{}, false, err
	}
	return StepRecord{Result: data}, true, nil
}
