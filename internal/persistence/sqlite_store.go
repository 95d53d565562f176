package persistence

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/weftlabs/weft/pkg/api"
)

// SQLiteStore implements every store interface on top of a SQLite
// database.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

var (
	_ WorkflowStore   = (*SQLiteStore)(nil)
	_ RunStore        = (*SQLiteStore)(nil)
	_ StepStore       = (*SQLiteStore)(nil)
	_ CredentialStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS workflows (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			definition BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			workflow_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			status TEXT NOT NULL,
			current_node INTEGER NOT NULL,
			trigger_payload BLOB,
			context BLOB,
			node_statuses BLOB,
			error TEXT,
			seq INTEGER
		);
		CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			step_key TEXT NOT NULL,
			result BLOB,
			PRIMARY KEY (run_id, step_key)
		);
		CREATE TABLE IF NOT EXISTS credentials (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			ciphertext BLOB NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) SaveWorkflow(ctx context.Context, wf api.Workflow) error {
	def, err := EncodeValue(wf)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows (id, user_id, name, definition)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			name = excluded.name, definition = excluded.definition`,
		wf.ID, wf.UserID, wf.Name, def,
	)
	return err
}

func (s *SQLiteStore) GetWorkflow(ctx context.Context, id string) (api.Workflow, error) {
	var def []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT definition FROM workflows WHERE id = ?`, id,
	).Scan(&def)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return api.Workflow{}, ErrWorkflowNotFound
		}
		return api.Workflow{}, err
	}
	return DecodeValue[api.Workflow](def)
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *api.Run) error {
	payload, contextBytes, statuses, errStr, err := encodeRunFields(run)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, workflow_id, user_id, status, current_node, trigger_payload, context, node_statuses, error, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM runs))`,
		run.ID, run.WorkflowID, run.UserID, string(run.Status), run.CurrentNode,
		payload, contextBytes, statuses, errStr,
	)
	return err
}

func (s *SQLiteStore) UpdateRun(ctx context.Context, run *api.Run) error {
	payload, contextBytes, statuses, errStr, err := encodeRunFields(run)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET workflow_id = ?, user_id = ?, status = ?, current_node = ?,
			trigger_payload = ?, context = ?, node_statuses = ?, error = ?
		WHERE id = ?`,
		run.WorkflowID, run.UserID, string(run.Status), run.CurrentNode,
		payload, contextBytes, statuses, errStr, run.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*api.Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow_id, user_id, status, current_node, trigger_payload, context, node_statuses, error
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]*api.Run, error) {
	query := `
		SELECT id, workflow_id, user_id, status, current_node, trigger_payload, context, node_statuses, error
		FROM runs`
	var args []any
	var clauses []string

	if filter.WorkflowID != "" {
		clauses = append(clauses, "workflow_id = ?")
		args = append(args, filter.WorkflowID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.Run
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

func (s *SQLiteStore) SaveStep(ctx context.Context, runID, stepKey string, rec StepRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO steps (run_id, step_key, result)
		VALUES (?, ?, ?)
		ON CONFLICT(run_id, step_key) DO NOTHING`,
		runID, stepKey, rec.Result,
	)
	return err
}

func (s *SQLiteStore) GetStep(ctx context.Context, runID, stepKey string) (StepRecord, bool, error) {
	var result []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM steps WHERE run_id = ? AND step_key = ?`,
		runID, stepKey,
	).Scan(&result)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StepRecord{}, false, nil
		}
		return StepRecord{}, false, err
	}
	return StepRecord{Result: result}, true, nil
}

func (s *SQLiteStore) SaveCredential(ctx context.Context, cred StoredCredential) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, user_id, type, ciphertext)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id,
			type = excluded.type, ciphertext = excluded.ciphertext`,
		cred.ID, cred.UserID, string(cred.Type), cred.Ciphertext,
	)
	return err
}

func (s *SQLiteStore) GetCredential(ctx context.Context, id, userID string) (StoredCredential, error) {
	var cred StoredCredential
	var typeStr string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, type, ciphertext FROM credentials
		WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&cred.ID, &cred.UserID, &typeStr, &cred.Ciphertext)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredCredential{}, ErrCredentialNotFound
		}
		return StoredCredential{}, err
	}
	cred.Type = api.CredentialType(typeStr)
	return cred, nil
}

func encodeRunFields(run *api.Run) (payload, contextBytes, statuses []byte, errStr string, err error) {
	payload, err = EncodeValue(run.TriggerPayload)
	if err != nil {
		return nil, nil, nil, "", err
	}
	contextBytes, err = EncodeValue(run.Context)
	if err != nil {
		return nil, nil, nil, "", err
	}
	statuses, err = EncodeValue(run.NodeStatuses)
	if err != nil {
		return nil, nil, nil, "", err
	}
	if run.Err != nil {
		errStr = run.Err.Error()
	}
	return payload, contextBytes, statuses, errStr, nil
}

func scanRun(scan func(dest ...any) error) (*api.Run, error) {
	var (
		run      api.Run
		status   string
		payload  []byte
		ctxBytes []byte
		statuses []byte
		errStr   sql.NullString
	)
	if err := scan(&run.ID, &run.WorkflowID, &run.UserID, &status, &run.CurrentNode,
		&payload, &ctxBytes, &statuses, &errStr); err != nil {
		return nil, err
	}
	run.Status = api.RunStatus(status)

	var err error
	run.TriggerPayload, err = DecodeValue[map[string]any](payload)
	if err != nil {
		return nil, err
	}
	run.Context, err = DecodeValue[api.Context](ctxBytes)
	if err != nil {
		return nil, err
	}
	run.NodeStatuses, err = DecodeValue[map[string]api.NodeStatus](statuses)
	if err != nil {
		return nil, err
	}
	if errStr.Valid && errStr.String != "" {
		run.Err = errors.New(errStr.String)
	}
	return &run, nil
}
