package artifact

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// PostgresStore keeps run artifacts in a single table, upserting on
// (run_id, name). Used when no object store is configured.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS gate_artifacts (
    id SERIAL PRIMARY KEY,
    run_id TEXT NOT NULL,
    name TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(run_id, name)
);
CREATE INDEX IF NOT EXISTS idx_gate_artifacts_run_id ON gate_artifacts(run_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, runID, name string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	runID = strings.TrimSpace(runID)
	name = strings.TrimSpace(name)
	if runID == "" {
		return fmt.Errorf("run_id is required")
	}
	if name == "" {
		return fmt.Errorf("artifact name is required")
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO gate_artifacts (run_id, name, content, size, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (run_id, name)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at
`, runID, name, content, int64(len(content)), time.Now())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, runID, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID = strings.TrimSpace(runID)
	name = strings.TrimSpace(name)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if name == "" {
		return nil, fmt.Errorf("artifact name is required")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	var content []byte
	err := s.db.QueryRowContext(ctx, `SELECT content FROM gate_artifacts WHERE run_id=$1 AND name=$2`, runID, name).Scan(&content)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) List(ctx context.Context, runID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, fmt.Errorf("run_id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM gate_artifacts WHERE run_id=$1 ORDER BY name`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			continue
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

func (s *PostgresStore) GetURL(_ context.Context, _, _ string) (string, error) {
	// Content lives in the row; there is no URL to hand out.
	return "", nil
}
