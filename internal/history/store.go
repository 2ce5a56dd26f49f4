package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cigate/internal/check"
)

// Entry is one recorded gate run.
type Entry struct {
	RunID        string
	Passed       bool
	FormatPassed bool
	LintPassed   bool
	TestPassed   bool
	RecordedAt   time.Time
}

func FromOutcome(runID string, results []check.Result, passed bool) Entry {
	e := Entry{RunID: runID, Passed: passed, RecordedAt: time.Now().UTC()}
	for _, r := range results {
		switch r.Kind {
		case check.Format:
			e.FormatPassed = r.Passed
		case check.Lint:
			e.LintPassed = r.Passed
		case check.Test:
			e.TestPassed = r.Passed
		}
	}
	return e
}

// Store persists gate verdicts so the daemon can list past runs. It is
// optional everywhere; a nil Store disables recording.
type Store struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewWithDB wraps an existing handle, mainly for tests.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS gate_runs (
    id SERIAL PRIMARY KEY,
    run_id TEXT NOT NULL UNIQUE,
    passed BOOLEAN NOT NULL,
    format_passed BOOLEAN NOT NULL,
    lint_passed BOOLEAN NOT NULL,
    test_passed BOOLEAN NOT NULL,
    recorded_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
`)
	})
	return s.schemaErr
}

func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	if strings.TrimSpace(e.RunID) == "" {
		return fmt.Errorf("run_id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO gate_runs (run_id, passed, format_passed, lint_passed, test_passed, recorded_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (run_id)
DO UPDATE SET passed=EXCLUDED.passed, format_passed=EXCLUDED.format_passed,
              lint_passed=EXCLUDED.lint_passed, test_passed=EXCLUDED.test_passed,
              recorded_at=EXCLUDED.recorded_at
`, e.RunID, e.Passed, e.FormatPassed, e.LintPassed, e.TestPassed, e.RecordedAt)
	return err
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT run_id, passed, format_passed, lint_passed, test_passed, recorded_at
FROM gate_runs ORDER BY recorded_at DESC LIMIT $1
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RunID, &e.Passed, &e.FormatPassed, &e.LintPassed, &e.TestPassed, &e.RecordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
