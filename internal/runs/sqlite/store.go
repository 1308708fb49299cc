package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dvloznov/finance-reports/internal/runs"
)

const schema = `CREATE TABLE IF NOT EXISTS "runs" (
	"run_id" TEXT PRIMARY KEY,
	"input_path" TEXT NOT NULL,
	"output_dir" TEXT NOT NULL,
	"status" TEXT NOT NULL,
	"row_count" INTEGER NOT NULL DEFAULT 0,
	"filtered" INTEGER NOT NULL DEFAULT 0,
	"views" TEXT NOT NULL DEFAULT '[]',
	"started_at" TEXT NOT NULL,
	"finished_at" TEXT,
	"error" TEXT NOT NULL DEFAULT ''
)`

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const indexStartedAt = `CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`

// Store is a runs.Store backed by a SQLite file.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("Open: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("Open: sqlite: %w", err)
	}
	// a single connection serialises writers
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{schema, indexStartedAt} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("Open: migrate: %w", err)
		}
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or replaces a run.
func (s *Store) SaveRun(ctx context.Context, run *runs.Run) error {
	if run.RunID == "" {
		return fmt.Errorf("run ID is required")
	}

	views, err := json.Marshal(run.Views)
	if err != nil {
		return fmt.Errorf("SaveRun: encode views: %w", err)
	}

	var finished sql.NullString
	if run.FinishedAt != nil {
		finished = sql.NullString{String: run.FinishedAt.UTC().Format(timeLayout), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO runs
		(run_id, input_path, output_dir, status, row_count, filtered, views, started_at, finished_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			input_path = excluded.input_path,
			output_dir = excluded.output_dir,
			status = excluded.status,
			row_count = excluded.row_count,
			filtered = excluded.filtered,
			views = excluded.views,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			error = excluded.error`,
		run.RunID, run.InputPath, run.OutputDir, string(run.Status), run.Rows, run.Filtered,
		string(views), run.StartedAt.UTC().Format(timeLayout), finished, run.Error,
	)
	if err != nil {
		return fmt.Errorf("SaveRun: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (*runs.Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, input_path, output_dir, status, row_count, filtered,
		views, started_at, finished_at, error FROM runs WHERE run_id = ?`, runID)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", runs.ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("GetRun: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(ctx context.Context, filter runs.Filter) ([]*runs.Run, error) {
	q := `SELECT run_id, input_path, output_dir, status, row_count, filtered,
		views, started_at, finished_at, error FROM runs`
	var args []any
	if filter.Status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	q += ` ORDER BY started_at DESC, run_id ASC`
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			q += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	} else if filter.Offset > 0 {
		q += ` LIMIT -1 OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	defer rows.Close()

	result := []*runs.Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRuns: %w", err)
		}
		result = append(result, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRuns: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*runs.Run, error) {
	var (
		run      runs.Run
		status   string
		views    string
		started  string
		finished sql.NullString
	)
	if err := sc.Scan(&run.RunID, &run.InputPath, &run.OutputDir, &status, &run.Rows, &run.Filtered,
		&views, &started, &finished, &run.Error); err != nil {
		return nil, err
	}

	run.Status = runs.Status(status)
	if err := json.Unmarshal([]byte(views), &run.Views); err != nil {
		return nil, fmt.Errorf("decode views of %s: %w", run.RunID, err)
	}

	t, err := time.Parse(timeLayout, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at of %s: %w", run.RunID, err)
	}
	run.StartedAt = t

	if finished.Valid {
		ft, err := time.Parse(timeLayout, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at of %s: %w", run.RunID, err)
		}
		run.FinishedAt = &ft
	}
	return &run, nil
}

// Ensure Store implements runs.Store.
var _ runs.Store = (*Store)(nil)
