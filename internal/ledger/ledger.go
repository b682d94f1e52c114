// Package ledger keeps a cross-run SQLite registry of pipeline runs and
// their stage history. Run directories stay authoritative for artifacts; the
// ledger exists so past runs can be listed and inspected without walking the
// output tree. Schema changes bump schemaVersion; users clear the ledger
// database to adopt a new schema.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	_ "embed"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// schema version.
var ErrSchemaMismatch = errors.New("ledger schema version mismatch")

// Run is one registered pipeline run.
type Run struct {
	RunID      string
	SourcePath string
	RunDir     string
	State      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Error      string
}

// StageEvent is one journaled stage outcome.
type StageEvent struct {
	RunID      string
	Stage      string
	Outcome    string
	Detail     string
	RecordedAt time.Time
}

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	var tables int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tables == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("record schema version: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has %d, expected %d", ErrSchemaMismatch, version, schemaVersion)
	}
	return nil
}

// RegisterRun inserts a run or refreshes an existing registration on resume.
func (s *Store) RegisterRun(ctx context.Context, runID, sourcePath, runDir, state string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, source_path, run_dir, state, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(run_id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`,
		runID, sourcePath, runDir, state, now, now)
	if err != nil {
		return fmt.Errorf("register run: %w", err)
	}
	return nil
}

// SetState updates a run's state, optionally recording a terminal error.
func (s *Store) SetState(ctx context.Context, runID, state, runErr string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"UPDATE runs SET state = ?, error = ?, updated_at = ? WHERE run_id = ?",
		state, nullableString(runErr), now, runID)
	if err != nil {
		return fmt.Errorf("set run state: %w", err)
	}
	return nil
}

// AppendStage journals one stage outcome for a run.
func (s *Store) AppendStage(ctx context.Context, runID, stage, outcome, detail string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO stage_events (run_id, stage, outcome, detail, recorded_at) VALUES (?, ?, ?, ?, ?)",
		runID, stage, outcome, nullableString(detail), now)
	if err != nil {
		return fmt.Errorf("append stage event: %w", err)
	}
	return nil
}

// ListRuns returns registered runs, most recently updated first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT run_id, source_path, run_dir, state, created_at, updated_at, error FROM runs ORDER BY updated_at DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun fetches one run by ID.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT run_id, source_path, run_dir, state, created_at, updated_at, error FROM runs WHERE run_id = ?",
		runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s not registered", runID)
	}
	return run, err
}

// StageHistory returns the journaled stage events of a run in order.
func (s *Store) StageHistory(ctx context.Context, runID string) ([]StageEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT run_id, stage, outcome, detail, recorded_at FROM stage_events WHERE run_id = ? ORDER BY id",
		runID)
	if err != nil {
		return nil, fmt.Errorf("stage history: %w", err)
	}
	defer rows.Close()

	var events []StageEvent
	for rows.Next() {
		var event StageEvent
		var detail sql.NullString
		var recorded string
		if err := rows.Scan(&event.RunID, &event.Stage, &event.Outcome, &detail, &recorded); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		event.Detail = detail.String
		event.RecordedAt, _ = time.Parse(time.RFC3339Nano, recorded)
		events = append(events, event)
	}
	return events, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var run Run
	var created, updated string
	var runErr sql.NullString
	if err := row.Scan(&run.RunID, &run.SourcePath, &run.RunDir, &run.State, &created, &updated, &runErr); err != nil {
		return Run{}, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
	run.Error = runErr.String
	return run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
