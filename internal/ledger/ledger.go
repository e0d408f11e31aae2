// Package ledger keeps an optional SQLite journal of slice runs and the
// GRASS modules they executed. Runs whose temporary rasters were never
// removed can be found and swept later.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a run.
type Status string

const (
	StatusStarted  Status = "started"
	StatusImported Status = "imported"
	StatusFailed   Status = "failed"
	StatusCleaned  Status = "cleaned"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one slice run.
type Run struct {
	ID     string
	Prefix string
	Volume string
	Output string
	Status Status
	Error  string

	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	CleanedAt  time.Time // zero until temporary rasters are removed
}

// Cleaned reports whether the run's temporary rasters were removed.
func (r Run) Cleaned() bool { return !r.CleanedAt.IsZero() }

// Command is one executed module.
type Command struct {
	RunID    string
	Event    string
	Command  string
	ExitCode int
	Duration time.Duration
	At       time.Time
}

// Ledger is the SQLite-backed run journal.
type Ledger struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string
}

// Open opens or creates the ledger at path.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)

	l := &Ledger{db: db, path: path}
	if err := l.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

func (l *Ledger) initialize() error {
	runsTable := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		prefix TEXT NOT NULL,
		volume TEXT NOT NULL,
		output TEXT NOT NULL,
		status TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		cleaned_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);
	CREATE INDEX IF NOT EXISTS idx_runs_cleaned ON runs(cleaned_at);
	`

	commandsTable := `
	CREATE TABLE IF NOT EXISTS commands (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		event TEXT NOT NULL,
		command TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_commands_run ON commands(run_id);
	`

	for _, table := range []string{runsTable, commandsTable} {
		if _, err := l.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database file.
func (l *Ledger) Path() string { return l.path }

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// StartRun records a new run in the started state.
func (l *Ledger) StartRun(ctx context.Context, run Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO runs (id, prefix, volume, output, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Prefix, run.Volume, run.Output, string(StatusStarted), run.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", run.ID, err)
	}
	return nil
}

// SetStatus moves a run to status. Failed and imported runs are finished.
func (l *Ledger) SetStatus(ctx context.Context, id string, status Status, runErr error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	res, err := l.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = COALESCE(finished_at, ?) WHERE id = ?`,
		string(status), msg, time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkCleaned records that the run's temporary rasters are gone. A run that
// did not fail moves to the cleaned state; a failed run keeps its status.
func (l *Ledger) MarkCleaned(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().UnixMilli()
	res, err := l.db.ExecContext(ctx,
		`UPDATE runs
		 SET cleaned_at = ?,
		     finished_at = COALESCE(finished_at, ?),
		     status = CASE WHEN status = ? THEN status ELSE ? END
		 WHERE id = ?`,
		now, now, string(StatusFailed), string(StatusCleaned), id)
	if err != nil {
		return fmt.Errorf("failed to mark run %s cleaned: %w", id, err)
	}
	return requireRow(res, id)
}

// Get returns one run.
func (l *Ledger) Get(ctx context.Context, id string) (*Run, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	row := l.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// Runs lists the most recent runs first. limit <= 0 returns all runs.
func (l *Ledger) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []interface{}{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return l.queryRuns(ctx, query, args...)
}

// Uncleaned lists runs whose temporary rasters may still exist and that
// started before cutoff, oldest first.
func (l *Ledger) Uncleaned(ctx context.Context, cutoff time.Time) ([]Run, error) {
	return l.queryRuns(ctx,
		`SELECT `+runColumns+` FROM runs WHERE cleaned_at IS NULL AND started_at <= ? ORDER BY started_at, id`,
		cutoff.UnixMilli())
}

// RecordCommand appends an executed module to a run.
func (l *Ledger) RecordCommand(ctx context.Context, cmd Command) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cmd.At.IsZero() {
		cmd.At = time.Now()
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO commands (run_id, event, command, exit_code, duration_ms, at) VALUES (?, ?, ?, ?, ?, ?)`,
		cmd.RunID, cmd.Event, cmd.Command, cmd.ExitCode, cmd.Duration.Milliseconds(), cmd.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	return nil
}

// Commands lists the modules a run executed in order.
func (l *Ledger) Commands(ctx context.Context, runID string) ([]Command, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, event, command, exit_code, duration_ms, at FROM commands WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query commands: %w", err)
	}
	defer rows.Close()

	var cmds []Command
	for rows.Next() {
		var c Command
		var durationMs, at int64
		if err := rows.Scan(&c.RunID, &c.Event, &c.Command, &c.ExitCode, &durationMs, &at); err != nil {
			return nil, fmt.Errorf("failed to scan command: %w", err)
		}
		c.Duration = time.Duration(durationMs) * time.Millisecond
		c.At = time.UnixMilli(at)
		cmds = append(cmds, c)
	}
	return cmds, rows.Err()
}

const runColumns = `id, prefix, volume, output, status, error, started_at, finished_at, cleaned_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var status string
	var started int64
	var finished, cleaned sql.NullInt64
	if err := s.Scan(&r.ID, &r.Prefix, &r.Volume, &r.Output, &status, &r.Error, &started, &finished, &cleaned); err != nil {
		return nil, err
	}
	r.Status = Status(status)
	r.StartedAt = time.UnixMilli(started)
	if finished.Valid {
		r.FinishedAt = time.UnixMilli(finished.Int64)
	}
	if cleaned.Valid {
		r.CleanedAt = time.UnixMilli(cleaned.Int64)
	}
	return &r, nil
}

func (l *Ledger) queryRuns(ctx context.Context, query string, args ...interface{}) ([]Run, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
