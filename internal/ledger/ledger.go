// Package ledger keeps a local SQLite history of pipeline runs.
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
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// Status is the outcome of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one recorded pipeline execution.
type Run struct {
	ID            int64
	Label         string
	Site          string
	JobID         int64
	Status        Status
	FailedPhase   string
	Error         string
	Coordinator   string
	Subnet        string
	PhysicalNodes int
	VirtualNodes  int
	Running       int
	Artifact      string
	StartedAt     time.Time
	FinishedAt    time.Time // zero while running
}

// Ledger stores runs.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger at path and migrates it. The parent
// directory is created if needed.
func Open(ctx context.Context, path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	// A single connection serializes writers; sqlite allows only one anyway.
	db.SetMaxOpenConns(1)

	if err := NewMigrator(db, migrations).Run(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db}, nil
}

// Close closes the underlying database.
func (l *Ledger) Close() error {
	return l.db.Close()
}

// Start records a new running run and returns its ID.
func (l *Ledger) Start(ctx context.Context, r Run) (int64, error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx, `
		INSERT INTO runs (label, site, status, physical_nodes, virtual_nodes, started_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.Label, r.Site, StatusRunning, r.PhysicalNodes, r.VirtualNodes, r.StartedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to record run: %w", err)
	}
	return res.LastInsertId()
}

// Finish stores the outcome of run id.
func (l *Ledger) Finish(ctx context.Context, id int64, r Run) error {
	if r.FinishedAt.IsZero() {
		r.FinishedAt = time.Now()
	}
	res, err := l.db.ExecContext(ctx, `
		UPDATE runs SET job_id = ?, status = ?, failed_phase = ?, error = ?, coordinator = ?,
			subnet = ?, running_vnodes = ?, artifact = ?, finished_at = ?
		WHERE id = ?`,
		r.JobID, r.Status, r.FailedPhase, r.Error, r.Coordinator,
		r.Subnet, r.Running, r.Artifact, r.FinishedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return nil
}

const selectRuns = `
	SELECT id, label, site, job_id, status, failed_phase, error, coordinator, subnet,
		physical_nodes, virtual_nodes, running_vnodes, artifact, started_at, finished_at
	FROM runs`

// Get returns run id.
func (l *Ledger) Get(ctx context.Context, id int64) (Run, error) {
	r, err := scanRun(l.db.QueryRowContext(ctx, selectRuns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d: %w", id, ErrNotFound)
	}
	return r, err
}

// List returns the most recent runs first. A limit of 0 or less returns all.
func (l *Ledger) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, selectRuns+" ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r        Run
		finished sql.NullTime
	)
	err := s.Scan(&r.ID, &r.Label, &r.Site, &r.JobID, &r.Status, &r.FailedPhase, &r.Error,
		&r.Coordinator, &r.Subnet, &r.PhysicalNodes, &r.VirtualNodes, &r.Running, &r.Artifact,
		&r.StartedAt, &finished)
	if err != nil {
		return Run{}, err
	}
	if finished.Valid {
		r.FinishedAt = finished.Time
	}
	return r, nil
}
