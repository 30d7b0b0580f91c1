package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
)

// Migration is one schema change, applied inside a transaction.
type Migration struct {
	Version int64
	Name    string
	Up      func(*sql.Tx) error
}

// migrations lists the schema history in order.
var migrations = []Migration{
	{
		Version: 1,
		Name:    "create_runs_table",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
				CREATE TABLE runs (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					label TEXT NOT NULL,
					site TEXT NOT NULL,
					job_id INTEGER NOT NULL DEFAULT 0,
					status TEXT NOT NULL,
					failed_phase TEXT NOT NULL DEFAULT '',
					error TEXT NOT NULL DEFAULT '',
					coordinator TEXT NOT NULL DEFAULT '',
					subnet TEXT NOT NULL DEFAULT '',
					physical_nodes INTEGER NOT NULL,
					virtual_nodes INTEGER NOT NULL,
					running_vnodes INTEGER NOT NULL DEFAULT 0,
					artifact TEXT NOT NULL DEFAULT '',
					started_at DATETIME NOT NULL,
					finished_at DATETIME
				)
			`)
			return err
		},
	},
	{
		Version: 2,
		Name:    "index_runs_by_label",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE INDEX idx_runs_label_started ON runs (label, started_at)`)
			return err
		},
	},
}

// Migrator applies pending migrations and tracks them in schema_migrations.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator creates a migrator for db with the given migrations.
func NewMigrator(db *sql.DB, ms []Migration) *Migrator {
	sorted := slices.Clone(ms)
	slices.SortFunc(sorted, func(a, b Migration) int { return int(a.Version - b.Version) })
	return &Migrator{db: db, migrations: sorted}
}

// Run applies every migration newer than the current version.
func (m *Migrator) Run(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	current, err := m.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current version: %w", err)
	}

	for _, mig := range m.migrations {
		if mig.Version <= current {
			continue
		}
		if err := m.apply(ctx, mig); err != nil {
			return fmt.Errorf("failed to run migration %d (%s): %w", mig.Version, mig.Name, err)
		}
	}
	return nil
}

// Version returns the highest applied migration version, 0 when none.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := mig.Up(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES (?, ?)", mig.Version, mig.Name); err != nil {
		return err
	}
	return tx.Commit()
}
