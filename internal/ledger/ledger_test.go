package ledger

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(context.Background(), filepath.Join(t.TempDir(), "state", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestOpen_Migrates(t *testing.T) {
	t.Parallel()
	l := openTest(t)

	version, err := NewMigrator(l.db, migrations).Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	var count int
	err = l.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='runs'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOpen_Idempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	l, err := Open(ctx, path)
	require.NoError(t, err)
	_, err = l.Start(ctx, Run{Label: "GoogleDataCenter", Site: "nancy", PhysicalNodes: 10, VirtualNodes: 100})
	require.NoError(t, err)
	require.NoError(t, l.Close())

	l, err = Open(ctx, path)
	require.NoError(t, err)
	defer func() { _ = l.Close() }()
	runs, err := l.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestStartFinishGet(t *testing.T) {
	t.Parallel()
	l := openTest(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	id, err := l.Start(ctx, Run{Label: "GoogleDataCenter", Site: "nancy", PhysicalNodes: 10, VirtualNodes: 100, StartedAt: started})
	require.NoError(t, err)

	r, err := l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, r.Status)
	assert.True(t, r.FinishedAt.IsZero())
	assert.True(t, started.Equal(r.StartedAt))

	err = l.Finish(ctx, id, Run{
		JobID:       1234,
		Status:      StatusFailed,
		FailedPhase: "fabric",
		Error:       "no nodes deployed",
		Coordinator: "",
		Subnet:      "10.144.0.0/22",
		FinishedAt:  started.Add(30 * time.Minute),
	})
	require.NoError(t, err)

	r, err = l.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, "fabric", r.FailedPhase)
	assert.Equal(t, int64(1234), r.JobID)
	assert.Equal(t, "10.144.0.0/22", r.Subnet)
	assert.Equal(t, 30*time.Minute, r.FinishedAt.Sub(r.StartedAt))
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()
	l := openTest(t)

	_, err := l.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, l.Finish(context.Background(), 42, Run{Status: StatusSucceeded}), ErrNotFound)
}

func TestList_MostRecentFirst(t *testing.T) {
	t.Parallel()
	l := openTest(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	for i := range 3 {
		_, err := l.Start(ctx, Run{Label: "run", Site: "nancy", StartedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	runs, err := l.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.True(t, base.Add(2*time.Hour).Equal(runs[0].StartedAt))
	assert.True(t, base.Add(time.Hour).Equal(runs[1].StartedAt))

	all, err := l.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMigrator_SkipsApplied(t *testing.T) {
	t.Parallel()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	ctx := context.Background()

	calls := 0
	ms := []Migration{{Version: 1, Name: "count", Up: func(*sql.Tx) error { calls++; return nil }}}
	require.NoError(t, NewMigrator(db, ms).Run(ctx))
	require.NoError(t, NewMigrator(db, ms).Run(ctx))

	assert.Equal(t, 1, calls)
}
