package handlers

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/ledger"
	vdctest "github.com/lpouillo/google-dc-g5k/internal/testing"
)

func TestRuns_NoLedger(t *testing.T) {
	saveAndRestoreFactories(t)
	cfg := vdctest.NewConfigBuilder().Build()
	loadConfig = func(string) (*config.Config, string, error) { return cfg, "", nil }

	err := Runs(context.Background(), "", 10)
	assert.ErrorIs(t, err, errNoLedger)
}

func TestRuns_Empty(t *testing.T) {
	saveAndRestoreFactories(t)
	out, _ := captureOutput(t)
	cfg := vdctest.NewConfigBuilder().WithLedger(filepath.Join(t.TempDir(), "runs.db")).Build()
	loadConfig = func(string) (*config.Config, string, error) { return cfg, "", nil }

	require.NoError(t, Runs(context.Background(), "", 10))
	assert.Equal(t, "No runs recorded yet.\n", out.String())
}

func TestRuns_Table(t *testing.T) {
	saveAndRestoreFactories(t)
	out, _ := captureOutput(t)
	path := filepath.Join(t.TempDir(), "runs.db")
	cfg := vdctest.NewConfigBuilder().WithLedger(path).Build()
	loadConfig = func(string) (*config.Config, string, error) { return cfg, "", nil }

	ctx := context.Background()
	l, err := ledger.Open(ctx, path)
	require.NoError(t, err)
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	id, err := l.Start(ctx, ledger.Run{Label: "GoogleDataCenter", Site: "nancy", PhysicalNodes: 10, VirtualNodes: 100, StartedAt: start})
	require.NoError(t, err)
	require.NoError(t, l.Finish(ctx, id, ledger.Run{
		JobID: 1234, Status: ledger.StatusFailed, FailedPhase: "fabric", FinishedAt: start.Add(90 * time.Second),
	}))
	require.NoError(t, l.Close())

	require.NoError(t, Runs(ctx, "", 10))

	assert.Contains(t, out.String(), "GoogleDataCenter")
	assert.Contains(t, out.String(), "failed (fabric)")
	assert.Contains(t, out.String(), "1234")
	assert.Contains(t, out.String(), "0/100")
	assert.Contains(t, out.String(), "1m30s")
}

func TestRunRows_Running(t *testing.T) {
	rows := runRows([]ledger.Run{{ID: 3, Label: "x", Status: ledger.StatusRunning, VirtualNodes: 4}})

	require.Len(t, rows, 1)
	assert.Equal(t, "3", rows[0][0])
	assert.Equal(t, "-", rows[0][3])
	assert.Equal(t, "running", rows[0][4])
	assert.Equal(t, "-", rows[0][8])
}
