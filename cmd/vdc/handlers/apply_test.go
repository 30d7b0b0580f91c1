package handlers

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/ledger"
	"github.com/lpouillo/google-dc-g5k/internal/logging"
	"github.com/lpouillo/google-dc-g5k/internal/orchestration"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	vdctest "github.com/lpouillo/google-dc-g5k/internal/testing"
)

type runnerFunc func(ctx context.Context) (*orchestration.Result, error)

func (f runnerFunc) Run(ctx context.Context) (*orchestration.Result, error) { return f(ctx) }

type nopCloser struct{ closed *bool }

func (c nopCloser) Close() error {
	*c.closed = true
	return nil
}

// stubApply wires loadConfig to cfg and services to mocks, and records
// what reaches the runner.
func stubApply(t *testing.T, cfg *config.Config) (*config.Config, *orchestration.Options, *bool) {
	t.Helper()
	saveAndRestoreFactories(t)
	captureOutput(t)

	loadConfig = func(string) (*config.Config, string, error) { return cfg, "vdc.yaml", nil }
	closed := false
	fakeServices := func(context.Context, *config.Config, logr.Logger) (provisioning.Services, io.Closer, error) {
		return provisioning.Services{}, nopCloser{&closed}, nil
	}
	newServices = fakeServices
	newSimServices = func(context.Context, *config.Config, logr.Logger) (provisioning.Services, io.Closer, error) {
		t.Fatal("simulated services used for a real run")
		return provisioning.Services{}, nil, nil
	}

	var gotCfg config.Config
	var gotOpts orchestration.Options
	newRunner = func(c *config.Config, _ provisioning.Services, o orchestration.Options) Runner {
		gotCfg, gotOpts = *c, o
		return runnerFunc(func(context.Context) (*orchestration.Result, error) {
			return &orchestration.Result{}, nil
		})
	}
	return &gotCfg, &gotOpts, &closed
}

func TestApply_FlagOverrides(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().Build()
	got, _, closed := stubApply(t, cfg)

	err := Apply(context.Background(), ApplyOptions{
		Site:          "rennes",
		PhysicalNodes: 3,
		VirtualNodes:  30,
		Walltime:      "4:00:00",
		JobName:       "exp42",
		Output:        "out.list",
		BatchSize:     20,
		Verbose:       true,
	})
	require.NoError(t, err)

	assert.Equal(t, "rennes", got.Site)
	assert.Equal(t, 3, got.PhysicalNodes)
	assert.Equal(t, 30, got.VirtualNodes)
	assert.Equal(t, "4:00:00", got.Walltime)
	assert.Equal(t, "exp42", got.JobName)
	assert.Equal(t, "out.list", got.Output)
	assert.Equal(t, 20, got.BatchSize)
	assert.Equal(t, logging.Verbose, got.Verbosity)
	assert.True(t, *closed)
}

func TestApply_ZeroFlagsKeepConfig(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().WithSite("lyon").WithNodes(5, 50).Build()
	got, _, _ := stubApply(t, cfg)

	require.NoError(t, Apply(context.Background(), ApplyOptions{Quiet: true, Verbose: true}))

	assert.Equal(t, "lyon", got.Site)
	assert.Equal(t, 5, got.PhysicalNodes)
	assert.Equal(t, 50, got.VirtualNodes)
	assert.Equal(t, logging.Quiet, got.Verbosity)
}

func TestApply_Simulate(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().Build()
	stubApply(t, cfg)
	used, closed := false, false
	newSimServices = func(context.Context, *config.Config, logr.Logger) (provisioning.Services, io.Closer, error) {
		used = true
		return provisioning.Services{}, nopCloser{&closed}, nil
	}

	require.NoError(t, Apply(context.Background(), ApplyOptions{Simulate: true}))
	assert.True(t, used)
	assert.True(t, closed)
}

func TestApply_ConfigError(t *testing.T) {
	saveAndRestoreFactories(t)
	loadConfig = func(string) (*config.Config, string, error) { return nil, "", errors.New("bad yaml") }

	err := Apply(context.Background(), ApplyOptions{ConfigPath: "broken.yaml"})
	assert.EqualError(t, err, "bad yaml")
}

func TestApply_ServicesError(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().Build()
	stubApply(t, cfg)
	newServices = func(context.Context, *config.Config, logr.Logger) (provisioning.Services, io.Closer, error) {
		return provisioning.Services{}, nil, errors.New("failed to create SSH gateway: no key")
	}

	err := Apply(context.Background(), ApplyOptions{})
	assert.ErrorContains(t, err, "no key")
}

func TestApply_OptionalCollaborators(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().WithLedger(filepath.Join(t.TempDir(), "runs.db")).Build()
	cfg.Metrics.File = filepath.Join(t.TempDir(), "vdc.prom")
	cfg.Publish.Bucket = "testbed"
	_, opts, _ := stubApply(t, cfg)
	newPublisher = func(*config.Config) (orchestration.ArtifactPublisher, error) { return nil, nil }

	require.NoError(t, Apply(context.Background(), ApplyOptions{}))

	assert.NotNil(t, opts.Ledger)
	assert.NotNil(t, opts.Metrics)
	assert.NotNil(t, opts.Printer)
}

func TestApply_LedgerFailureIsNotFatal(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().WithLedger("/nonexistent/runs.db").Build()
	_, opts, _ := stubApply(t, cfg)
	openLedger = func(context.Context, string) (*ledger.Ledger, error) { return nil, errors.New("read-only") }

	require.NoError(t, Apply(context.Background(), ApplyOptions{}))
	assert.Nil(t, opts.Ledger)
}

func TestApply_PublisherError(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().Build()
	cfg.Publish.Bucket = "testbed"
	stubApply(t, cfg)
	newPublisher = func(*config.Config) (orchestration.ArtifactPublisher, error) { return nil, errors.New("no region") }

	err := Apply(context.Background(), ApplyOptions{})
	assert.ErrorContains(t, err, "failed to create publisher: no region")
}

func TestApply_RunnerError(t *testing.T) {
	cfg := vdctest.NewConfigBuilder().Build()
	stubApply(t, cfg)
	newRunner = func(*config.Config, provisioning.Services, orchestration.Options) Runner {
		return runnerFunc(func(context.Context) (*orchestration.Result, error) {
			return &orchestration.Result{FailedPhase: "fabric"}, &provisioning.StageError{Phase: "fabric", Err: provisioning.ErrNoDeployedHosts}
		})
	}

	err := Apply(context.Background(), ApplyOptions{})
	assert.ErrorIs(t, err, provisioning.ErrNoDeployedHosts)
}

func TestApply_SimulatedEndToEnd(t *testing.T) {
	saveAndRestoreFactories(t)
	_, errOut := captureOutput(t)
	t.Setenv(config.EnvG5KUser, "")
	out := filepath.Join(t.TempDir(), "nodes.list")
	cfg := vdctest.NewConfigBuilder().WithNodes(2, 6).WithOutput(out).Build()
	loadConfig = func(string) (*config.Config, string, error) { return cfg, "", nil }

	require.NoError(t, Apply(context.Background(), ApplyOptions{Simulate: true}))

	assert.FileExists(t, out)
	assert.Contains(t, errOut.String(), "==> Create virtual nodes")
	assert.Contains(t, errOut.String(), "[OK] Distem is ready to be used on")
}
