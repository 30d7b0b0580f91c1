package orchestration

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/ledger"
	"github.com/lpouillo/google-dc-g5k/internal/metrics"
	"github.com/lpouillo/google-dc-g5k/internal/nodelist"
	"github.com/lpouillo/google-dc-g5k/internal/platform/s3"
	"github.com/lpouillo/google-dc-g5k/internal/platform/sim"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	vdctest "github.com/lpouillo/google-dc-g5k/internal/testing"
	"github.com/lpouillo/google-dc-g5k/internal/ui"
)

func fastTimeouts() *config.Timeouts {
	return &config.Timeouts{
		Reservation:       5 * time.Second,
		Deploy:            5 * time.Second,
		Command:           5 * time.Second,
		PollInterval:      time.Millisecond,
		PlanningHorizon:   72 * time.Hour,
		RetryMaxAttempts:  1,
		RetryInitialDelay: time.Millisecond,
	}
}

func simConfig(t *testing.T) *config.Config {
	t.Helper()
	return vdctest.NewConfigBuilder().
		WithNodes(2, 5).
		WithBlacklist("sagittaire").
		WithOutput(filepath.Join(t.TempDir(), "nodes.list")).
		WithSimulate(true).
		Build()
}

func newTestbed(t *testing.T, mutate ...func(*sim.Options)) *sim.Testbed {
	t.Helper()
	t.Setenv(config.EnvG5KUser, "")
	opts := sim.DefaultOptions("nancy")
	for _, m := range mutate {
		m(&opts)
	}
	tb := sim.New(opts)
	require.NoError(t, tb.Start())
	t.Cleanup(func() { _ = tb.Close() })
	return tb
}

type mockRunStore struct {
	mock.Mock
}

func (m *mockRunStore) Start(ctx context.Context, r ledger.Run) (int64, error) {
	args := m.Called(ctx, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockRunStore) Finish(ctx context.Context, id int64, r ledger.Run) error {
	return m.Called(ctx, id, r).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, artifactPath string, manifest s3.Manifest) (string, error) {
	args := m.Called(ctx, artifactPath, manifest)
	return args.String(0), args.Error(1)
}

func TestRun_Success(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)
	var out bytes.Buffer

	d := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{
		Printer:  ui.NewPlainPrinter(&out),
		Timeouts: fastTimeouts(),
	})
	res, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.NotZero(t, res.JobID)
	assert.False(t, res.Reused)
	assert.Equal(t, "10.144.0.0/22", res.Subnet)
	assert.Equal(t, tb.Coordinator(), res.Coordinator)
	assert.Equal(t, 2, res.Deployed)
	assert.Equal(t, 5, res.Requested)
	assert.Equal(t, 5, res.Running)
	assert.Empty(t, res.FailedPhase)

	records, err := nodelist.Read(cfg.Output)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "node-1", records[0].Name)
	assert.Equal(t, "node-5", records[4].Name)

	assert.Contains(t, out.String(), "==> Retrieve Grid'5000 resources\n")
	assert.Contains(t, out.String(), "==> Configure distem on physical hosts\n")
	assert.Contains(t, out.String(), "==> Create virtual nodes\n")
	assert.Contains(t, out.String(), "[OK] Distem is ready to be used on "+res.Coordinator)
}

func TestRun_SecondRunReusesJob(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)

	first, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Timeouts: fastTimeouts()}).Run(context.Background())
	require.NoError(t, err)

	// The fabric of the first run is replaced by bootstrapping again.
	second, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Timeouts: fastTimeouts()}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, second.Reused)
	assert.Equal(t, first.JobID, second.JobID)
	assert.Len(t, tb.Submitted(), 1)
}

func TestRun_FailedPhase(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t, func(o *sim.Options) {
		o.FailDeploy = []string{"graphene-1", "graphene-2"}
	})
	var out bytes.Buffer

	res, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{
		Printer:  ui.NewPlainPrinter(&out),
		Timeouts: fastTimeouts(),
	}).Run(context.Background())

	require.ErrorIs(t, err, provisioning.ErrNoDeployedHosts)
	assert.Equal(t, "fabric", res.FailedPhase)
	assert.NotZero(t, res.JobID)
	assert.Contains(t, out.String(), "[!!] fabric phase failed")
	assert.NoFileExists(t, cfg.Output)
}

func TestRun_ValidationFailure(t *testing.T) {
	cfg := simConfig(t)
	cfg.VirtualNodes = 0
	tb := newTestbed(t)

	res, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Timeouts: fastTimeouts()}).Run(context.Background())

	require.Error(t, err)
	assert.Equal(t, "validation", res.FailedPhase)
	assert.Empty(t, tb.Submitted())
}

func TestRun_RecordsLedger(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)
	l, err := ledger.Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	res, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Ledger: l, Timeouts: fastTimeouts()}).Run(context.Background())
	require.NoError(t, err)

	runs, err := l.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.StatusSucceeded, runs[0].Status)
	assert.Equal(t, cfg.JobName, runs[0].Label)
	assert.Equal(t, res.JobID, runs[0].JobID)
	assert.Equal(t, 5, runs[0].Running)
	assert.Equal(t, cfg.Output, runs[0].Artifact)
	assert.False(t, runs[0].FinishedAt.IsZero())
}

func TestRun_LedgerErrorsAreNotFatal(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)
	store := new(mockRunStore)
	store.On("Start", mock.Anything, mock.Anything).Return(int64(7), nil)
	store.On("Finish", mock.Anything, int64(7), mock.MatchedBy(func(r ledger.Run) bool {
		return r.Status == ledger.StatusSucceeded
	})).Return(errors.New("disk full"))

	_, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Ledger: store, Timeouts: fastTimeouts()}).Run(context.Background())

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestRun_LedgerStartFailureSkipsFinish(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)
	store := new(mockRunStore)
	store.On("Start", mock.Anything, mock.Anything).Return(int64(0), errors.New("locked"))

	_, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Ledger: store, Timeouts: fastTimeouts()}).Run(context.Background())

	require.NoError(t, err)
	store.AssertNotCalled(t, "Finish", mock.Anything, mock.Anything, mock.Anything)
}

func TestRun_Publish(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, cfg.Output, mock.MatchedBy(func(m s3.Manifest) bool {
		return m.Label == cfg.JobName && m.Site == "nancy" && m.Requested == 5 && m.Running == 5
	})).Return("s3://bucket/GoogleDataCenter/nodes.list", nil)

	res, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Publisher: pub, Timeouts: fastTimeouts()}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/GoogleDataCenter/nodes.list", res.PublishedURI)
	pub.AssertExpectations(t)
}

func TestRun_PublishFailure(t *testing.T) {
	cfg := simConfig(t)
	tb := newTestbed(t)
	pub := new(mockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("access denied"))

	res, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{Publisher: pub, Timeouts: fastTimeouts()}).Run(context.Background())

	require.ErrorContains(t, err, "failed to publish node list: access denied")
	assert.Empty(t, res.FailedPhase)
	assert.FileExists(t, cfg.Output)
}

func TestRun_MetricsTextfile(t *testing.T) {
	cfg := simConfig(t)
	cfg.Metrics.File = filepath.Join(t.TempDir(), "vdc.prom")
	tb := newTestbed(t)

	_, err := NewDriver(cfg, tb.Services(cfg.Distem.Port), Options{
		Metrics:  metrics.NewRecorder(),
		Timeouts: fastTimeouts(),
		Log:      logr.Discard(),
	}).Run(context.Background())
	require.NoError(t, err)

	data, err := os.ReadFile(cfg.Metrics.File)
	require.NoError(t, err)
	assert.Contains(t, string(data), `vdc_vnode_commands_total{result="succeeded"} 5`)
	assert.Contains(t, string(data), "vdc_vnodes_running 5")
}

func TestBannerObserver_KeepsBannerAcrossWithFields(t *testing.T) {
	var out bytes.Buffer
	obs := &bannerObserver{
		Observer: provisioning.NewLogrObserver(logr.Discard()),
		printer:  ui.NewPlainPrinter(&out),
	}

	provisioning.LogPhaseStart(obs.WithFields(map[string]string{"step": "2/4"}), "reservation")
	provisioning.LogPhaseStart(obs, "validation")

	assert.Equal(t, "==> Retrieve Grid'5000 resources\n", out.String())
}
