package vnodes

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning/provisioningtest"
	"github.com/lpouillo/google-dc-g5k/internal/remote"
	vdctest "github.com/lpouillo/google-dc-g5k/internal/testing"
)

const coordinator = "graphene-1.nancy.grid5000.fr"

type batchMetrics struct {
	provisioning.NopMetrics
	mu       sync.Mutex
	batches  []int
	commands map[bool]int
	running  int
}

func (m *batchMetrics) ObserveBatch(size int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, size)
}

func (m *batchMetrics) CountVNodeCommand(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands[ok]++
}

func (m *batchMetrics) SetVNodesRunning(n int) { m.running = n }

type fixture struct {
	ctx       *provisioning.Context
	obs       *provisioningtest.RecordingObserver
	gateway   *vdctest.MockGateway
	inventory *vdctest.MockInventory
	metrics   *batchMetrics
	output    string
}

func setup(t *testing.T, hosts, vnodes, batch int) *fixture {
	t.Helper()
	f := &fixture{
		gateway:   &vdctest.MockGateway{},
		inventory: &vdctest.MockInventory{},
		metrics:   &batchMetrics{commands: map[bool]int{}},
		output:    filepath.Join(t.TempDir(), "nodes.list"),
	}
	cfg := vdctest.NewConfigBuilder().
		WithNodes(hosts, vnodes).
		WithBatchSize(batch).
		WithOutput(f.output).
		Build()
	f.ctx, f.obs = provisioningtest.NewContext(t, cfg, provisioning.Services{
		Gateway:   f.gateway,
		Inventory: f.inventory,
	})
	f.ctx.Metrics = f.metrics
	f.ctx.State.DeployedHosts = vdctest.Hosts("graphene", "nancy", hosts)
	f.ctx.State.Coordinator = coordinator
	f.ctx.State.VNetwork = "vnetwork"
	return f
}

func TestProvisioner_Name(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "vnodes", NewProvisioner().Name())
}

func TestProvision_WritesSortedNodeList(t *testing.T) {
	t.Parallel()
	f := setup(t, 2, 4, 50)
	var mu sync.Mutex
	var scripts []string
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			scripts = append(scripts, args.Get(2).(remote.Script).String())
		}).
		Return(vdctest.Succeeded(coordinator, ""))
	inv := vdctest.Inventory(4)
	inv[0], inv[3] = inv[3], inv[0]
	f.inventory.On("VNodes", mock.Anything, coordinator).Return(inv, nil)

	err := NewProvisioner().Provision(f.ctx)

	require.NoError(t, err)
	assert.Contains(t, scripts,
		"distem --create-vnode vnode=node-3,pnode=graphene-2.nancy.grid5000.fr,rootfs="+f.ctx.Config.RootFS+
			" ; distem --create-viface vnode=node-3,iface=if0,vnetwork=vnetwork ; distem --start-vnode node-3")
	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Equal(t, "10.144.0.1\tnode-1\n10.144.0.2\tnode-2\n10.144.0.3\tnode-3\n10.144.0.4\tnode-4\n", string(data))
	assert.Equal(t, f.output, f.ctx.State.Artifact)
	assert.Empty(t, f.ctx.State.Missing)
	assert.Equal(t, 4, f.metrics.running)
	assert.Equal(t, 4, f.metrics.commands[true])
}

func TestProvision_BatchesOf50(t *testing.T) {
	t.Parallel()
	f := setup(t, 1, 237, 50)
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Succeeded(coordinator, ""))
	f.inventory.On("VNodes", mock.Anything, coordinator).Return(vdctest.Inventory(237), nil)

	err := NewProvisioner().Provision(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, []int{50, 50, 50, 50, 37}, f.metrics.batches)
	f.gateway.AssertNumberOfCalls(t, "Run", 237)
	assert.Len(t, f.obs.EventsOfType(provisioning.EventProgress), 5)
}

func TestProvision_FailedScriptsDoNotStopTheRun(t *testing.T) {
	t.Parallel()
	f := setup(t, 2, 4, 2)
	f.gateway.On("Run", mock.Anything, coordinator, mock.MatchedBy(func(s remote.Script) bool {
		return strings.Contains(s.String(), "vnode=node-2,")
	})).Return(vdctest.Failed(coordinator, "vnode already exists"))
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Succeeded(coordinator, ""))
	inv := vdctest.Inventory(4)
	f.inventory.On("VNodes", mock.Anything, coordinator).
		Return([]distem.VNode{inv[0], inv[2], inv[3]}, nil)

	err := NewProvisioner().Provision(f.ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"node-2"}, f.ctx.State.FailedCommands)
	assert.Equal(t, []string{"node-2"}, f.ctx.State.Missing)
	assert.Equal(t, 1, f.metrics.commands[false])
	assert.Len(t, f.ctx.State.Records, 3)
	assert.Len(t, f.obs.EventsOfType(provisioning.EventPartialFailure), 2)
}

func TestProvision_SkipsNodesWithoutAddressOrNotRunning(t *testing.T) {
	t.Parallel()
	f := setup(t, 1, 3, 50)
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Succeeded(coordinator, ""))
	inv := vdctest.Inventory(3)
	inv[1].VIfaces = nil
	inv[2].Status = "FAILED"
	f.inventory.On("VNodes", mock.Anything, coordinator).Return(inv, nil)

	err := NewProvisioner().Provision(f.ctx)

	require.NoError(t, err)
	require.Len(t, f.ctx.State.Records, 1)
	assert.Equal(t, "node-1", f.ctx.State.Records[0].Name)
	assert.Len(t, f.obs.EventsOfType(provisioning.EventAnomaly), 2)
	assert.Equal(t, []string{"node-2", "node-3"}, f.ctx.State.Missing)
}

func TestProvision_InventoryFailureIsFatal(t *testing.T) {
	t.Parallel()
	f := setup(t, 1, 2, 50)
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Succeeded(coordinator, ""))
	f.inventory.On("VNodes", mock.Anything, coordinator).Return(nil, errors.New("connection refused"))

	err := NewProvisioner().Provision(f.ctx)

	require.ErrorIs(t, err, provisioning.ErrInventoryQuery)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoFileExists(t, f.output)
}

func TestProvision_EmptyInventory(t *testing.T) {
	t.Parallel()
	f := setup(t, 1, 2, 50)
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Failed(coordinator, ""))
	f.inventory.On("VNodes", mock.Anything, coordinator).Return([]distem.VNode{}, nil)

	err := NewProvisioner().Provision(f.ctx)

	require.ErrorIs(t, err, provisioning.ErrEmptyInventory)
	assert.NoFileExists(t, f.output)
}

func TestProvision_EmptyInventoryAllowed(t *testing.T) {
	t.Parallel()
	f := setup(t, 1, 2, 50)
	f.ctx.Config.RequireVNodes = false
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Failed(coordinator, ""))
	f.inventory.On("VNodes", mock.Anything, coordinator).Return([]distem.VNode{}, nil)

	require.NoError(t, NewProvisioner().Provision(f.ctx))

	data, err := os.ReadFile(f.output)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestProvision_DropPolicyLogsDropped(t *testing.T) {
	t.Parallel()
	f := setup(t, 2, 5, 50)
	f.ctx.Config.Remainder = "drop"
	f.gateway.On("Run", mock.Anything, coordinator, mock.Anything).Return(vdctest.Succeeded(coordinator, ""))
	f.inventory.On("VNodes", mock.Anything, coordinator).Return(vdctest.Inventory(4), nil)

	require.NoError(t, NewProvisioner().Provision(f.ctx))

	assert.Equal(t, 1, f.ctx.State.Dropped)
	assert.Len(t, f.ctx.State.Requested, 4)
	anomalies := f.obs.EventsOfType(provisioning.EventAnomaly)
	require.Len(t, anomalies, 1)
	assert.Equal(t, "1", anomalies[0].Fields["dropped"])
}

func TestProvision_NoCoordinator(t *testing.T) {
	t.Parallel()
	f := setup(t, 1, 2, 50)
	f.ctx.State.Coordinator = ""

	err := NewProvisioner().Provision(f.ctx)

	require.ErrorIs(t, err, provisioning.ErrNoDeployedHosts)
	f.gateway.AssertNotCalled(t, "Run", mock.Anything, mock.Anything, mock.Anything)
}
