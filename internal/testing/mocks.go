package testing

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/remote"
)

// MockScheduler is a mock implementation of g5k.Scheduler.
type MockScheduler struct {
	mock.Mock
}

// ListJobs returns the mocked job list.
func (m *MockScheduler) ListJobs(ctx context.Context, site, user string) ([]g5k.Job, error) {
	args := m.Called(ctx, site, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]g5k.Job), args.Error(1)
}

// Job returns the mocked job.
func (m *MockScheduler) Job(ctx context.Context, site string, id int64) (*g5k.Job, error) {
	args := m.Called(ctx, site, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*g5k.Job), args.Error(1)
}

// Planning returns the mocked planning.
func (m *MockScheduler) Planning(ctx context.Context, site string, horizon time.Duration, subnetResource string) (*g5k.Planning, error) {
	args := m.Called(ctx, site, horizon, subnetResource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*g5k.Planning), args.Error(1)
}

// Submit returns the mocked submitted job.
func (m *MockScheduler) Submit(ctx context.Context, site string, spec g5k.JobSpec) (*g5k.Job, error) {
	args := m.Called(ctx, site, spec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*g5k.Job), args.Error(1)
}

// MockDeployer is a mock implementation of g5k.Deployer.
type MockDeployer struct {
	mock.Mock
}

// Deploy returns the mocked deployment result.
func (m *MockDeployer) Deploy(ctx context.Context, hosts []string, environment string) (g5k.DeployResult, error) {
	args := m.Called(ctx, hosts, environment)
	return args.Get(0).(g5k.DeployResult), args.Error(1)
}

// MockGateway is a mock implementation of remote.Gateway. Run is safe for
// concurrent use, as testify mocks are.
type MockGateway struct {
	mock.Mock
}

// Run returns the mocked result for script on host.
func (m *MockGateway) Run(ctx context.Context, host string, script remote.Script) remote.Result {
	args := m.Called(ctx, host, script)
	return args.Get(0).(remote.Result)
}

// Put records the upload.
func (m *MockGateway) Put(ctx context.Context, host, localPath, remoteDir string) error {
	args := m.Called(ctx, host, localPath, remoteDir)
	return args.Error(0)
}

// MockInventory is a mock implementation of the Distem inventory reader.
type MockInventory struct {
	mock.Mock
}

// VNodes returns the mocked inventory.
func (m *MockInventory) VNodes(ctx context.Context, coordinator string) ([]distem.VNode, error) {
	args := m.Called(ctx, coordinator)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]distem.VNode), args.Error(1)
}
