package provisioning

import (
	"context"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// Inventory reads the virtual nodes managed by a Distem coordinator.
// Implemented by internal/platform/distem.InventoryClient.
type Inventory interface {
	VNodes(ctx context.Context, coordinator string) ([]distem.VNode, error)
}

// Metrics receives pipeline measurements.
// Implemented by internal/metrics.Recorder.
type Metrics interface {
	ObservePhase(phase string, d time.Duration, err error)
	ObserveBatch(size int, d time.Duration)
	CountVNodeCommand(succeeded bool)
	SetHosts(state string, n int)
	SetVNodesRunning(n int)
}

// NopMetrics discards every measurement.
type NopMetrics struct{}

func (NopMetrics) ObservePhase(string, time.Duration, error) {}
func (NopMetrics) ObserveBatch(int, time.Duration)           {}
func (NopMetrics) CountVNodeCommand(bool)                    {}
func (NopMetrics) SetHosts(string, int)                      {}
func (NopMetrics) SetVNodesRunning(int)                      {}
