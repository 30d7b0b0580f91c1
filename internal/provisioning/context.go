package provisioning

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/remote"
)

// Services groups the external collaborators the phases talk to.
type Services struct {
	Scheduler g5k.Scheduler
	Deployer  g5k.Deployer
	Gateway   remote.Gateway
	Inventory Inventory
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context
	Config *config.Config
	State  *State
	Services
	Observer Observer
	Metrics  Metrics
	Timeouts *config.Timeouts
}

// NewContext creates a new provisioning context. Every phase logs through
// log; there is no package-level logger.
func NewContext(ctx context.Context, cfg *config.Config, svc Services, log logr.Logger) *Context {
	return &Context{
		Context:  ctx,
		Config:   cfg,
		State:    NewState(),
		Services: svc,
		Observer: NewLogrObserver(log),
		Metrics:  NopMetrics{},
		Timeouts: config.LoadTimeouts(),
	}
}
