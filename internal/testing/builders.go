package testing

import (
	"slices"

	"github.com/lpouillo/google-dc-g5k/internal/config"
)

// ConfigBuilder provides a fluent interface for constructing test configs.
// Each method returns a new builder (immutable) for chaining.
type ConfigBuilder struct {
	cfg config.Config
}

// NewConfigBuilder creates a new ConfigBuilder starting from the defaults,
// shrunk to a small run that tests can reason about.
func NewConfigBuilder() *ConfigBuilder {
	cfg := *config.Default()
	cfg.PhysicalNodes = 2
	cfg.VirtualNodes = 4
	cfg.Blacklist = nil
	cfg.Ledger.Path = ""
	return &ConfigBuilder{cfg: cfg}
}

// WithSite sets the Grid'5000 site.
func (b *ConfigBuilder) WithSite(site string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Site = site
	return newBuilder
}

// WithNodes sets the physical and virtual node counts.
func (b *ConfigBuilder) WithNodes(physical, virtual int) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.PhysicalNodes = physical
	newBuilder.cfg.VirtualNodes = virtual
	return newBuilder
}

// WithJobName sets the reservation label.
func (b *ConfigBuilder) WithJobName(name string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.JobName = name
	return newBuilder
}

// WithWalltime sets the reservation walltime.
func (b *ConfigBuilder) WithWalltime(walltime string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Walltime = walltime
	return newBuilder
}

// WithBlacklist replaces the excluded clusters and hosts.
func (b *ConfigBuilder) WithBlacklist(entries ...string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Blacklist = slices.Clone(entries)
	return newBuilder
}

// WithBatchSize sets the virtual node batch size.
func (b *ConfigBuilder) WithBatchSize(n int) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.BatchSize = n
	return newBuilder
}

// WithRemainder sets the remainder policy.
func (b *ConfigBuilder) WithRemainder(policy config.RemainderPolicy) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Remainder = policy
	return newBuilder
}

// WithRequireVNodes sets whether an empty inventory is fatal.
func (b *ConfigBuilder) WithRequireVNodes(require bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.RequireVNodes = require
	return newBuilder
}

// WithOutput sets the node list path.
func (b *ConfigBuilder) WithOutput(path string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Output = path
	return newBuilder
}

// WithLedger sets the run ledger path.
func (b *ConfigBuilder) WithLedger(path string) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Ledger.Path = path
	return newBuilder
}

// WithSimulate toggles the in-process testbed.
func (b *ConfigBuilder) WithSimulate(simulate bool) *ConfigBuilder {
	newBuilder := b.clone()
	newBuilder.cfg.Simulate = simulate
	return newBuilder
}

// Build returns the constructed config.
func (b *ConfigBuilder) Build() *config.Config {
	cfg := b.clone().cfg
	return &cfg
}

// clone creates a deep copy of the builder.
func (b *ConfigBuilder) clone() *ConfigBuilder {
	cfg := b.cfg
	cfg.Blacklist = slices.Clone(b.cfg.Blacklist)
	return &ConfigBuilder{cfg: cfg}
}
