package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// RemainderPolicy decides what happens to the virtual nodes left over when
// the requested count is not a multiple of the number of deployed hosts.
type RemainderPolicy string

const (
	// RemainderSpread gives one extra node to each of the first hosts so that
	// every requested node is assigned.
	RemainderSpread RemainderPolicy = "spread"
	// RemainderDrop assigns floor(count/hosts) nodes per host and drops the
	// rest, logging how many were dropped.
	RemainderDrop RemainderPolicy = "drop"
)

// Config holds the full configuration of one pipeline run.
type Config struct {
	Site          string   `yaml:"site"`
	PhysicalNodes int      `yaml:"physicalNodes"`
	VirtualNodes  int      `yaml:"virtualNodes"`
	Walltime      string   `yaml:"walltime"`
	JobName       string   `yaml:"jobName"`
	Blacklist     []string `yaml:"blacklist"`

	// Environment is the Kadeploy image deployed on the physical hosts.
	Environment string `yaml:"environment"`
	// RootFS is the root filesystem image of every virtual node.
	RootFS string `yaml:"rootfs"`
	// SubnetResource is the OAR resource type reserved alongside the nodes.
	SubnetResource string `yaml:"subnetResource"`

	BatchSize     int             `yaml:"batchSize"`
	Remainder     RemainderPolicy `yaml:"remainder"`
	RequireVNodes bool            `yaml:"requireVNodes"`
	Output        string          `yaml:"output"`

	API     APIConfig     `yaml:"api"`
	SSH     SSHConfig     `yaml:"ssh"`
	Distem  DistemConfig  `yaml:"distem"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Metrics MetricsConfig `yaml:"metrics"`
	Publish PublishConfig `yaml:"publish"`

	// Simulate runs the pipeline against the in-process testbed simulator.
	Simulate bool `yaml:"-"`
	// Verbosity is 0 (quiet), 1 (default) or 2 (verbose).
	Verbosity int `yaml:"-"`
}

// APIConfig configures the Grid'5000 REST API client.
type APIConfig struct {
	URL  string `yaml:"url"`
	User string `yaml:"user,omitempty"`
}

// SSHConfig configures the remote execution gateway.
type SSHConfig struct {
	Gateway  string `yaml:"gateway"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user,omitempty"`
	NodeUser string `yaml:"nodeUser"`
	KeyPath  string `yaml:"keyPath"`
}

// DistemConfig configures the virtualization fabric.
type DistemConfig struct {
	Port       int    `yaml:"port"`
	Network    string `yaml:"network"`
	Interface  string `yaml:"interface"`
	StagingDir string `yaml:"stagingDir"`
}

// LedgerConfig configures the local run history. An empty path disables it.
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// MetricsConfig configures the Prometheus textfile export. An empty file disables it.
type MetricsConfig struct {
	File string `yaml:"file,omitempty"`
}

// PublishConfig configures publishing of the node list to object storage.
// An empty bucket disables it.
type PublishConfig struct {
	Bucket   string `yaml:"bucket,omitempty"`
	Key      string `yaml:"key,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
	Region   string `yaml:"region,omitempty"`
}

// Default returns a configuration populated with all default values.
func Default() *Config {
	return &Config{
		Site:           DefaultSite,
		PhysicalNodes:  DefaultPhysicalNodes,
		VirtualNodes:   DefaultVirtualNodes,
		Walltime:       DefaultWalltime,
		JobName:        DefaultJobName,
		Blacklist:      slices.Clone(DefaultBlacklist),
		Environment:    DefaultEnvironment,
		RootFS:         DefaultRootFS,
		SubnetResource: DefaultSubnetResource,
		BatchSize:      DefaultBatchSize,
		Remainder:      RemainderSpread,
		RequireVNodes:  true,
		Output:         DefaultOutput,
		API: APIConfig{
			URL: DefaultAPIURL,
		},
		SSH: SSHConfig{
			Gateway:  DefaultSSHGateway,
			Port:     DefaultSSHPort,
			NodeUser: DefaultNodeUser,
			KeyPath:  DefaultSSHKeyPath,
		},
		Distem: DistemConfig{
			Port:       DefaultDistemPort,
			Network:    DefaultVNetwork,
			Interface:  DefaultVInterface,
			StagingDir: DefaultStagingDir,
		},
		Ledger: LedgerConfig{
			Path: DefaultLedgerPath,
		},
		Publish: PublishConfig{
			Key:    DefaultPublishKey,
			Region: DefaultS3Region,
		},
		Verbosity: 1,
	}
}

// WalltimeDuration returns the parsed walltime.
func (c *Config) WalltimeDuration() (time.Duration, error) {
	return ParseWalltime(c.Walltime)
}

// APIUser returns the Grid'5000 login, preferring the environment over the file.
func (c *Config) APIUser() string {
	if u := os.Getenv(EnvG5KUser); u != "" {
		return u
	}
	return c.API.User
}

// SSHUser returns the login used on site frontends, defaulting to the API user.
func (c *Config) SSHUser() string {
	if c.SSH.User != "" {
		return c.SSH.User
	}
	return c.APIUser()
}

// ExpandPath resolves a leading "~/" against the user's home directory.
func ExpandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
