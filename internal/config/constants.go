package config

// Defaults mirror the values the testbed was historically run with.
const (
	DefaultSite           = "nancy"
	DefaultPhysicalNodes  = 10
	DefaultVirtualNodes   = 100
	DefaultWalltime       = "2:00:00"
	DefaultJobName        = "GoogleDataCenter"
	DefaultEnvironment    = "wheezy-x64-nfs"
	DefaultRootFS         = "file:///home/ejeanvoine/public/distem/distem-fs-wheezy.tar.gz"
	DefaultSubnetResource = "slash_22"
	DefaultOutput         = "nodes.list"

	// DefaultBatchSize keeps concurrent requests well under the roughly 75
	// simultaneous requests past which the Distem coordinator degrades.
	DefaultBatchSize = 50

	DefaultAPIURL     = "https://api.grid5000.fr/stable"
	DefaultSSHGateway = "access.grid5000.fr"
	DefaultSSHPort    = 22
	DefaultNodeUser   = "root"
	DefaultDistemPort = 4567
	DefaultVNetwork   = "vnetwork"
	DefaultVInterface = "if0"
	DefaultStagingDir = "/tmp"
	DefaultLedgerPath = "~/.vdc/runs.db"
	DefaultPublishKey = "{{label}}/nodes.list"
	DefaultS3Region   = "us-east-1"
	DefaultConfigFile = "vdc.yaml"
	DefaultSSHKeyPath = "~/.ssh/id_rsa"
)

// DefaultBlacklist lists clusters known to be unreliable for this workload.
var DefaultBlacklist = []string{"sagittaire"}

// Environment variables holding credentials. They are never read from the config file.
const (
	EnvG5KUser     = "G5K_USER"
	EnvG5KPassword = "G5K_PASSWORD"
)
