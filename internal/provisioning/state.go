package provisioning

import (
	"net/netip"

	"github.com/lpouillo/google-dc-g5k/internal/nodelist"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
)

// Host states reported through Metrics.SetHosts.
const (
	HostsReserved = "reserved"
	HostsDeployed = "deployed"
	HostsFailed   = "failed"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Reservation results
	Job    *g5k.Job
	Reused bool         // Job was found by label rather than submitted
	Hosts  []string     // Reserved hosts, sorted by cluster then index
	Subnet netip.Prefix // Address space granted with the job

	// Fabric results
	DeployedHosts []string // Sorted; the coordinator is DeployedHosts[0]
	FailedHosts   []string
	Coordinator   string
	ControlFile   string // Local path of the uploaded host list
	VNetwork      string

	// Virtual node results
	Requested      []string // Names of every node a script was issued for
	Dropped        int      // Nodes left out by the remainder policy
	FailedCommands []string // Names of nodes whose script failed
	Records        []nodelist.Record
	Missing        []string // Requested names absent from the inventory
	Artifact       string   // Path of the written node list
}

// NewState creates an empty provisioning state.
func NewState() *State {
	return &State{}
}
