package reservation

import (
	"fmt"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
)

// JobCommand keeps a deploy job alive for its whole walltime.
const JobCommand = "sleep infinity"

// JobSpec builds the submission for shares starting at start. When
// subnetResource is set, one block of it is requested alongside the nodes.
func JobSpec(name, subnetResource string, shares []Share, walltime time.Duration, start time.Time) g5k.JobSpec {
	parts := make([]string, 0, len(shares)+1)
	if subnetResource != "" {
		parts = append(parts, subnetResource+"=1")
	}
	for _, s := range shares {
		parts = append(parts, fmt.Sprintf("{cluster='%s'}/nodes=%d", s.Cluster, s.Nodes))
	}

	spec := g5k.JobSpec{
		Resources: strings.Join(parts, "+") + ",walltime=" + config.FormatWalltime(walltime),
		Name:      name,
		Types:     []string{"deploy"},
		Command:   JobCommand,
	}
	if !start.IsZero() {
		spec.Reservation = start.Unix()
	}
	return spec
}
