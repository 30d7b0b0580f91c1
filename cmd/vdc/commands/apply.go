package commands

import (
	"github.com/spf13/cobra"

	"github.com/lpouillo/google-dc-g5k/cmd/vdc/handlers"
)

// Apply returns the command running the whole pipeline.
//
// Flags override the configuration file, which overrides the defaults.
//
// Environment variables:
//
//	G5K_USER, G5K_PASSWORD: Grid'5000 credentials
//	VDC_TIMEOUT_*, VDC_POLL_INTERVAL: wait bounds
func Apply() *cobra.Command {
	var opts handlers.ApplyOptions

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Reserve hosts and create the virtual nodes",
		Long: `Reserve physical hosts and a subnet, deploy them, bootstrap Distem and
create the virtual nodes, then write their addresses to the node list.

A running or waiting job with the same name is reused instead of
submitting a new one.

Examples:
  # 10 hosts and 100 virtual nodes in Nancy (the defaults)
  vdc apply

  # 1000 virtual nodes on 20 hosts in Rennes for 4 hours
  vdc apply -s rennes --pnodes 20 --vnodes 1000 -w 4:00:00

  # Dry run against the simulated testbed
  vdc apply --simulate -v`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Apply(cmd.Context(), opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "Path to configuration file (default: vdc.yaml)")
	f.StringVarP(&opts.Site, "site", "s", "", "Grid'5000 site (default nancy)")
	f.IntVar(&opts.PhysicalNodes, "pnodes", 0, "Number of physical hosts (default 10)")
	f.IntVar(&opts.VirtualNodes, "vnodes", 0, "Number of virtual nodes (default 100)")
	f.StringVarP(&opts.Walltime, "walltime", "w", "", "Reservation walltime as H:MM:SS (default 2:00:00)")
	f.StringVar(&opts.JobName, "job-name", "", "Job name, also used to find a job to reuse (default GoogleDataCenter)")
	f.StringVarP(&opts.Output, "output", "o", "", "Node list path (default nodes.list)")
	f.IntVar(&opts.BatchSize, "batch-size", 0, "Virtual nodes created concurrently (default 50)")
	f.BoolVar(&opts.Simulate, "simulate", false, "Run against the in-process simulated testbed")
	f.BoolVarP(&opts.Verbose, "verbose", "v", false, "Show debug output")
	f.BoolVarP(&opts.Quiet, "quiet", "q", false, "Show warnings and errors only")

	return cmd
}
