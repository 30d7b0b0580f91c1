// Package commands defines the CLI command structure and flag bindings.
//
// Command execution is delegated to handler functions in the handlers package.
package commands

import "github.com/spf13/cobra"

// Root returns the root command for the vdc CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vdc",
		Short: "Build a virtual datacenter on Grid'5000 with Distem",
		Long: `vdc reserves physical hosts and a subnet on Grid'5000, deploys them,
turns them into a Distem fabric and creates virtual nodes on it. The
address and name of every running virtual node is written to a node list.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(Apply())
	cmd.AddCommand(Init())
	cmd.AddCommand(Runs())
	cmd.AddCommand(Version())

	return cmd
}
