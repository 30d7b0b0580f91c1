package commands

import (
	"github.com/spf13/cobra"

	"github.com/lpouillo/google-dc-g5k/cmd/vdc/handlers"
)

// Init returns the command for interactively creating a configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "vdc.yaml")
//	--advanced, -a: Also ask for batch size, blacklist and publishing
//	--full, -f: Write every option instead of the run-defining ones
func Init() *cobra.Command {
	var (
		outputPath string
		advanced   bool
		fullOutput bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration",
		Long: `Interactively create a vdc configuration file.

The wizard asks for the site, the number of physical and virtual nodes,
the walltime and the images. Use --advanced for the batch size, the
cluster blacklist and node list publishing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, advanced, fullOutput)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "vdc.yaml", "Output file path")
	cmd.Flags().BoolVarP(&advanced, "advanced", "a", false, "Show advanced configuration options")
	cmd.Flags().BoolVarP(&fullOutput, "full", "f", false, "Output full YAML with all options")

	return cmd
}
