package handlers

import (
	"context"
	"fmt"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/config/wizard"
	"github.com/lpouillo/google-dc-g5k/internal/ui"
)

// Factory function variables for init - can be replaced in tests.
var (
	// isInteractive reports whether the wizard can prompt.
	isInteractive = func() bool { return ui.IsTerminal(stdout) }

	// fileExists checks if a file exists.
	fileExists = wizard.FileExists

	// confirmOverwrite asks before replacing an existing file.
	confirmOverwrite = wizard.ConfirmOverwrite

	// runWizard runs the interactive form.
	runWizard = wizard.RunWizard

	// writeConfig writes the config to a file.
	writeConfig = wizard.WriteConfig
)

// Init runs the configuration wizard and writes the result to outputPath.
func Init(ctx context.Context, outputPath string, advanced, fullOutput bool) error {
	if !isInteractive() {
		return fmt.Errorf("vdc init needs an interactive terminal; copy and edit a %s instead", config.DefaultConfigFile)
	}
	if fileExists(outputPath) {
		ok, err := confirmOverwrite(outputPath)
		if err != nil {
			return fmt.Errorf("failed to confirm overwrite: %w", err)
		}
		if !ok {
			fmt.Fprintln(stdout, "Aborted.")
			return nil
		}
	}

	result, err := runWizard(ctx, advanced)
	if err != nil {
		return fmt.Errorf("wizard canceled: %w", err)
	}

	cfg := wizard.BuildConfig(result)
	if err := writeConfig(cfg, outputPath, fullOutput); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

// printInitSuccess prints a summary and the next step.
func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Configuration saved!")
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  File:           %s\n", outputPath)
	fmt.Fprintf(stdout, "  Site:           %s\n", cfg.Site)
	fmt.Fprintf(stdout, "  Physical nodes: %d\n", cfg.PhysicalNodes)
	fmt.Fprintf(stdout, "  Virtual nodes:  %d\n", cfg.VirtualNodes)
	fmt.Fprintf(stdout, "  Walltime:       %s\n", cfg.Walltime)
	fmt.Fprintf(stdout, "  Job name:       %s\n", cfg.JobName)
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "Next steps:")
	fmt.Fprintf(stdout, "  export %s=<login> %s=<password>\n", config.EnvG5KUser, config.EnvG5KPassword)
	fmt.Fprintf(stdout, "  vdc apply -c %s\n", outputPath)
}
