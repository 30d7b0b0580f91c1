package wizard

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lpouillo/google-dc-g5k/internal/config"
)

// Function variable for dependency injection in tests.
var confirmOverwrite = defaultConfirmOverwrite

// WriteConfig writes the config to a YAML file with a descriptive header.
// If fullOutput is false, only the run-defining fields are written; the
// rest falls back to defaults when loaded.
func WriteConfig(cfg *config.Config, outputPath string, fullOutput bool) error {
	var out any = cfg
	if !fullOutput {
		out = buildMinimalConfig(cfg)
	}

	yamlBytes, err := yaml.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	var sb strings.Builder
	sb.WriteString(generateHeader(outputPath, fullOutput))
	sb.WriteString("\n")
	sb.Write(yamlBytes)

	if err := os.WriteFile(outputPath, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// MinimalConfig is the subset of Config written in minimal mode.
type MinimalConfig struct {
	Site          string                `yaml:"site"`
	PhysicalNodes int                   `yaml:"physicalNodes"`
	VirtualNodes  int                   `yaml:"virtualNodes"`
	Walltime      string                `yaml:"walltime"`
	JobName       string                `yaml:"jobName,omitempty"`
	Environment   string                `yaml:"environment"`
	RootFS        string                `yaml:"rootfs"`
	Remainder     string                `yaml:"remainder,omitempty"`
	BatchSize     int                   `yaml:"batchSize,omitempty"`
	Blacklist     []string              `yaml:"blacklist,omitempty"`
	Publish       *config.PublishConfig `yaml:"publish,omitempty"`
}

func buildMinimalConfig(cfg *config.Config) *MinimalConfig {
	m := &MinimalConfig{
		Site:          cfg.Site,
		PhysicalNodes: cfg.PhysicalNodes,
		VirtualNodes:  cfg.VirtualNodes,
		Walltime:      cfg.Walltime,
		Environment:   cfg.Environment,
		RootFS:        cfg.RootFS,
		Blacklist:     cfg.Blacklist,
	}
	if cfg.JobName != config.DefaultJobName {
		m.JobName = cfg.JobName
	}
	if cfg.Remainder != config.RemainderSpread {
		m.Remainder = string(cfg.Remainder)
	}
	if cfg.BatchSize != config.DefaultBatchSize {
		m.BatchSize = cfg.BatchSize
	}
	if cfg.Publish.Bucket != "" {
		p := cfg.Publish
		m.Publish = &p
	}
	return m
}

// generateHeader creates the YAML file header comment.
func generateHeader(outputPath string, fullOutput bool) string {
	mode := "minimal"
	note := "\n# Note: This is a minimal config. Use --full flag for all options."
	if fullOutput {
		mode = "full"
		note = ""
	}
	return fmt.Sprintf(`# vdc virtual datacenter configuration
# Generated by: vdc init
# Generated at: %s
# Output mode: %s%s
#
# Required environment variables:
#   %s, %s - Grid'5000 API credentials
#
# Usage:
#   vdc apply -c %s
`, time.Now().Format(time.RFC3339), mode, note, config.EnvG5KUser, config.EnvG5KPassword, outputPath)
}

// FileExists checks if a file exists at the given path.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ConfirmOverwrite prompts the user to confirm overwriting an existing file.
func ConfirmOverwrite(path string) (bool, error) {
	return confirmOverwrite(path)
}

func defaultConfirmOverwrite(path string) (bool, error) {
	fmt.Printf("\nFile already exists: %s\n", path)
	fmt.Print("Overwrite? (y/n): ")

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		return false, err
	}

	response = strings.ToLower(strings.TrimSpace(response))
	return response == "y" || response == "yes", nil
}
