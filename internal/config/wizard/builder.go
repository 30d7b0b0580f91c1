package wizard

import "github.com/lpouillo/google-dc-g5k/internal/config"

// BuildConfig creates a Config from the wizard result, starting from defaults.
func BuildConfig(result *WizardResult) *config.Config {
	cfg := config.Default()

	cfg.Site = result.Site
	cfg.PhysicalNodes = result.PhysicalNodes
	cfg.VirtualNodes = result.VirtualNodes
	cfg.Walltime = result.Walltime
	if result.JobName != "" {
		cfg.JobName = result.JobName
	}
	cfg.Environment = result.Environment
	cfg.RootFS = result.RootFS
	if result.Remainder != "" {
		cfg.Remainder = config.RemainderPolicy(result.Remainder)
	}

	if adv := result.AdvancedOptions; adv != nil {
		if adv.BatchSize > 0 {
			cfg.BatchSize = adv.BatchSize
		}
		cfg.Blacklist = adv.Blacklist
		cfg.Publish.Bucket = adv.PublishBucket
	}

	return cfg
}
