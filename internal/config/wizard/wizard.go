package wizard

import (
	"context"
	"fmt"
)

// WizardResult holds all the answers from the interactive wizard.
type WizardResult struct {
	Site          string
	PhysicalNodes int
	VirtualNodes  int
	Walltime      string
	JobName       string

	Environment string
	RootFS      string
	Remainder   string

	// Set only in advanced mode.
	AdvancedOptions *AdvancedOptions
}

// AdvancedOptions holds rarely changed settings.
type AdvancedOptions struct {
	BatchSize     int
	Blacklist     []string
	PublishBucket string
}

// RunWizard runs the interactive configuration wizard.
// If advanced is true, additional configuration options are shown.
// The context is used for cancellation support (e.g., Ctrl+C).
func RunWizard(ctx context.Context, advanced bool) (*WizardResult, error) {
	result := newResult()

	if err := runReservationGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("reservation: %w", err)
	}

	if err := runImagesGroup(ctx, result); err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}

	if advanced {
		adv := &AdvancedOptions{}
		if err := runAdvancedGroup(ctx, adv); err != nil {
			return nil, fmt.Errorf("advanced: %w", err)
		}
		result.AdvancedOptions = adv
	}

	return result, nil
}
