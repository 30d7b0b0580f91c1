package wizard

import (
	"context"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/lpouillo/google-dc-g5k/internal/config"
)

// newResult pre-fills answers with the configuration defaults.
func newResult() *WizardResult {
	return &WizardResult{
		Site:          config.DefaultSite,
		PhysicalNodes: config.DefaultPhysicalNodes,
		VirtualNodes:  config.DefaultVirtualNodes,
		Walltime:      config.DefaultWalltime,
		JobName:       config.DefaultJobName,
		Environment:   config.DefaultEnvironment,
		RootFS:        config.DefaultRootFS,
		Remainder:     string(config.RemainderSpread),
	}
}

// runReservationGroup prompts for what to reserve and for how long.
func runReservationGroup(ctx context.Context, result *WizardResult) error {
	pnodes := strconv.Itoa(result.PhysicalNodes)
	vnodes := strconv.Itoa(result.VirtualNodes)

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Site").
				Description("Grid'5000 site hosting the reservation").
				Options(SitesToOptions()...).
				Value(&result.Site),
			huh.NewInput().
				Title("Physical nodes").
				Value(&pnodes).
				Validate(validatePositive),
			huh.NewInput().
				Title("Virtual nodes").
				Value(&vnodes).
				Validate(validatePositive),
			huh.NewInput().
				Title("Walltime").
				Description("H:MM:SS").
				Value(&result.Walltime).
				Validate(validateWalltime),
			huh.NewInput().
				Title("Job name").
				Value(&result.JobName),
		).Title("Reservation"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	result.PhysicalNodes, _ = strconv.Atoi(strings.TrimSpace(pnodes))
	result.VirtualNodes, _ = strconv.Atoi(strings.TrimSpace(vnodes))
	return nil
}

// runImagesGroup prompts for the host environment and vnode filesystem.
func runImagesGroup(ctx context.Context, result *WizardResult) error {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host environment").
				Description("Kadeploy environment deployed on the physical hosts").
				Value(&result.Environment).
				Validate(validateEnvironment),
			huh.NewInput().
				Title("Virtual node rootfs").
				Description("Image URL passed to distem --create-vnode").
				Value(&result.RootFS).
				Validate(validateRootFS),
			huh.NewSelect[string]().
				Title("Remainder policy").
				Options(RemainderOptions...).
				Value(&result.Remainder),
		).Title("Images"),
	).RunWithContext(ctx)
}

// runAdvancedGroup prompts for batching, blacklist and publishing.
func runAdvancedGroup(ctx context.Context, opts *AdvancedOptions) error {
	batch := strconv.Itoa(config.DefaultBatchSize)
	blacklist := strings.Join(config.DefaultBlacklist, ", ")

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Batch size").
				Description("Virtual nodes configured concurrently").
				Value(&batch).
				Validate(validatePositive),
			huh.NewInput().
				Title("Blacklisted clusters").
				Description("Comma-separated").
				Value(&blacklist),
			huh.NewInput().
				Title("S3 bucket (Optional)").
				Description("Publish the node list there. Leave empty to skip.").
				Value(&opts.PublishBucket),
		).Title("Advanced"),
	).RunWithContext(ctx)
	if err != nil {
		return err
	}

	opts.BatchSize, _ = strconv.Atoi(strings.TrimSpace(batch))
	opts.Blacklist = parseList(blacklist)
	return nil
}

func validatePositive(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return errNotPositive
	}
	return nil
}

func validateWalltime(s string) error {
	_, err := config.ParseWalltime(s)
	return err
}

func validateEnvironment(s string) error {
	if strings.TrimSpace(s) == "" {
		return errEnvironmentName
	}
	return nil
}

func validateRootFS(s string) error {
	if strings.TrimSpace(s) == "" {
		return errRootFSRequired
	}
	return nil
}

// parseList splits a comma-separated list, dropping empty entries.
func parseList(input string) []string {
	var out []string
	for _, part := range strings.Split(input, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
