// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework; collaborators are built through factory variables that
// tests replace.
package handlers

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/go-logr/logr"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/ledger"
	"github.com/lpouillo/google-dc-g5k/internal/logging"
	"github.com/lpouillo/google-dc-g5k/internal/metrics"
	"github.com/lpouillo/google-dc-g5k/internal/orchestration"
	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/platform/s3"
	"github.com/lpouillo/google-dc-g5k/internal/platform/sim"
	"github.com/lpouillo/google-dc-g5k/internal/platform/ssh"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/ui"
	"github.com/lpouillo/google-dc-g5k/internal/util/keygen"
)

// Runner runs the pipeline - matches orchestration.Driver.
type Runner interface {
	Run(ctx context.Context) (*orchestration.Result, error)
}

// ApplyOptions carries the apply flags. Zero values leave the
// configuration file (or default) untouched.
type ApplyOptions struct {
	ConfigPath    string
	Site          string
	PhysicalNodes int
	VirtualNodes  int
	Walltime      string
	JobName       string
	Output        string
	BatchSize     int
	Simulate      bool
	Verbose       bool
	Quiet         bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfig resolves the configuration file.
	loadConfig = config.Load

	// stderr receives logs and banners.
	stderr io.Writer = os.Stderr

	// newServices connects to Grid'5000 for real runs.
	newServices = realServices

	// newSimServices starts the in-process testbed for --simulate.
	newSimServices = simServices

	// openLedger opens the run history.
	openLedger = func(ctx context.Context, path string) (*ledger.Ledger, error) {
		return ledger.Open(ctx, config.ExpandPath(path))
	}

	// newPublisher creates the node list publisher.
	newPublisher = func(cfg *config.Config) (orchestration.ArtifactPublisher, error) {
		client, err := s3.NewClient(cfg.Publish.Endpoint, cfg.Publish.Region,
			os.Getenv("AWS_ACCESS_KEY_ID"), os.Getenv("AWS_SECRET_ACCESS_KEY"))
		if err != nil {
			return nil, err
		}
		return s3.NewPublisher(client, cfg.Publish.Bucket, cfg.Publish.Key), nil
	}

	// newRunner creates the pipeline driver.
	newRunner = func(cfg *config.Config, svc provisioning.Services, opts orchestration.Options) Runner {
		return orchestration.NewDriver(cfg, svc, opts)
	}
)

// Apply reserves the hosts, builds the Distem fabric, creates the virtual
// nodes and writes the node list.
//
// The run stops at the first fatal error. The ledger and metrics are best
// effort; publishing, when configured, is part of the run.
func Apply(ctx context.Context, opts ApplyOptions) error {
	cfg, path, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	applyOverrides(cfg, opts)

	log := logging.New(stderr, cfg.Verbosity)
	if path != "" {
		log.V(1).Info("using configuration", "file", path)
	}

	svc, closer, err := services(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() { _ = closer.Close() }()

	runOpts := orchestration.Options{
		Log:     log,
		Printer: ui.NewPrinter(stderr),
	}
	if cfg.Ledger.Path != "" {
		l, err := openLedger(ctx, cfg.Ledger.Path)
		if err != nil {
			log.Error(err, "run history disabled")
		} else {
			defer func() { _ = l.Close() }()
			runOpts.Ledger = l
		}
	}
	if cfg.Metrics.File != "" {
		runOpts.Metrics = metrics.NewRecorder()
	}
	if cfg.Publish.Bucket != "" {
		pub, err := newPublisher(cfg)
		if err != nil {
			return fmt.Errorf("failed to create publisher: %w", err)
		}
		runOpts.Publisher = pub
	}

	_, err = newRunner(cfg, svc, runOpts).Run(ctx)
	return err
}

func applyOverrides(cfg *config.Config, opts ApplyOptions) {
	if opts.Site != "" {
		cfg.Site = opts.Site
	}
	if opts.PhysicalNodes != 0 {
		cfg.PhysicalNodes = opts.PhysicalNodes
	}
	if opts.VirtualNodes != 0 {
		cfg.VirtualNodes = opts.VirtualNodes
	}
	if opts.Walltime != "" {
		cfg.Walltime = opts.Walltime
	}
	if opts.JobName != "" {
		cfg.JobName = opts.JobName
	}
	if opts.Output != "" {
		cfg.Output = opts.Output
	}
	if opts.BatchSize != 0 {
		cfg.BatchSize = opts.BatchSize
	}
	if opts.Simulate {
		cfg.Simulate = true
	}
	cfg.Verbosity = logging.FromFlags(opts.Quiet, opts.Verbose)
}

func services(ctx context.Context, cfg *config.Config, log logr.Logger) (provisioning.Services, io.Closer, error) {
	if cfg.Simulate {
		return newSimServices(ctx, cfg, log)
	}
	return newServices(ctx, cfg, log)
}

func realServices(_ context.Context, cfg *config.Config, log logr.Logger) (provisioning.Services, io.Closer, error) {
	t := config.LoadTimeouts()
	keyPath := config.ExpandPath(cfg.SSH.KeyPath)

	gw, err := ssh.NewGatewayFromKeyFile(ssh.Config{
		JumpHost:       cfg.SSH.Gateway,
		Port:           cfg.SSH.Port,
		FrontendUser:   cfg.SSHUser(),
		NodeUser:       cfg.SSH.NodeUser,
		MaxRetries:     t.RetryMaxAttempts,
		RetryDelay:     t.RetryInitialDelay,
		CommandTimeout: t.Command,
	}, keyPath)
	if err != nil {
		return provisioning.Services{}, nil, fmt.Errorf("failed to create SSH gateway: %w", err)
	}

	key, err := keygen.LoadAuthorizedKey(keyPath)
	if err != nil {
		log.V(0).Info("deploying without a public key; nodes must already authorize yours", "reason", err.Error())
	}

	client := g5k.NewClient(cfg.API.URL, cfg.APIUser(), os.Getenv(config.EnvG5KPassword))
	return provisioning.Services{
		Scheduler: client,
		Deployer:  g5k.NewDeployer(client, key, t.PollInterval, t.Deploy),
		Gateway:   gw,
		Inventory: distem.NewInventoryClient(cfg.Distem.Port, gw.DialContext),
	}, gw, nil
}

func simServices(_ context.Context, cfg *config.Config, log logr.Logger) (provisioning.Services, io.Closer, error) {
	opts := sim.DefaultOptions(cfg.Site)
	if u := cfg.APIUser(); u != "" {
		opts.User = u
	}
	opts.Log = log
	tb := sim.New(opts)
	if err := tb.Start(); err != nil {
		return provisioning.Services{}, nil, fmt.Errorf("failed to start simulated testbed: %w", err)
	}
	log.V(1).Info("running against the simulated testbed", "site", cfg.Site)
	return tb.Services(cfg.Distem.Port), tb, nil
}
