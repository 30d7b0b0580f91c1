package fabric

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/remote"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

const phase = "fabric"

// Provisioner deploys the hosts and bootstraps Distem on them.
type Provisioner struct {
	// TempDir holds the control file. Empty means os.TempDir().
	TempDir string
}

// NewProvisioner creates a new fabric provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	// 1. Deploy and pick the coordinator
	if err := p.Deploy(ctx); err != nil {
		return err
	}

	// 2. Bootstrap Distem from the coordinator's frontend
	if err := p.Bootstrap(ctx); err != nil {
		return err
	}

	// 3. Shared virtual network
	if err := p.CreateVNetwork(ctx); err != nil {
		return err
	}

	ctx.Observer.Printf("[%s] Distem is ready to be used on %s", phase, ctx.State.Coordinator)
	return nil
}

// Deploy images the reserved hosts and records the deployed ones, sorted,
// with the first as coordinator.
func (p *Provisioner) Deploy(ctx *provisioning.Context) error {
	cfg := ctx.Config
	ctx.Observer.Printf("[%s] Deploying %s on %d hosts", phase, cfg.Environment, len(ctx.State.Hosts))

	res, err := ctx.Deployer.Deploy(ctx, ctx.State.Hosts, cfg.Environment)
	if err != nil {
		return fmt.Errorf("failed to deploy hosts: %w", err)
	}

	failed := naming.SortHosts(res.Failed)
	ctx.State.FailedHosts = failed
	ctx.Metrics.SetHosts(provisioning.HostsDeployed, len(res.Deployed))
	ctx.Metrics.SetHosts(provisioning.HostsFailed, len(failed))
	if len(failed) > 0 {
		provisioning.Note(ctx.Observer, provisioning.EventPartialFailure, phase, "hosts failed to deploy and are dropped", map[string]string{
			"count": strconv.Itoa(len(failed)),
			"hosts": strings.Join(failed, " "),
		})
	}

	if len(res.Deployed) == 0 {
		return provisioning.ErrNoDeployedHosts
	}

	deployed := naming.SortHosts(res.Deployed)
	ctx.State.DeployedHosts = deployed
	ctx.State.Coordinator = deployed[0]
	ctx.Observer.Printf("[%s] %d hosts deployed, coordinator is %s", phase, len(deployed), deployed[0])
	return nil
}

// Bootstrap uploads the deployed host list to the coordinator's site
// frontend and runs distem-bootstrap against it there.
func (p *Provisioner) Bootstrap(ctx *provisioning.Context) error {
	cfg := ctx.Config
	frontend := naming.HostSite(ctx.State.Coordinator)

	local, err := p.writeControlFile(ctx.State.DeployedHosts)
	if err != nil {
		return err
	}
	ctx.State.ControlFile = local

	if err := ctx.Gateway.Put(ctx, frontend, local, cfg.Distem.StagingDir); err != nil {
		return fmt.Errorf("failed to upload %s to %s: %w", local, frontend, err)
	}

	staged := path.Join(cfg.Distem.StagingDir, filepath.Base(local))
	ctx.Observer.Printf("[%s] Performing distem bootstrap", phase)
	script := remote.Script{distem.Bootstrap(staged)}
	provisioning.Note(ctx.Observer, provisioning.EventDebug, phase, "running", map[string]string{"host": frontend, "command": script.String()})

	res := ctx.Gateway.Run(ctx, frontend, script)
	if !res.Succeeded {
		return fmt.Errorf("%w: %w", provisioning.ErrFabricInstall, remoteError(frontend, res))
	}
	return nil
}

// CreateVNetwork creates the shared virtual network over the reserved subnet.
func (p *Provisioner) CreateVNetwork(ctx *provisioning.Context) error {
	cfg := ctx.Config
	coordinator := ctx.State.Coordinator
	name := cfg.Distem.Network

	provisioning.LogResource(ctx.Observer, provisioning.EventResourceCreating, phase, "vnetwork", name, "")
	script := remote.Script{distem.CreateVNetwork(coordinator, name, ctx.State.Subnet.String())}
	provisioning.Note(ctx.Observer, provisioning.EventDebug, phase, "running", map[string]string{"host": coordinator, "command": script.String()})

	res := ctx.Gateway.Run(ctx, coordinator, script)
	if !res.Succeeded {
		return fmt.Errorf("%w: %w", provisioning.ErrVNetworkCreate, remoteError(coordinator, res))
	}
	ctx.State.VNetwork = name
	provisioning.LogResource(ctx.Observer, provisioning.EventResourceCreated, phase, "vnetwork", name, ctx.State.Subnet.String())
	return nil
}

// writeControlFile writes hosts, one per line, to a new distem_nodes_* file.
func (p *Provisioner) writeControlFile(hosts []string) (string, error) {
	f, err := os.CreateTemp(p.TempDir, naming.ControlFilePrefix)
	if err != nil {
		return "", fmt.Errorf("failed to create control file: %w", err)
	}
	if _, err := f.WriteString(strings.Join(hosts, "\n") + "\n"); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write control file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close control file: %w", err)
	}
	return f.Name(), nil
}

func remoteError(host string, res remote.Result) error {
	err := res.Err
	if err == nil {
		err = fmt.Errorf("command failed")
	}
	return &provisioning.RemoteError{Host: host, Output: strings.TrimSpace(res.Output), Err: err}
}
