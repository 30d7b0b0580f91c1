package vnodes

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/nodelist"
	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/util/async"
)

const phase = "vnodes"

// Provisioner creates the virtual nodes and writes the node list.
type Provisioner struct{}

// NewProvisioner creates a new virtual node provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	// 1. Create, attach and start every node in batches
	if err := p.CreateVNodes(ctx); err != nil {
		return err
	}

	// 2. Read back what the coordinator runs
	if err := p.CollectRecords(ctx); err != nil {
		return err
	}

	// 3. Persist the node list
	return p.WriteNodeList(ctx)
}

// CreateVNodes distributes the requested nodes over the deployed hosts and
// runs one script per node against the coordinator. Failed scripts are
// recorded and logged but never retried nor allowed to stop later batches.
func (p *Provisioner) CreateVNodes(ctx *provisioning.Context) error {
	cfg := ctx.Config
	st := ctx.State
	if st.Coordinator == "" || len(st.DeployedHosts) == 0 {
		return fmt.Errorf("no coordinator: %w", provisioning.ErrNoDeployedHosts)
	}

	assignments, dropped := Distribute(cfg.VirtualNodes, st.DeployedHosts, cfg.Remainder)
	st.Dropped = dropped
	if dropped > 0 {
		provisioning.Note(ctx.Observer, provisioning.EventAnomaly, phase, "virtual nodes dropped by remainder policy", map[string]string{
			"dropped": strconv.Itoa(dropped),
			"policy":  string(cfg.Remainder),
		})
	}

	specs := Specs(assignments, cfg.RootFS, cfg.Distem.Interface, st.VNetwork)
	tasks := make([]async.Task, 0, len(specs))
	st.Requested = make([]string, 0, len(specs))
	for _, spec := range specs {
		st.Requested = append(st.Requested, spec.Name)
		tasks = append(tasks, p.task(ctx, spec))
	}

	ctx.Observer.Printf("[%s] Creating %d virtual nodes on %d hosts in batches of %d",
		phase, len(specs), len(st.DeployedHosts), cfg.BatchSize)

	done := 0
	batchStart := time.Now()
	outcomes := async.RunBatches(ctx, tasks, cfg.BatchSize, func(b async.Batch, outcomes []async.Outcome) {
		ctx.Metrics.ObserveBatch(b.Size, time.Since(batchStart))
		done += b.Size
		ctx.Observer.Progress(phase, done, len(tasks))
		if failed := async.Failed(outcomes); len(failed) > 0 {
			provisioning.Note(ctx.Observer, provisioning.EventPartialFailure, phase, "virtual node scripts failed", map[string]string{
				"batch":  fmt.Sprintf("%d/%d", b.Index+1, b.Total),
				"failed": strconv.Itoa(len(failed)),
			})
		}
		batchStart = time.Now()
	})

	for _, o := range async.Failed(outcomes) {
		st.FailedCommands = append(st.FailedCommands, o.Name)
		provisioning.Note(ctx.Observer, provisioning.EventDebug, phase, "script failed", map[string]string{
			"vnode": o.Name,
			"error": o.Err.Error(),
		})
	}
	return ctx.Err()
}

// task runs the create, attach and start script of one node on the coordinator.
func (p *Provisioner) task(ctx *provisioning.Context, spec distem.VNodeSpec) async.Task {
	coordinator := ctx.State.Coordinator
	script := distem.VNodeScript(spec)
	return async.Task{
		Name: spec.Name,
		Func: func(tctx context.Context) error {
			res := ctx.Gateway.Run(tctx, coordinator, script)
			ctx.Metrics.CountVNodeCommand(res.Succeeded)
			if res.Succeeded {
				return nil
			}
			err := res.Err
			if err == nil {
				err = fmt.Errorf("script failed")
			}
			return &provisioning.RemoteError{Host: coordinator, Output: strings.TrimSpace(res.Output), Err: err}
		},
	}
}

// CollectRecords queries the coordinator inventory and keeps every running
// node that has an address, ordered by node index.
func (p *Provisioner) CollectRecords(ctx *provisioning.Context) error {
	st := ctx.State
	nodes, err := ctx.Inventory.VNodes(ctx, st.Coordinator)
	if err != nil {
		return fmt.Errorf("%w: %w", provisioning.ErrInventoryQuery, err)
	}

	records := make([]nodelist.Record, 0, len(nodes))
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if !n.Running() {
			provisioning.Note(ctx.Observer, provisioning.EventAnomaly, phase, "virtual node is not running", map[string]string{
				"vnode":  n.Name,
				"status": n.Status,
			})
			continue
		}
		addr, ok := n.Address()
		if !ok {
			provisioning.Note(ctx.Observer, provisioning.EventAnomaly, phase, "virtual node has no interface address", map[string]string{
				"vnode": n.Name,
			})
			continue
		}
		seen[n.Name] = true
		records = append(records, nodelist.Record{Address: addr, Name: n.Name})
	}
	nodelist.Sort(records)
	st.Records = records
	ctx.Metrics.SetVNodesRunning(len(records))

	st.Missing = nil
	for _, name := range st.Requested {
		if !seen[name] {
			st.Missing = append(st.Missing, name)
		}
	}
	if len(st.Missing) > 0 {
		provisioning.Note(ctx.Observer, provisioning.EventPartialFailure, phase, "requested virtual nodes are not running", map[string]string{
			"missing": strconv.Itoa(len(st.Missing)),
			"vnodes":  strings.Join(st.Missing, " "),
		})
	}
	ctx.Observer.Printf("[%s] %d of %d requested virtual nodes are running", phase, len(records), len(st.Requested))

	if len(records) == 0 && ctx.Config.RequireVNodes {
		return provisioning.ErrEmptyInventory
	}
	return nil
}

// WriteNodeList atomically replaces the configured output with the records.
func (p *Provisioner) WriteNodeList(ctx *provisioning.Context) error {
	path := ctx.Config.Output
	records := slices.Clone(ctx.State.Records)
	if err := nodelist.Write(path, records); err != nil {
		return err
	}
	ctx.State.Artifact = path
	ctx.Observer.Printf("[%s] Wrote %d virtual nodes to %s", phase, len(records), path)
	return nil
}
