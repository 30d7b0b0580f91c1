package reservation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
	"github.com/lpouillo/google-dc-g5k/internal/util/retry"
)

const phase = "reservation"

// Provisioner finds or submits the run's job and waits for its resources.
type Provisioner struct{}

// NewProvisioner creates a new reservation provisioner.
func NewProvisioner() *Provisioner {
	return &Provisioner{}
}

// Name implements the provisioning.Phase interface.
func (p *Provisioner) Name() string {
	return phase
}

// Provision implements the provisioning.Phase interface.
func (p *Provisioner) Provision(ctx *provisioning.Context) error {
	cfg := ctx.Config

	// 1. Reuse a job carrying our label
	job, err := p.FindJob(ctx)
	if err != nil {
		return err
	}

	// 2. Otherwise reserve the earliest free slot
	if job == nil {
		if job, err = p.Reserve(ctx); err != nil {
			return err
		}
	}
	ctx.State.Job = job

	// 3. Block until running
	ctx.Observer.Printf("[%s] Waiting for job %d to start...", phase, job.UID)
	job, err = p.WaitRunning(ctx, job)
	if err != nil {
		return err
	}
	ctx.State.Job = job

	// 4. Read back hosts and subnet
	hosts := naming.SortHosts(job.AssignedNodes)
	if len(hosts) != cfg.PhysicalNodes {
		provisioning.Note(ctx.Observer, provisioning.EventAnomaly, phase, "number of hosts in job does not match requested physical nodes", map[string]string{
			"granted":   strconv.Itoa(len(hosts)),
			"requested": strconv.Itoa(cfg.PhysicalNodes),
		})
	}
	if len(job.ResourcesByType.Subnets) == 0 {
		return fmt.Errorf("job %d: %w", job.UID, provisioning.ErrNoSubnet)
	}
	subnet, err := g5k.CoveringPrefix(job.ResourcesByType.Subnets)
	if err != nil {
		return fmt.Errorf("job %d: %w: %v", job.UID, provisioning.ErrNoSubnet, err)
	}

	ctx.State.Hosts = hosts
	ctx.State.Subnet = subnet
	ctx.Metrics.SetHosts(provisioning.HostsReserved, len(hosts))

	ctx.Observer.Printf("[%s] Hosts: %s", phase, strings.Join(hosts, " "))
	ctx.Observer.Printf("[%s] Virtual network: %s", phase, subnet)
	return nil
}

// FindJob returns the first running or waiting job of the user named after
// the run's label, or nil.
func (p *Provisioner) FindJob(ctx *provisioning.Context) (*g5k.Job, error) {
	cfg := ctx.Config
	ctx.Observer.Printf("[%s] Looking for a running job on %s", phase, cfg.Site)

	jobs, err := ctx.Scheduler.ListJobs(ctx, cfg.Site, cfg.APIUser())
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs on %s: %w", cfg.Site, err)
	}
	for i := range jobs {
		// The list may carry partial entries; the job view is authoritative.
		info, err := ctx.Scheduler.Job(ctx, cfg.Site, jobs[i].UID)
		if err != nil {
			return nil, fmt.Errorf("failed to get job %d on %s: %w", jobs[i].UID, cfg.Site, err)
		}
		if info.Name != cfg.JobName || info.Finished() {
			continue
		}
		info.Site = cfg.Site
		provisioning.LogResource(ctx.Observer, provisioning.EventResourceExists, phase, "job", info.Name, strconv.FormatInt(info.UID, 10))
		ctx.State.Reused = true
		return info, nil
	}
	return nil, nil
}

// Reserve submits a new job in the earliest slot holding the requested hosts
// and one subnet block.
func (p *Provisioner) Reserve(ctx *provisioning.Context) (*g5k.Job, error) {
	cfg := ctx.Config
	ctx.Observer.Printf("[%s] Performing a new reservation", phase)

	walltime, err := cfg.WalltimeDuration()
	if err != nil {
		return nil, err
	}
	blacklist := Blacklist(cfg.Blacklist)
	provisioning.Note(ctx.Observer, provisioning.EventDebug, phase, "blacklisted elements", map[string]string{
		"elements": strings.Join(blacklist, ","),
	})

	planning, err := ctx.Scheduler.Planning(ctx, cfg.Site, ctx.Timeouts.PlanningHorizon, cfg.SubnetResource)
	if err != nil {
		return nil, fmt.Errorf("failed to get planning of %s: %w", cfg.Site, err)
	}

	withSubnet := cfg.SubnetResource != ""
	slots := ComputeSlots(planning, walltime, blacklist, withSubnet)
	slot, err := FindFreeSlot(slots, cfg.PhysicalNodes, withSubnet)
	if err != nil {
		return nil, err
	}
	provisioning.Note(ctx.Observer, provisioning.EventDebug, phase, "selected slot", map[string]string{"slot": slot.String()})

	shares := DistributeHosts(slot, cfg.PhysicalNodes)
	for _, s := range shares {
		provisioning.Note(ctx.Observer, provisioning.EventDebug, phase, "cluster share", map[string]string{
			"cluster": s.Cluster,
			"nodes":   strconv.Itoa(s.Nodes),
		})
	}

	spec := JobSpec(cfg.JobName, cfg.SubnetResource, shares, walltime, slot.Start)
	provisioning.LogResource(ctx.Observer, provisioning.EventResourceCreating, phase, "job", spec.Name, "")
	job, err := ctx.Scheduler.Submit(ctx, cfg.Site, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to submit job on %s: %w", cfg.Site, err)
	}
	job.Site = cfg.Site
	provisioning.LogResource(ctx.Observer, provisioning.EventResourceCreated, phase, "job", spec.Name, strconv.FormatInt(job.UID, 10))
	ctx.Observer.Printf("[%s] Job %d will start at %s", phase, job.UID, slot.Start.Format(time.DateTime))
	return job, nil
}

// WaitRunning polls job until it is running. A job that terminates first
// fails with ErrReservationFailed; the reservation timeout bounds the wait
// with ErrReservationTimeout.
func (p *Provisioner) WaitRunning(ctx *provisioning.Context, job *g5k.Job) (*g5k.Job, error) {
	if job.Active() && len(job.AssignedNodes) > 0 {
		return job, nil
	}

	current := job
	err := retry.Poll(ctx, ctx.Timeouts.PollInterval, ctx.Timeouts.Reservation, func(pctx context.Context) (bool, error) {
		j, err := ctx.Scheduler.Job(pctx, job.Site, job.UID)
		if err != nil {
			return false, fmt.Errorf("failed to get job %d: %w", job.UID, err)
		}
		current = j
		if j.Finished() {
			return false, fmt.Errorf("job %d is %s: %w", job.UID, j.State, provisioning.ErrReservationFailed)
		}
		return j.Active(), nil
	})
	if errors.Is(err, retry.ErrTimeout) {
		return nil, fmt.Errorf("job %d still %s: %w", job.UID, current.State, provisioning.ErrReservationTimeout)
	}
	if err != nil {
		return nil, err
	}
	current.Site = job.Site
	return current, nil
}
