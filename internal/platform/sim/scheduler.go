package sim

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

var (
	clusterPart  = regexp.MustCompile(`\{cluster='([^']+)'\}/nodes=(\d+)`)
	subnetPart   = regexp.MustCompile(`^(slash_\d+)=(\d+)\+`)
	walltimePart = regexp.MustCompile(`,walltime=([0-9:]+)$`)
)

type job struct {
	g5k.Job
	spec  *g5k.JobSpec
	start time.Time
	polls int
}

func (j *job) end() time.Time {
	return j.start.Add(time.Duration(j.Walltime) * time.Second)
}

func (tb *Testbed) checkSite(site string) error {
	if site != tb.opts.Site {
		return &g5k.APIError{StatusCode: 404, Body: fmt.Sprintf("unknown site %q", site)}
	}
	return nil
}

// ListJobs implements g5k.Scheduler.
func (tb *Testbed) ListJobs(_ context.Context, site, user string) ([]g5k.Job, error) {
	if err := tb.checkSite(site); err != nil {
		return nil, err
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	var out []g5k.Job
	for _, j := range tb.jobs {
		if j.Finished() || (user != "" && j.User != user) {
			continue
		}
		out = append(out, j.Job)
	}
	return out, nil
}

// Job implements g5k.Scheduler. Each call moves a waiting job closer to
// running; it starts after Options.LaunchAfter calls.
func (tb *Testbed) Job(_ context.Context, site string, id int64) (*g5k.Job, error) {
	if err := tb.checkSite(site); err != nil {
		return nil, err
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	for _, j := range tb.jobs {
		if j.UID != id {
			continue
		}
		if j.State == g5k.JobWaiting || j.State == g5k.JobLaunching {
			j.polls++
			if j.polls > tb.opts.LaunchAfter {
				now := tb.opts.Now()
				if now.Before(j.start) {
					now = j.start
				}
				j.State = g5k.JobRunning
				j.StartedAt = now.Unix()
				tb.log.V(1).Info("job started", "uid", j.UID, "hosts", len(j.AssignedNodes))
			}
		}
		out := j.Job
		return &out, nil
	}
	return nil, &g5k.APIError{StatusCode: 404, Body: fmt.Sprintf("job %d not found", id)}
}

// Planning implements g5k.Scheduler from the jobs currently known.
func (tb *Testbed) Planning(_ context.Context, site string, horizon time.Duration, subnetResource string) (*g5k.Planning, error) {
	if err := tb.checkSite(site); err != nil {
		return nil, err
	}
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := tb.opts.Now()
	p := &g5k.Planning{Site: site, At: now, Horizon: horizon}
	for _, h := range tb.hosts {
		p.Hosts = append(p.Hosts, g5k.Resource{
			Name:    h,
			Cluster: naming.HostCluster(h),
			Dead:    listed(tb.opts.DeadHosts, h),
			Busy:    tb.busy(func(j *job) bool { return slices.Contains(j.AssignedNodes, h) }),
		})
	}
	if subnetResource != "" {
		for _, s := range tb.opts.Subnets {
			p.Subnets = append(p.Subnets, g5k.Resource{
				Name: s,
				Busy: tb.busy(func(j *job) bool { return slices.Contains(j.ResourcesByType.Subnets, s) }),
			})
		}
	}
	return p, nil
}

func (tb *Testbed) busy(holds func(*job) bool) []g5k.Interval {
	var out []g5k.Interval
	for _, j := range tb.jobs {
		if !j.Finished() && holds(j) {
			out = append(out, g5k.Interval{Start: j.start, End: j.end()})
		}
	}
	return out
}

// Submit implements g5k.Scheduler. Hosts and the subnet are picked when the
// job is accepted; a request that cannot be satisfied is rejected as OAR does.
func (tb *Testbed) Submit(_ context.Context, site string, spec g5k.JobSpec) (*g5k.Job, error) {
	if err := tb.checkSite(site); err != nil {
		return nil, err
	}
	walltime, err := specWalltime(spec.Resources)
	if err != nil {
		return nil, &g5k.APIError{StatusCode: 400, Body: err.Error()}
	}
	start := tb.opts.Now()
	if spec.Reservation > 0 {
		start = time.Unix(spec.Reservation, 0)
	}
	end := start.Add(walltime)

	tb.mu.Lock()
	defer tb.mu.Unlock()

	var nodes []string
	for _, m := range clusterPart.FindAllStringSubmatch(spec.Resources, -1) {
		want, _ := strconv.Atoi(m[2])
		got := tb.freeHosts(m[1], start, end, want)
		if len(got) < want {
			return nil, &g5k.APIError{StatusCode: 400, Body: fmt.Sprintf("not enough free hosts in cluster %s: %d < %d", m[1], len(got), want)}
		}
		nodes = append(nodes, got...)
	}
	if len(nodes) == 0 {
		return nil, &g5k.APIError{StatusCode: 400, Body: "no host requested"}
	}

	var subnets []string
	if subnetPart.MatchString(spec.Resources) {
		for _, s := range tb.opts.Subnets {
			if tb.subnetFree(s) {
				subnets = append(subnets, s)
				break
			}
		}
		if len(subnets) == 0 {
			return nil, &g5k.APIError{StatusCode: 400, Body: "no free subnet"}
		}
	}

	j := &job{
		Job: g5k.Job{
			UID:             tb.nextUID,
			Name:            spec.Name,
			User:            tb.opts.User,
			State:           g5k.JobWaiting,
			Site:            site,
			AssignedNodes:   naming.SortHosts(nodes),
			ResourcesByType: g5k.ResourcesByType{Subnets: subnets},
			ScheduledAt:     start.Unix(),
			Walltime:        int64(walltime / time.Second),
		},
		spec:  &spec,
		start: start,
	}
	tb.nextUID++
	tb.jobs = append(tb.jobs, j)
	tb.log.V(1).Info("job submitted", "uid", j.UID, "name", j.Name, "resources", spec.Resources)

	out := j.Job
	return &out, nil
}

func (tb *Testbed) freeHosts(cluster string, start, end time.Time, want int) []string {
	var out []string
	for _, h := range tb.hosts {
		if len(out) == want {
			break
		}
		if naming.HostCluster(h) != cluster || listed(tb.opts.DeadHosts, h) {
			continue
		}
		held := false
		for _, j := range tb.jobs {
			if !j.Finished() && slices.Contains(j.AssignedNodes, h) && j.start.Before(end) && start.Before(j.end()) {
				held = true
				break
			}
		}
		if !held {
			out = append(out, h)
		}
	}
	return out
}

func specWalltime(resources string) (time.Duration, error) {
	m := walltimePart.FindStringSubmatch(resources)
	if m == nil {
		return 0, fmt.Errorf("missing walltime in %q", resources)
	}
	return config.ParseWalltime(strings.TrimSpace(m[1]))
}
