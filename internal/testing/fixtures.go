package testing

import (
	"fmt"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// Hosts returns n fully qualified host names "<cluster>-<i>.<site>.grid5000.fr", i from 1.
func Hosts(cluster, site string, n int) []string {
	hosts := make([]string, n)
	for i := range n {
		hosts[i] = fmt.Sprintf("%s-%d.%s.grid5000.fr", cluster, i+1, site)
	}
	return hosts
}

// RunningJob returns an active job holding hosts and subnets.
func RunningJob(site, name string, hosts []string, subnets ...string) *g5k.Job {
	return &g5k.Job{
		UID:             1234,
		Name:            name,
		User:            "vdc",
		State:           g5k.JobRunning,
		Site:            site,
		AssignedNodes:   hosts,
		ResourcesByType: g5k.ResourcesByType{Subnets: subnets},
		StartedAt:       time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC).Unix(),
		Walltime:        int64((2 * time.Hour).Seconds()),
	}
}

// WaitingJob returns a job scheduled in the future with no resources yet.
func WaitingJob(site, name string) *g5k.Job {
	return &g5k.Job{
		UID:         1234,
		Name:        name,
		User:        "vdc",
		State:       g5k.JobWaiting,
		Site:        site,
		ScheduledAt: time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC).Unix(),
	}
}

// IdlePlanning returns a planning where every listed host and subnet is free.
func IdlePlanning(site string, at time.Time, hosts []string, subnets ...string) *g5k.Planning {
	p := &g5k.Planning{Site: site, At: at, Horizon: 72 * time.Hour}
	for _, h := range hosts {
		p.Hosts = append(p.Hosts, g5k.Resource{Name: h, Cluster: naming.HostCluster(h)})
	}
	for _, s := range subnets {
		p.Subnets = append(p.Subnets, g5k.Resource{Name: s})
	}
	return p
}

// Inventory returns Distem vnodes node-1..node-n addressed from 10.144.0.1.
func Inventory(n int) []distem.VNode {
	nodes := make([]distem.VNode, n)
	for i := range n {
		nodes[i] = distem.VNode{
			Name:   fmt.Sprintf("node-%d", i+1),
			Status: "RUNNING",
			VIfaces: []distem.VIface{{
				Name:     "if0",
				VNetwork: "vnetwork",
				Address:  fmt.Sprintf("10.144.%d.%d/22", (i+1)/256, (i+1)%256),
			}},
		}
	}
	return nodes
}
