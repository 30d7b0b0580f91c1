package reservation

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// Slot is a start time together with what is free for a whole walltime from it.
type Slot struct {
	Start time.Time
	End   time.Time
	// Hosts maps each cluster to its free hosts, sorted.
	Hosts   map[string][]string
	Subnets []string
}

// FreeHosts returns the number of free hosts over all clusters.
func (s Slot) FreeHosts() int {
	n := 0
	for _, hosts := range s.Hosts {
		n += len(hosts)
	}
	return n
}

func (s Slot) String() string {
	clusters := make([]string, 0, len(s.Hosts))
	for _, c := range slices.Sorted(maps.Keys(s.Hosts)) {
		clusters = append(clusters, fmt.Sprintf("%s=%d", c, len(s.Hosts[c])))
	}
	return fmt.Sprintf("%s [%s] subnets=%d", s.Start.Format(time.RFC3339), strings.Join(clusters, " "), len(s.Subnets))
}

// Blacklist excludes clusters and individual hosts from scheduling.
type Blacklist []string

// Excludes reports whether host or its cluster is listed.
func (b Blacklist) Excludes(host string) bool {
	short, _, _ := strings.Cut(host, ".")
	cluster := naming.HostCluster(host)
	for _, entry := range b {
		if entry == host || entry == short || (cluster != "" && entry == cluster) {
			return true
		}
	}
	return false
}

// ComputeSlots lists the candidate slots of walltime length in planning.
// Candidates start at the planning time and at every end of a busy period
// inside the horizon. A slot must end within the horizon, beyond which
// availability is unknown. Subnets are considered only when withSubnet is
// set. Slots are returned by ascending start.
func ComputeSlots(planning *g5k.Planning, walltime time.Duration, blacklist Blacklist, withSubnet bool) []Slot {
	now := planning.At
	limit := now.Add(planning.Horizon)

	resources := slices.Clone(planning.Hosts)
	if withSubnet {
		resources = append(resources, planning.Subnets...)
	}
	starts := []time.Time{now}
	for _, r := range resources {
		for _, b := range r.Busy {
			if b.End.After(now) && b.End.Before(limit) {
				starts = append(starts, b.End)
			}
		}
	}
	slices.SortFunc(starts, time.Time.Compare)
	starts = slices.CompactFunc(starts, time.Time.Equal)

	var slots []Slot
	for _, start := range starts {
		end := start.Add(walltime)
		if end.After(limit) {
			break
		}
		slot := Slot{Start: start, End: end, Hosts: map[string][]string{}}
		for _, h := range planning.Hosts {
			if blacklist.Excludes(h.Name) || !h.FreeDuring(start, end) {
				continue
			}
			cluster := h.Cluster
			if cluster == "" {
				cluster = naming.HostCluster(h.Name)
			}
			slot.Hosts[cluster] = append(slot.Hosts[cluster], h.Name)
		}
		for c := range slot.Hosts {
			slices.SortFunc(slot.Hosts[c], naming.CompareHosts)
		}
		if withSubnet {
			for _, s := range planning.Subnets {
				if s.FreeDuring(start, end) {
					slot.Subnets = append(slot.Subnets, s.Name)
				}
			}
		}
		slots = append(slots, slot)
	}
	return slots
}

// FindFreeSlot returns the earliest slot with at least nodes free hosts and,
// when withSubnet is set, a free subnet block.
func FindFreeSlot(slots []Slot, nodes int, withSubnet bool) (Slot, error) {
	for _, s := range slots {
		if s.FreeHosts() < nodes {
			continue
		}
		if withSubnet && len(s.Subnets) == 0 {
			continue
		}
		return s, nil
	}
	return Slot{}, fmt.Errorf("%w for %d nodes", provisioning.ErrNoFreeSlot, nodes)
}

// Share is the number of hosts taken from one cluster.
type Share struct {
	Cluster string
	Nodes   int
}

// DistributeHosts spreads nodes over the clusters of slot, filling the
// clusters with the most free hosts first (ties by name).
func DistributeHosts(slot Slot, nodes int) []Share {
	clusters := slices.Collect(maps.Keys(slot.Hosts))
	slices.SortFunc(clusters, func(a, b string) int {
		if c := cmp.Compare(len(slot.Hosts[b]), len(slot.Hosts[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	var shares []Share
	for _, c := range clusters {
		if nodes == 0 {
			break
		}
		n := min(nodes, len(slot.Hosts[c]))
		if n == 0 {
			continue
		}
		shares = append(shares, Share{Cluster: c, Nodes: n})
		nodes -= n
	}
	return shares
}
