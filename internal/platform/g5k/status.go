package g5k

import (
	"context"
	"fmt"
	"net/http"
	"net/netip"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// statusResponse is the subset of /sites/{site}/status used for planning.
type statusResponse struct {
	Nodes   map[string]nodeStatus   `json:"nodes"`
	Subnets map[string]subnetStatus `json:"subnets"`
}

type nodeStatus struct {
	Hard         string              `json:"hard"`
	Reservations []statusReservation `json:"reservations"`
}

type subnetStatus struct {
	Reservations []statusReservation `json:"reservations"`
}

type statusReservation struct {
	UID         int64  `json:"uid"`
	State       string `json:"state"`
	StartedAt   int64  `json:"started_at"`
	ScheduledAt int64  `json:"scheduled_at"`
	Walltime    int64  `json:"walltime"`
}

// interval converts a reservation to a busy period. Reservations with no
// known start are assumed to start now.
func (r statusReservation) interval(now time.Time) Interval {
	start := now
	switch {
	case r.StartedAt > 0:
		start = time.Unix(r.StartedAt, 0)
	case r.ScheduledAt > 0:
		start = time.Unix(r.ScheduledAt, 0)
	}
	return Interval{Start: start, End: start.Add(time.Duration(r.Walltime) * time.Second)}
}

// Planning builds the availability of site from its status, including
// waiting jobs. Busy periods ending before now or starting after
// now+horizon are dropped.
func (c *Client) Planning(ctx context.Context, site string, horizon time.Duration, subnetResource string) (*Planning, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/sites/%s/status?waitingjobs=yes", site), nil)
	if err != nil {
		return nil, err
	}

	var resp statusResponse
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("get status of %s: %w", site, err)
	}

	now := c.now()
	plan := &Planning{Site: site, At: now, Horizon: horizon}

	for name, st := range resp.Nodes {
		plan.Hosts = append(plan.Hosts, Resource{
			Name:    name,
			Cluster: naming.HostCluster(name),
			Dead:    st.Hard == "dead" || st.Hard == "absent",
			Busy:    clip(st.Reservations, now, horizon),
		})
	}
	sort.Slice(plan.Hosts, func(i, j int) bool {
		return naming.CompareHosts(plan.Hosts[i].Name, plan.Hosts[j].Name) < 0
	})

	if subnetResource != "" {
		bits, sized := SubnetBits(subnetResource)
		for name, st := range resp.Subnets {
			if sized {
				p, err := netip.ParsePrefix(name)
				if err != nil || p.Bits() != bits {
					continue
				}
			}
			plan.Subnets = append(plan.Subnets, Resource{
				Name: name,
				Busy: clip(st.Reservations, now, horizon),
			})
		}
		sort.Slice(plan.Subnets, func(i, j int) bool { return plan.Subnets[i].Name < plan.Subnets[j].Name })
	}

	return plan, nil
}

func clip(reservations []statusReservation, now time.Time, horizon time.Duration) []Interval {
	limit := now.Add(horizon)
	var out []Interval
	for _, r := range reservations {
		iv := r.interval(now)
		if !iv.End.After(now) {
			continue
		}
		if horizon > 0 && !iv.Start.Before(limit) {
			continue
		}
		out = append(out, iv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// SubnetBits returns the prefix length encoded in an OAR subnet resource
// type such as "slash_22".
func SubnetBits(resource string) (int, bool) {
	n, ok := strings.CutPrefix(resource, "slash_")
	if !ok {
		return 0, false
	}
	bits, err := strconv.Atoi(n)
	if err != nil || bits < 0 || bits > 32 {
		return 0, false
	}
	return bits, true
}
