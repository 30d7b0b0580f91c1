package vnodes

import (
	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// Assignment is the contiguous block of node indices given to one host.
type Assignment struct {
	Host  string
	First int // 1-based index of the first node
	Count int
}

// Names returns the node names of the block in index order.
func (a Assignment) Names() []string {
	names := make([]string, a.Count)
	for j := range a.Count {
		names[j] = naming.VNode(a.First + j)
	}
	return names
}

// Distribute splits count nodes over hosts, in host order. Each host gets
// floor(count/len(hosts)) nodes. With RemainderSpread the first
// count mod len(hosts) hosts get one more; with RemainderDrop those nodes
// are not assigned and their number is returned as dropped.
// Indices are contiguous per host and start at 1.
func Distribute(count int, hosts []string, policy config.RemainderPolicy) (assignments []Assignment, dropped int) {
	if len(hosts) == 0 || count <= 0 {
		return nil, max(count, 0)
	}

	perHost := count / len(hosts)
	remainder := count % len(hosts)
	if policy == config.RemainderDrop {
		dropped, remainder = remainder, 0
	}

	next := 1
	for i, h := range hosts {
		n := perHost
		if i < remainder {
			n++
		}
		if n == 0 {
			continue
		}
		assignments = append(assignments, Assignment{Host: h, First: next, Count: n})
		next += n
	}
	return assignments, dropped
}

// Specs expands assignments into one node spec per node, in index order.
func Specs(assignments []Assignment, rootfs, iface, network string) []distem.VNodeSpec {
	var specs []distem.VNodeSpec
	for _, a := range assignments {
		for _, name := range a.Names() {
			specs = append(specs, distem.VNodeSpec{
				Name:      name,
				PNode:     a.Host,
				RootFS:    rootfs,
				Interface: iface,
				Network:   network,
			})
		}
	}
	return specs
}
