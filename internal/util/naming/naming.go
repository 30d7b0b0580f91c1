package naming

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// VNodePrefix is the name prefix shared by all virtual nodes.
const VNodePrefix = "node-"

// ControlFilePrefix prefixes the temporary host list uploaded for the fabric bootstrap.
const ControlFilePrefix = "distem_nodes_"

// Host is the parsed form of a Grid'5000 node address.
type Host struct {
	Cluster string
	Index   int
	Site    string
}

// ParseHost splits "graphene-12.nancy.grid5000.fr" into cluster, index and site.
// The site is empty for short names such as "graphene-12".
func ParseHost(address string) (Host, error) {
	short, rest, _ := strings.Cut(address, ".")
	dash := strings.LastIndex(short, "-")
	if dash <= 0 || dash == len(short)-1 {
		return Host{}, fmt.Errorf("host %q does not follow the <cluster>-<index> scheme", address)
	}
	index, err := strconv.Atoi(short[dash+1:])
	if err != nil {
		return Host{}, fmt.Errorf("host %q has a non-numeric index: %w", address, err)
	}
	site, _, _ := strings.Cut(rest, ".")
	return Host{Cluster: short[:dash], Index: index, Site: site}, nil
}

// HostCluster returns the cluster part of a node address, or "" if it cannot be parsed.
func HostCluster(address string) string {
	h, err := ParseHost(address)
	if err != nil {
		return ""
	}
	return h.Cluster
}

// HostSite returns the site of a fully qualified node address.
// Short names (site frontends) are returned unchanged.
func HostSite(address string) string {
	_, rest, found := strings.Cut(address, ".")
	if !found {
		return address
	}
	site, _, _ := strings.Cut(rest, ".")
	return site
}

// CompareHosts orders node addresses by cluster name, then numeric index.
// Addresses that do not follow the naming scheme sort after the others, lexically.
func CompareHosts(a, b string) int {
	ha, errA := ParseHost(a)
	hb, errB := ParseHost(b)
	switch {
	case errA != nil && errB != nil:
		return strings.Compare(a, b)
	case errA != nil:
		return 1
	case errB != nil:
		return -1
	}
	if c := cmp.Compare(ha.Cluster, hb.Cluster); c != 0 {
		return c
	}
	if c := cmp.Compare(ha.Index, hb.Index); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortHosts returns a sorted copy of hosts.
func SortHosts(hosts []string) []string {
	sorted := slices.Clone(hosts)
	slices.SortFunc(sorted, CompareHosts)
	return sorted
}

// VNode returns the name of the virtual node with the given 1-based index.
func VNode(index int) string {
	return fmt.Sprintf("%s%d", VNodePrefix, index)
}

// VNodeIndex extracts the numeric suffix of a virtual node name.
func VNodeIndex(name string) (int, bool) {
	i := strings.LastIndex(name, "-")
	if i < 0 || i == len(name)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}

// CompareVNodes orders virtual node names by numeric suffix. Names without a
// numeric suffix sort last, lexically.
func CompareVNodes(a, b string) int {
	ia, okA := VNodeIndex(a)
	ib, okB := VNodeIndex(b)
	switch {
	case !okA && !okB:
		return strings.Compare(a, b)
	case !okA:
		return 1
	case !okB:
		return -1
	}
	if c := cmp.Compare(ia, ib); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}
