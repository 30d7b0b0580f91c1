package distem

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// VIface is one interface of a virtual node as reported by the coordinator.
type VIface struct {
	Name     string `json:"name"`
	Address  string `json:"address"`
	VNetwork string `json:"vnetwork"`
}

// VNode is a virtual node as reported by the coordinator.
type VNode struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"`
	Host    string   `json:"host"`
	VIfaces []VIface `json:"vifaces"`
}

// Address returns the first interface address with its mask stripped.
func (v VNode) Address() (string, bool) {
	for _, vi := range v.VIfaces {
		if vi.Address == "" {
			continue
		}
		if p, err := netip.ParsePrefix(vi.Address); err == nil {
			return p.Addr().String(), true
		}
		addr, _, _ := strings.Cut(vi.Address, "/")
		if a, err := netip.ParseAddr(addr); err == nil {
			return a.String(), true
		}
	}
	return "", false
}

// StatusRunning is the status of a started virtual node.
const StatusRunning = "RUNNING"

// Running reports whether the coordinator considers the node started. An
// empty status, as returned by coordinators that do not report it, counts
// as running.
func (v VNode) Running() bool {
	return v.Status == "" || strings.EqualFold(v.Status, StatusRunning)
}

// DialContextFunc opens network connections, e.g. through an SSH tunnel.
type DialContextFunc func(ctx context.Context, network, addr string) (net.Conn, error)

// InventoryClient reads /vnodes/ from a coordinator.
type InventoryClient struct {
	port       int
	httpClient *http.Client
}

// NewInventoryClient creates a client for coordinators listening on port.
// dial may be nil to use direct connections.
func NewInventoryClient(port int, dial DialContextFunc) *InventoryClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if dial != nil {
		transport.DialContext = dial
		transport.Proxy = nil
	}
	return &InventoryClient{
		port:       port,
		httpClient: &http.Client{Transport: transport, Timeout: 5 * time.Minute},
	}
}

// VNodes returns every virtual node known to coordinator, ordered by the
// numeric suffix of their names.
func (c *InventoryClient) VNodes(ctx context.Context, coordinator string) ([]VNode, error) {
	u := "http://" + net.JoinHostPort(coordinator, strconv.Itoa(c.port)) + "/vnodes/?"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query vnodes on %s: %w", coordinator, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query vnodes on %s: status %d: %s", coordinator, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var nodes []VNode
	if err := json.Unmarshal(body, &nodes); err != nil {
		return nil, fmt.Errorf("parse vnodes: %w", err)
	}
	slices.SortStableFunc(nodes, func(a, b VNode) int { return naming.CompareVNodes(a.Name, b.Name) })
	return nodes, nil
}
