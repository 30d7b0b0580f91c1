package sim

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-logr/logr"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
)

// DefaultUser owns the jobs submitted to a testbed.
const DefaultUser = "vdc"

// Options describes the simulated site.
type Options struct {
	Site string
	// Clusters maps a cluster name to its number of hosts.
	Clusters map[string]int
	// Subnets are the /22 blocks the site can hand out.
	Subnets []string
	User    string
	// LaunchAfter is how many Job calls a waiting job needs before it runs.
	LaunchAfter int
	// DeadHosts can never be reserved.
	DeadHosts []string
	// FailDeploy lists hosts whose deployment fails (full or short names).
	FailDeploy []string
	// FailVNodes lists virtual node names whose creation fails.
	FailVNodes []string
	Now        func() time.Time
	Log        logr.Logger
}

// DefaultOptions returns a small site with three clusters and four subnets.
func DefaultOptions(site string) Options {
	return Options{
		Site:     site,
		Clusters: map[string]int{"graphene": 24, "griffon": 16, "sagittaire": 8},
		Subnets:  []string{"10.144.0.0/22", "10.144.4.0/22", "10.144.8.0/22", "10.144.12.0/22"},
		User:     DefaultUser,
	}
}

// Testbed is the simulated site. It is safe for concurrent use.
type Testbed struct {
	opts  Options
	hosts []string
	log   logr.Logger

	mu       sync.Mutex
	jobs     []*job
	nextUID  int64
	deployed map[string]bool
	files    map[string]map[string][]byte
	fabric   *fabric

	listener net.Listener
	server   *http.Server
}

// New creates a testbed. Call Start before using its inventory endpoint.
func New(opts Options) *Testbed {
	if opts.User == "" {
		opts.User = DefaultUser
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	tb := &Testbed{
		opts:     opts,
		log:      opts.Log.WithName("sim"),
		nextUID:  1000,
		deployed: make(map[string]bool),
		files:    make(map[string]map[string][]byte),
	}
	for _, cluster := range slices.Sorted(maps.Keys(opts.Clusters)) {
		for i := range opts.Clusters[cluster] {
			tb.hosts = append(tb.hosts, fmt.Sprintf("%s-%d.%s.grid5000.fr", cluster, i+1, opts.Site))
		}
	}
	return tb
}

// Start serves the Distem REST endpoint on a loopback port.
func (tb *Testbed) Start() error {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	r := chi.NewRouter()
	tb.RegisterRoutes(r)

	tb.listener = l
	tb.server = &http.Server{Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := tb.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			tb.log.Error(err, "distem endpoint stopped")
		}
	}()
	return nil
}

// Close stops the REST endpoint.
func (tb *Testbed) Close() error {
	if tb.server == nil {
		return nil
	}
	return tb.server.Close()
}

// DialContext connects to the REST endpoint when addr names the current
// coordinator, whatever the port, and refuses otherwise.
func (tb *Testbed) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	tb.mu.Lock()
	ok := tb.fabric != nil && tb.fabric.coordinator == host
	tb.mu.Unlock()
	if !ok || tb.listener == nil {
		return nil, &net.OpError{Op: "dial", Net: network, Err: fmt.Errorf("connect to %s: connection refused", addr)}
	}
	var d net.Dialer
	return d.DialContext(ctx, "tcp", tb.listener.Addr().String())
}

// Services returns the testbed as the pipeline's collaborators.
func (tb *Testbed) Services(distemPort int) provisioning.Services {
	return provisioning.Services{
		Scheduler: tb,
		Deployer:  tb,
		Gateway:   tb,
		Inventory: distem.NewInventoryClient(distemPort, tb.DialContext),
	}
}

// Hosts returns every host of the site in cluster order.
func (tb *Testbed) Hosts() []string {
	return slices.Clone(tb.hosts)
}

// AddJob registers an existing job, e.g. one left over from a previous run.
func (tb *Testbed) AddJob(j g5k.Job, walltime time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if j.UID == 0 {
		j.UID = tb.nextUID
		tb.nextUID++
	}
	if j.User == "" {
		j.User = tb.opts.User
	}
	j.Site = tb.opts.Site
	if j.Walltime == 0 {
		j.Walltime = int64(walltime / time.Second)
	}
	tb.jobs = append(tb.jobs, &job{Job: j, start: tb.opts.Now()})
}

// Submitted returns the specs of the jobs submitted so far.
func (tb *Testbed) Submitted() []g5k.JobSpec {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	var specs []g5k.JobSpec
	for _, j := range tb.jobs {
		if j.spec != nil {
			specs = append(specs, *j.spec)
		}
	}
	return specs
}

// Coordinator returns the coordinator of the running fabric, or "".
func (tb *Testbed) Coordinator() string {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.fabric == nil {
		return ""
	}
	return tb.fabric.coordinator
}

// VNodes returns the virtual nodes of the running fabric.
func (tb *Testbed) VNodes() []distem.VNode {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	if tb.fabric == nil {
		return nil
	}
	return tb.fabric.list()
}

func (tb *Testbed) frontend(host string) bool {
	return host == tb.opts.Site
}

// listed reports whether host appears in list by full or short name.
func listed(list []string, host string) bool {
	short, _, _ := strings.Cut(host, ".")
	return slices.Contains(list, host) || slices.Contains(list, short)
}

// subnetFree reports whether no unfinished job holds prefix.
func (tb *Testbed) subnetFree(prefix string) bool {
	for _, j := range tb.jobs {
		if !j.Finished() && slices.Contains(j.ResourcesByType.Subnets, prefix) {
			return false
		}
	}
	return true
}

func nextAddr(p netip.Prefix, used int) (string, bool) {
	a := p.Masked().Addr()
	for range used + 1 {
		a = a.Next()
	}
	if !p.Contains(a) || !p.Contains(a.Next()) {
		return "", false
	}
	return netip.PrefixFrom(a, p.Bits()).String(), true
}
