package sim

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/lpouillo/google-dc-g5k/internal/platform/distem"
	"github.com/lpouillo/google-dc-g5k/internal/remote"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
)

// errExit is the error of a script whose last command failed.
var errExit = errors.New("exit status 1")

// fabric is the state of a bootstrapped Distem installation.
type fabric struct {
	coordinator string
	pnodes      []string
	networks    map[string]*vnetwork
	vnodes      map[string]*distem.VNode
}

type vnetwork struct {
	prefix netip.Prefix
	used   int
}

func (f *fabric) list() []distem.VNode {
	out := make([]distem.VNode, 0, len(f.vnodes))
	for _, v := range f.vnodes {
		n := *v
		n.VIfaces = slices.Clone(v.VIfaces)
		out = append(out, n)
	}
	// Lexical order, as the real endpoint returns; clients sort by suffix.
	slices.SortFunc(out, func(a, b distem.VNode) int { return strings.Compare(a.Name, b.Name) })
	return out
}

func (tb *Testbed) reachable(host string) bool {
	return tb.frontend(host) || tb.deployed[host]
}

// Put implements remote.Gateway.
func (tb *Testbed) Put(ctx context.Context, host, localPath, remoteDir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// #nosec G304
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", localPath, err)
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if !tb.reachable(host) {
		return fmt.Errorf("ssh: dial %s: no route to host", host)
	}
	if tb.files[host] == nil {
		tb.files[host] = make(map[string][]byte)
	}
	tb.files[host][path.Join(remoteDir, filepath.Base(localPath))] = data
	return nil
}

// Run implements remote.Gateway. Commands run in order whatever their
// status; the result follows the last one, as in a shell.
func (tb *Testbed) Run(ctx context.Context, host string, script remote.Script) remote.Result {
	res := remote.Result{Host: host}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()
	if !tb.reachable(host) {
		res.Err = fmt.Errorf("ssh: dial %s: no route to host", host)
		return res
	}

	var out strings.Builder
	var last error
	for _, cmd := range script {
		msg, err := tb.exec(host, cmd)
		if msg != "" {
			out.WriteString(msg + "\n")
		}
		if err != nil {
			out.WriteString(err.Error() + "\n")
		}
		last = err
	}
	res.Output = out.String()
	if last != nil {
		res.Err = errExit
		tb.log.V(2).Info("script failed", "host", host, "script", script.String())
		return res
	}
	res.Succeeded = true
	return res
}

func (tb *Testbed) exec(host string, cmd remote.Command) (string, error) {
	switch cmd.Program {
	case distem.BootstrapProgram:
		return tb.bootstrap(host, cmd.Args)
	case distem.Program:
		return tb.distem(host, cmd.Args)
	default:
		return "", fmt.Errorf("%s: command not found", cmd.Program)
	}
}

func (tb *Testbed) bootstrap(host string, args []string) (string, error) {
	if !tb.frontend(host) {
		return "", fmt.Errorf("distem-bootstrap: must be run from a frontend")
	}
	if len(args) != 2 || args[0] != "-f" {
		return "", fmt.Errorf("distem-bootstrap: usage: distem-bootstrap -f <nodes file>")
	}
	data, ok := tb.files[host][args[1]]
	if !ok {
		return "", fmt.Errorf("distem-bootstrap: %s: no such file", args[1])
	}

	var pnodes []string
	for line := range strings.Lines(string(data)) {
		if h := strings.TrimSpace(line); h != "" {
			if !tb.deployed[h] {
				return "", fmt.Errorf("distem-bootstrap: %s is not reachable as root", h)
			}
			pnodes = append(pnodes, h)
		}
	}
	if len(pnodes) == 0 {
		return "", fmt.Errorf("distem-bootstrap: empty nodes file")
	}
	tb.fabric = &fabric{
		coordinator: pnodes[0],
		pnodes:      pnodes,
		networks:    make(map[string]*vnetwork),
		vnodes:      make(map[string]*distem.VNode),
	}
	tb.log.V(1).Info("fabric bootstrapped", "coordinator", pnodes[0], "pnodes", len(pnodes))
	return fmt.Sprintf("Distem started on %d nodes, coordinator %s", len(pnodes), pnodes[0]), nil
}

func (tb *Testbed) distem(host string, args []string) (string, error) {
	f := tb.fabric
	if f == nil || !slices.Contains(f.pnodes, host) {
		return "", fmt.Errorf("distem: cannot reach the coordinator")
	}
	var action, value string
	for i := 0; i+1 < len(args); i += 2 {
		switch args[i] {
		case "--coordinator":
			if p := params(args[i+1]); p["host"] != f.coordinator {
				return "", fmt.Errorf("distem: %s is not the coordinator", p["host"])
			}
		default:
			action, value = args[i], args[i+1]
		}
	}

	switch action {
	case "--create-vnetwork":
		return f.createVNetwork(params(value))
	case "--create-vnode":
		return tb.createVNode(params(value))
	case "--create-viface":
		return f.createVIface(params(value))
	case "--start-vnode":
		return f.startVNode(value)
	default:
		return "", fmt.Errorf("distem: unknown action %q", action)
	}
}

func (f *fabric) createVNetwork(p map[string]string) (string, error) {
	prefix, err := netip.ParsePrefix(p["address"])
	if err != nil {
		return "", fmt.Errorf("distem: invalid address %q", p["address"])
	}
	if _, ok := f.networks[p["vnetwork"]]; ok {
		return "", fmt.Errorf("distem: vnetwork %s already exists", p["vnetwork"])
	}
	f.networks[p["vnetwork"]] = &vnetwork{prefix: prefix.Masked()}
	return fmt.Sprintf("vnetwork %s created on %s", p["vnetwork"], prefix.Masked()), nil
}

func (tb *Testbed) createVNode(p map[string]string) (string, error) {
	f := tb.fabric
	name := p["vnode"]
	switch {
	case listed(tb.opts.FailVNodes, name):
		return "", fmt.Errorf("distem: failed to create vnode %s: rootfs extraction failed", name)
	case f.vnodes[name] != nil:
		return "", fmt.Errorf("distem: vnode %s already exists", name)
	case !slices.Contains(f.pnodes, p["pnode"]):
		return "", fmt.Errorf("distem: unknown pnode %s", p["pnode"])
	case p["rootfs"] == "":
		return "", fmt.Errorf("distem: rootfs is required")
	}
	f.vnodes[name] = &distem.VNode{Name: name, Host: p["pnode"], Status: "READY"}
	return "vnode " + name + " created", nil
}

func (f *fabric) createVIface(p map[string]string) (string, error) {
	v := f.vnodes[p["vnode"]]
	if v == nil {
		return "", fmt.Errorf("distem: unknown vnode %s", p["vnode"])
	}
	n := f.networks[p["vnetwork"]]
	if n == nil {
		return "", fmt.Errorf("distem: unknown vnetwork %s", p["vnetwork"])
	}
	addr, ok := nextAddr(n.prefix, n.used)
	if !ok {
		return "", fmt.Errorf("distem: vnetwork %s is full", p["vnetwork"])
	}
	n.used++
	v.VIfaces = append(v.VIfaces, distem.VIface{Name: p["iface"], Address: addr, VNetwork: p["vnetwork"]})
	return fmt.Sprintf("viface %s.%s %s", v.Name, p["iface"], addr), nil
}

func (f *fabric) startVNode(name string) (string, error) {
	v := f.vnodes[name]
	if v == nil {
		return "", fmt.Errorf("distem: unknown vnode %s", name)
	}
	if _, ok := naming.VNodeIndex(name); !ok {
		return "", fmt.Errorf("distem: invalid vnode name %s", name)
	}
	v.Status = distem.StatusRunning
	return "vnode " + name + " started", nil
}

// params parses Distem's "k1=v1,k2=v2" form.
func params(s string) map[string]string {
	out := make(map[string]string)
	for _, kv := range strings.Split(s, ",") {
		k, v, _ := strings.Cut(kv, "=")
		out[k] = v
	}
	return out
}
