package distem

import (
	"fmt"
	"strings"

	"github.com/lpouillo/google-dc-g5k/internal/remote"
)

const (
	// Program is the Distem command-line client.
	Program = "distem"
	// BootstrapProgram installs and starts Distem on a host list.
	BootstrapProgram = "distem-bootstrap"
)

// VNodeSpec describes one virtual node to create.
type VNodeSpec struct {
	Name      string
	PNode     string
	RootFS    string
	Interface string
	Network   string
}

// Bootstrap returns the command that turns the hosts listed in nodesFile
// into a Distem fabric. The first host of the file becomes the coordinator.
func Bootstrap(nodesFile string) remote.Command {
	return remote.NewCommand(BootstrapProgram, "-f", nodesFile)
}

// CreateVNetwork returns the command creating network name over cidr,
// addressed to coordinator.
func CreateVNetwork(coordinator, name, cidr string) remote.Command {
	return remote.NewCommand(Program,
		"--coordinator", params("host", coordinator),
		"--create-vnetwork", params("vnetwork", name, "address", cidr))
}

// CreateVNode returns the command creating a virtual node on its physical host.
func CreateVNode(spec VNodeSpec) remote.Command {
	return remote.NewCommand(Program,
		"--create-vnode", params("vnode", spec.Name, "pnode", spec.PNode, "rootfs", spec.RootFS))
}

// CreateVIface returns the command attaching the node's interface to its network.
func CreateVIface(spec VNodeSpec) remote.Command {
	return remote.NewCommand(Program,
		"--create-viface", params("vnode", spec.Name, "iface", spec.Interface, "vnetwork", spec.Network))
}

// StartVNode returns the command starting a virtual node.
func StartVNode(name string) remote.Command {
	return remote.NewCommand(Program, "--start-vnode", name)
}

// VNodeScript returns create, attach and start for one node as a single script.
func VNodeScript(spec VNodeSpec) remote.Script {
	return remote.Script{
		CreateVNode(spec),
		CreateVIface(spec),
		StartVNode(spec.Name),
	}
}

// params renders Distem's "k1=v1,k2=v2" argument form.
func params(kv ...string) string {
	if len(kv)%2 != 0 {
		panic(fmt.Sprintf("distem: odd number of parameter elements: %v", kv))
	}
	parts := make([]string, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		parts = append(parts, kv[i]+"="+kv[i+1])
	}
	return strings.Join(parts, ",")
}
