// Package vnodes creates the virtual nodes on a bootstrapped Distem fabric.
//
// The requested count is split over the deployed hosts, one create, attach
// and start script is built per node, and the scripts are run against the
// coordinator in serial batches that stay under its saturation point.
// The coordinator's inventory is then read back and every running node
// with an address is written to the node list.
package vnodes
