// Package distem drives the Distem virtualization fabric.
//
// Commands are built as structured argument lists (remote.Command) and run
// through a remote.Gateway; the node inventory is read from the
// coordinator's REST endpoint.
package distem
