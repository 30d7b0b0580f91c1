// Package naming provides consistent naming and ordering for testbed resources.
//
// Grid'5000 nodes are named {cluster}-{index}.{site}.grid5000.fr. Hosts are
// always ordered by cluster name, then by numeric index, so the coordinator
// choice does not depend on the order in which a service lists them.
// Virtual nodes are named node-{index} and ordered by that index.
package naming
