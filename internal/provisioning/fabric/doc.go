// Package fabric turns the reserved hosts into a Distem fabric.
//
// Hosts are imaged with Kadeploy; those that fail are dropped. The first
// deployed host in cluster/index order becomes the coordinator. The sorted
// host list is uploaded to the coordinator's site frontend, distem-bootstrap
// is run from there, and the shared virtual network is created on the
// coordinator over the reserved subnet.
package fabric
