// Package orchestration drives a complete vdc run.
//
// The Driver executes the provisioning phases in order, stopping at the
// first failure:
//  1. Validation - configuration and collaborator checks
//  2. Reservation - reuse or submit the OAR job, wait for it to run
//  3. Fabric - deploy the hosts, bootstrap Distem, create the vnetwork
//  4. VNodes - create the virtual nodes in batches and write the node list
//
// Around the phases it records the run in the ledger, exports metrics and
// publishes the node list when those are configured. None of them can turn
// a successful provisioning into a failure except publishing, which the
// user explicitly asked for.
package orchestration
