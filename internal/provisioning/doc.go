// Package provisioning provides shared types, interfaces, and orchestration for
// building a virtual datacenter on Grid'5000.
//
// # Subpackages
//
//   - reservation/ — job reuse, free slot search, submission, wait until running
//   - fabric/ — Kadeploy deployment, coordinator selection, Distem bootstrap, vnetwork
//   - vnodes/ — virtual node distribution, batched creation, inventory, node list
//
// # Core Types
//
// Context carries configuration, state, the external services, and the observer.
// Phase defines a provisioning step with Name() and Provision() methods.
// State accumulates results from each phase (job, hosts, subnet, coordinator, records).
package provisioning
