// Package g5k is a client for the Grid'5000 REST API.
//
// It covers the two external services a run depends on: the OAR
// reservation service (jobs and the per-site status used as planning) and
// the Kadeploy deployment service. Scheduler and Deployer are the
// interfaces the provisioning phases consume; Client and KadeployDeployer
// implement them over HTTP.
package g5k
