// Package sim is an in-process Grid'5000 testbed.
//
// A Testbed implements the OAR scheduler, the Kadeploy deployer and the
// remote gateway, interprets the Distem commands it is sent, and serves the
// coordinator's /vnodes/ endpoint over HTTP. It backs `vdc apply --simulate`
// and the end-to-end tests.
package sim
