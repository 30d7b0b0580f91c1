// Package ssh implements remote.Gateway over SSH.
//
// Grid'5000 machines are reached through a jump host (access.grid5000.fr).
// Short names such as "nancy" are site frontends and are logged into with
// the user's Grid'5000 login; fully qualified node names are logged into as
// the deployment user (root). The same tunnel serves plain TCP connections
// through DialContext, which the Distem inventory client uses for HTTP.
package ssh
