// Package retry provides exponential backoff retry logic for transient failures
// and bounded polling for long-running remote state changes.
//
// [Backoff.Do] is used for SSH connection establishment through the
// Grid'5000 access host. [Poll] waits for a reservation to start or for a
// deployment to finish, failing with [ErrTimeout] once its deadline passes.
package retry
