// Package async provides utilities for parallel task execution.
//
// [RunParallel] fans out a set of tasks and waits for all of them.
// [RunBatches] adds a manual admission-control layer on top: tasks run in
// fixed-size batches, concurrently inside a batch and strictly one batch
// after the other. It is used to bound the number of simultaneous requests
// sent to the Distem coordinator.
package async
