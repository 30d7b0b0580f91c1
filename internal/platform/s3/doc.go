// Package s3 publishes run artifacts to S3-compatible object storage.
//
// After a successful run the node list and a small JSON manifest are
// uploaded under a per-run key prefix, so that experiment scripts running
// outside Grid'5000 can fetch the address list without SSH access.
package s3
