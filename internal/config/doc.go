// Package config defines the configuration model of a virtual datacenter run.
//
// A [Config] is built from [Default], optionally overlaid with a YAML file
// (vdc.yaml) and finally with command-line flags. Timeouts are not part of
// the file; they come from environment variables through [LoadTimeouts].
package config
