package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration and returns every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Site == "" {
		errs = append(errs, fmt.Errorf("site is required"))
	}
	if c.PhysicalNodes < 1 {
		errs = append(errs, fmt.Errorf("physicalNodes must be at least 1, got %d", c.PhysicalNodes))
	}
	if c.VirtualNodes < 1 {
		errs = append(errs, fmt.Errorf("virtualNodes must be at least 1, got %d", c.VirtualNodes))
	}
	if _, err := ParseWalltime(c.Walltime); err != nil {
		errs = append(errs, err)
	}
	if c.JobName == "" {
		errs = append(errs, fmt.Errorf("jobName is required"))
	}
	if c.Environment == "" {
		errs = append(errs, fmt.Errorf("environment is required"))
	}
	if c.RootFS == "" {
		errs = append(errs, fmt.Errorf("rootfs is required"))
	}
	if c.SubnetResource == "" {
		errs = append(errs, fmt.Errorf("subnetResource is required"))
	}
	if c.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("batchSize must be at least 1, got %d", c.BatchSize))
	}
	switch c.Remainder {
	case RemainderSpread, RemainderDrop:
	default:
		errs = append(errs, fmt.Errorf("remainder must be %q or %q, got %q", RemainderSpread, RemainderDrop, c.Remainder))
	}
	if c.Output == "" {
		errs = append(errs, fmt.Errorf("output is required"))
	}

	if !c.Simulate {
		if u, err := url.Parse(c.API.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("api.url %q is not an absolute URL", c.API.URL))
		}
		if c.SSH.Gateway == "" {
			errs = append(errs, fmt.Errorf("ssh.gateway is required"))
		}
		if c.SSH.NodeUser == "" {
			errs = append(errs, fmt.Errorf("ssh.nodeUser is required"))
		}
	}

	if c.Distem.Port < 1 || c.Distem.Port > 65535 {
		errs = append(errs, fmt.Errorf("distem.port %d out of range", c.Distem.Port))
	}
	if c.Distem.Network == "" {
		errs = append(errs, fmt.Errorf("distem.network is required"))
	}
	if c.Distem.Interface == "" {
		errs = append(errs, fmt.Errorf("distem.interface is required"))
	}

	if c.Publish.Bucket != "" && c.Publish.Key == "" {
		errs = append(errs, fmt.Errorf("publish.key is required when publish.bucket is set"))
	}

	return errors.Join(errs...)
}
