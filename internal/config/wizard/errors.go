package wizard

import "errors"

// Validation errors for the interactive wizard.
var (
	errNotPositive     = errors.New("must be a positive integer")
	errRootFSRequired  = errors.New("rootfs image is required")
	errEnvironmentName = errors.New("environment name is required")
)
