package provisioning

import (
	"fmt"
	"strings"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
)

// CoordinatorSaturation is the number of simultaneous requests past which a
// Distem coordinator starts failing.
const CoordinatorSaturation = 75

// ValidationError represents a configuration validation error or warning.
type ValidationError struct {
	Field    string // Configuration field that failed validation
	Message  string // Human-readable error message
	Severity string // "error" or "warning"
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ve.Severity, ve.Field, ve.Message)
}

// IsError returns true if this is an error (not a warning).
func (ve ValidationError) IsError() bool {
	return ve.Severity == "error"
}

// ValidationPhase implements the Phase interface for pre-flight validation.
// It runs before anything is reserved so that a bad request costs nothing.
type ValidationPhase struct{}

// NewValidationPhase creates a new validation phase.
func NewValidationPhase() *ValidationPhase {
	return &ValidationPhase{}
}

// Name implements the Phase interface.
func (vp *ValidationPhase) Name() string {
	return "validation"
}

// Provision implements the Phase interface.
func (vp *ValidationPhase) Provision(ctx *Context) error {
	ctx.Observer.Printf("[Validation] Running pre-flight validation...")

	var errs []ValidationError
	for _, ve := range validate(ctx) {
		if ve.IsError() {
			errs = append(errs, ve)
			continue
		}
		ctx.Observer.Event(Event{
			Type:    EventValidationWarning,
			Phase:   vp.Name(),
			Message: ve.Message,
			Fields:  map[string]string{"field": ve.Field},
		})
	}

	if len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return fmt.Errorf("configuration validation failed:\n  %s", strings.Join(msgs, "\n  "))
	}

	ctx.Observer.Printf("[Validation] Validation passed")
	return nil
}

// validate runs all validation checks and returns any errors or warnings.
func validate(ctx *Context) []ValidationError {
	var errs []ValidationError
	cfg := ctx.Config

	// --- Configuration fields ---

	if err := cfg.Validate(); err != nil {
		for _, e := range splitJoined(err) {
			errs = append(errs, ValidationError{
				Field:    "Config",
				Message:  e.Error(),
				Severity: "error",
			})
		}
	}

	// --- Collaborators ---

	services := []struct {
		name    string
		missing bool
	}{
		{"Scheduler", ctx.Scheduler == nil},
		{"Deployer", ctx.Deployer == nil},
		{"Gateway", ctx.Gateway == nil},
		{"Inventory", ctx.Inventory == nil},
	}
	for _, s := range services {
		if s.missing {
			errs = append(errs, ValidationError{
				Field:    s.name,
				Message:  fmt.Sprintf("%s is not configured", strings.ToLower(s.name)),
				Severity: "error",
			})
		}
	}

	// --- Coordinator load ---

	if cfg.BatchSize > CoordinatorSaturation {
		errs = append(errs, ValidationError{
			Field: "BatchSize",
			Message: fmt.Sprintf("batch size %d exceeds the %d simultaneous requests a coordinator handles reliably",
				cfg.BatchSize, CoordinatorSaturation),
			Severity: "warning",
		})
	}

	// --- Distribution ---

	if cfg.PhysicalNodes > 0 && cfg.VirtualNodes > 0 {
		if cfg.VirtualNodes < cfg.PhysicalNodes {
			errs = append(errs, ValidationError{
				Field: "VirtualNodes",
				Message: fmt.Sprintf("%d virtual nodes for %d physical nodes leaves some hosts empty",
					cfg.VirtualNodes, cfg.PhysicalNodes),
				Severity: "warning",
			})
		}
		if rem := cfg.VirtualNodes % cfg.PhysicalNodes; rem != 0 && cfg.Remainder == config.RemainderDrop {
			errs = append(errs, ValidationError{
				Field:    "Remainder",
				Message:  fmt.Sprintf("%d virtual nodes will be dropped by the %q remainder policy", rem, cfg.Remainder),
				Severity: "warning",
			})
		}
	}

	// --- Subnet capacity ---

	if bits, ok := g5k.SubnetBits(cfg.SubnetResource); !ok {
		if cfg.SubnetResource != "" {
			errs = append(errs, ValidationError{
				Field:    "SubnetResource",
				Message:  fmt.Sprintf("subnet resource %q is not of the form slash_<bits>", cfg.SubnetResource),
				Severity: "error",
			})
		}
	} else if capacity := subnetCapacity(bits); cfg.VirtualNodes > capacity {
		errs = append(errs, ValidationError{
			Field: "VirtualNodes",
			Message: fmt.Sprintf("%d virtual nodes do not fit in a /%d subnet (%d addresses)",
				cfg.VirtualNodes, bits, capacity),
			Severity: "error",
		})
	}

	return errs
}

// subnetCapacity returns the usable host addresses of a /bits IPv4 prefix.
func subnetCapacity(bits int) int {
	if bits >= 31 {
		return 0
	}
	return 1<<(32-bits) - 2
}

// splitJoined undoes errors.Join.
func splitJoined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}
