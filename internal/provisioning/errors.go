package provisioning

import (
	"errors"
	"fmt"
)

// Resource-unavailable and remote-call failures that abort the pipeline.
var (
	ErrNoSubnet           = errors.New("no subnet granted with the reservation")
	ErrNoFreeSlot         = errors.New("no free slot found in the planning horizon")
	ErrReservationTimeout = errors.New("reservation did not start in time")
	ErrReservationFailed  = errors.New("reservation ended before starting")
	ErrNoDeployedHosts    = errors.New("no nodes deployed")
	ErrFabricInstall      = errors.New("error installing fabric")
	ErrVNetworkCreate     = errors.New("error creating virtual network")
	ErrEmptyInventory     = errors.New("no virtual node is running")
	ErrInventoryQuery     = errors.New("error querying virtual node inventory")
)

// StageError names the phase a fatal error happened in.
type StageError struct {
	Phase string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s phase failed: %v", e.Phase, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedPhase returns the phase named by a StageError in err's chain, or "".
func FailedPhase(err error) string {
	var se *StageError
	if errors.As(err, &se) {
		return se.Phase
	}
	return ""
}

// RemoteError carries the captured output of a failed remote call.
type RemoteError struct {
	Host   string
	Output string
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("on %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("on %s: %v\n%s", e.Host, e.Err, e.Output)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
