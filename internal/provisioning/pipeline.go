package provisioning

import (
	"fmt"
	"time"
)

// RunPhases executes all provisioning phases sequentially and stops at the
// first failure, which is returned as a *StageError.
func RunPhases(ctx *Context, phases []Phase) error {
	start := time.Now()
	ctx.Observer.Printf("Starting provisioning with %d phases", len(phases))

	for i, phase := range phases {
		phaseStart := time.Now()
		obs := ctx.Observer.WithFields(map[string]string{
			"step": fmt.Sprintf("%d/%d", i+1, len(phases)),
		})

		LogPhaseStart(obs, phase.Name())
		err := phase.Provision(ctx)
		ctx.Metrics.ObservePhase(phase.Name(), time.Since(phaseStart), err)
		if err != nil {
			LogPhaseFailed(obs, phase.Name(), err)
			return &StageError{Phase: phase.Name(), Err: err}
		}
		LogPhaseComplete(obs, phase.Name(), time.Since(phaseStart))
	}

	ctx.Observer.Printf("Provisioning completed in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
