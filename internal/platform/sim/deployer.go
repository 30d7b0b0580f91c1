package sim

import (
	"context"
	"fmt"

	"github.com/lpouillo/google-dc-g5k/internal/platform/g5k"
)

// Deploy implements g5k.Deployer. Hosts listed in Options.FailDeploy and
// hosts unknown to the site are reported as failed.
func (tb *Testbed) Deploy(ctx context.Context, hosts []string, environment string) (g5k.DeployResult, error) {
	if environment == "" {
		return g5k.DeployResult{}, fmt.Errorf("no environment given")
	}
	if err := ctx.Err(); err != nil {
		return g5k.DeployResult{}, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	var res g5k.DeployResult
	for _, h := range hosts {
		known := listed(tb.hosts, h)
		if !known || listed(tb.opts.FailDeploy, h) {
			res.Failed = append(res.Failed, h)
			continue
		}
		tb.deployed[h] = true
		res.Deployed = append(res.Deployed, h)
	}
	tb.log.V(1).Info("deployment finished", "environment", environment, "deployed", len(res.Deployed), "failed", len(res.Failed))
	return res, nil
}
