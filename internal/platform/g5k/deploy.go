package g5k

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/lpouillo/google-dc-g5k/internal/util/async"
	"github.com/lpouillo/google-dc-g5k/internal/util/naming"
	"github.com/lpouillo/google-dc-g5k/internal/util/retry"
)

// Deployment is a Kadeploy deployment as returned by the API.
type Deployment struct {
	UID    string                     `json:"uid"`
	Status string                     `json:"status"`
	Nodes  []string                   `json:"nodes"`
	Result map[string]DeploymentState `json:"result"`
}

// DeploymentState is the outcome for one node.
type DeploymentState struct {
	State string `json:"state"`
}

type deploymentRequest struct {
	Nodes       []string `json:"nodes"`
	Environment string   `json:"environment"`
	Key         string   `json:"key,omitempty"`
}

// StartDeployment submits a deployment of environment on hosts of one site.
func (c *Client) StartDeployment(ctx context.Context, site string, hosts []string, environment, key string) (*Deployment, error) {
	body, err := json.Marshal(deploymentRequest{Nodes: hosts, Environment: environment, Key: key})
	if err != nil {
		return nil, fmt.Errorf("encode deployment: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/sites/%s/deployments", site), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var d Deployment
	if err := c.do(req, &d); err != nil {
		return nil, fmt.Errorf("start deployment on %s: %w", site, err)
	}
	return &d, nil
}

// GetDeployment returns the current state of a deployment.
func (c *Client) GetDeployment(ctx context.Context, site, uid string) (*Deployment, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/sites/%s/deployments/%s", site, uid), nil)
	if err != nil {
		return nil, err
	}

	var d Deployment
	if err := c.do(req, &d); err != nil {
		return nil, fmt.Errorf("get deployment %s on %s: %w", uid, site, err)
	}
	return &d, nil
}

// KadeployDeployer implements Deployer on top of the deployment API.
// Hosts on different sites are deployed concurrently, one deployment per site.
type KadeployDeployer struct {
	client       *Client
	key          string
	pollInterval time.Duration
	timeout      time.Duration
}

var _ Deployer = (*KadeployDeployer)(nil)

// NewDeployer creates a deployer. key is the public key (or URL of one)
// installed for root on deployed nodes; it may be empty when the
// environment already authorizes the user's key.
func NewDeployer(client *Client, key string, pollInterval, timeout time.Duration) *KadeployDeployer {
	return &KadeployDeployer{client: client, key: key, pollInterval: pollInterval, timeout: timeout}
}

// Deploy images hosts and waits for every site's deployment to finish.
func (d *KadeployDeployer) Deploy(ctx context.Context, hosts []string, environment string) (DeployResult, error) {
	bySite := make(map[string][]string)
	for _, h := range hosts {
		site := naming.HostSite(h)
		bySite[site] = append(bySite[site], h)
	}

	var (
		mu     sync.Mutex
		result DeployResult
	)
	tasks := make([]async.Task, 0, len(bySite))
	for site, siteHosts := range bySite {
		tasks = append(tasks, async.Task{
			Name: site,
			Func: func(ctx context.Context) error {
				deployed, failed, err := d.deploySite(ctx, site, siteHosts, environment)
				if err != nil {
					return err
				}
				mu.Lock()
				result.Deployed = append(result.Deployed, deployed...)
				result.Failed = append(result.Failed, failed...)
				mu.Unlock()
				return nil
			},
		})
	}

	if err := async.RunParallel(ctx, tasks); err != nil {
		return DeployResult{}, fmt.Errorf("deployment failed: %w", err)
	}

	result.Deployed = naming.SortHosts(result.Deployed)
	result.Failed = naming.SortHosts(result.Failed)
	return result, nil
}

func (d *KadeployDeployer) deploySite(ctx context.Context, site string, hosts []string, environment string) (deployed, failed []string, err error) {
	dep, err := d.client.StartDeployment(ctx, site, hosts, environment, d.key)
	if err != nil {
		return nil, nil, err
	}

	err = retry.Poll(ctx, d.pollInterval, d.timeout, func(ctx context.Context) (bool, error) {
		cur, err := d.client.GetDeployment(ctx, site, dep.UID)
		if err != nil {
			return false, err
		}
		dep = cur
		return dep.Status != "processing", nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("waiting for deployment %s: %w", dep.UID, err)
	}

	for _, h := range hosts {
		if st, ok := dep.Result[h]; ok && st.State == "OK" {
			deployed = append(deployed, h)
		} else {
			failed = append(failed, h)
		}
	}
	return deployed, failed, nil
}
