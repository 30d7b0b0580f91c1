package g5k

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lpouillo/google-dc-g5k/internal/util/retry"
)

// fakeKadeploy finishes each deployment after a number of polls.
type fakeKadeploy struct {
	mu       sync.Mutex
	failing  map[string]bool
	polls    map[string]int
	requests map[string]deploymentRequest
	finishAt int
	status   string
}

func (f *fakeKadeploy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	site := parts[1]

	if r.Method == http.MethodPost {
		var req deploymentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.requests[site] = req
		_ = json.NewEncoder(w).Encode(Deployment{UID: "D-" + site, Status: "processing", Nodes: req.Nodes})
		return
	}

	uid := parts[3]
	f.polls[uid]++
	d := Deployment{UID: uid, Status: "processing"}
	if f.polls[uid] >= f.finishAt {
		d.Status = f.status
		d.Result = map[string]DeploymentState{}
		for _, n := range f.requests[site].Nodes {
			state := "OK"
			if f.failing[n] {
				state = "KO"
			}
			d.Result[n] = DeploymentState{State: state}
		}
	}
	_ = json.NewEncoder(w).Encode(d)
}

func newFakeKadeploy(finishAt int, failing ...string) *fakeKadeploy {
	f := &fakeKadeploy{
		failing:  map[string]bool{},
		polls:    map[string]int{},
		requests: map[string]deploymentRequest{},
		finishAt: finishAt,
		status:   "terminated",
	}
	for _, h := range failing {
		f.failing[h] = true
	}
	return f
}

func TestDeploy_SplitsBySiteAndReportsFailures(t *testing.T) {
	t.Parallel()
	fake := newFakeKadeploy(2, "graphene-2.nancy.grid5000.fr")
	c := newTestClient(t, fake)
	d := NewDeployer(c, "ssh-rsa AAAA", 5*time.Millisecond, time.Second)

	hosts := []string{
		"paravance-1.rennes.grid5000.fr",
		"graphene-2.nancy.grid5000.fr",
		"graphene-1.nancy.grid5000.fr",
	}
	res, err := d.Deploy(context.Background(), hosts, "wheezy-x64-nfs")
	require.NoError(t, err)

	assert.Equal(t, []string{"graphene-1.nancy.grid5000.fr", "paravance-1.rennes.grid5000.fr"}, res.Deployed)
	assert.Equal(t, []string{"graphene-2.nancy.grid5000.fr"}, res.Failed)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Contains(t, fake.requests, "nancy")
	require.Contains(t, fake.requests, "rennes")
	assert.Equal(t, "wheezy-x64-nfs", fake.requests["nancy"].Environment)
	assert.Equal(t, "ssh-rsa AAAA", fake.requests["nancy"].Key)
	assert.Len(t, fake.requests["nancy"].Nodes, 2)
}

func TestDeploy_ErroredDeploymentFailsAllHosts(t *testing.T) {
	t.Parallel()
	fake := newFakeKadeploy(1, "graphene-1.nancy.grid5000.fr", "graphene-2.nancy.grid5000.fr")
	fake.status = "error"
	c := newTestClient(t, fake)
	d := NewDeployer(c, "", 5*time.Millisecond, time.Second)

	res, err := d.Deploy(context.Background(), []string{"graphene-1.nancy.grid5000.fr", "graphene-2.nancy.grid5000.fr"}, "env")
	require.NoError(t, err)
	assert.Empty(t, res.Deployed)
	assert.Len(t, res.Failed, 2)
}

func TestDeploy_Timeout(t *testing.T) {
	t.Parallel()
	fake := newFakeKadeploy(1 << 30)
	c := newTestClient(t, fake)
	d := NewDeployer(c, "", 5*time.Millisecond, 50*time.Millisecond)

	_, err := d.Deploy(context.Background(), []string{"graphene-1.nancy.grid5000.fr"}, "env")
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrTimeout)
	assert.Contains(t, err.Error(), "nancy")
}

func TestDeploy_StartError(t *testing.T) {
	t.Parallel()
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, "not allowed")
	}))
	d := NewDeployer(c, "", time.Millisecond, time.Second)

	_, err := d.Deploy(context.Background(), []string{"graphene-1.nancy.grid5000.fr"}, "env")
	assert.ErrorContains(t, err, "not allowed")
}
