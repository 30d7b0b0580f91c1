package g5k

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Client talks to the Grid'5000 REST API.
type Client struct {
	baseURL    string
	user       string
	password   string
	httpClient *http.Client
	now        func() time.Time
}

var _ Scheduler = (*Client)(nil)

// NewClient creates a client for baseURL (e.g. https://api.grid5000.fr/stable).
// Basic authentication is used when user is set; from inside Grid'5000 the
// API accepts anonymous calls.
func NewClient(baseURL, user, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		user:       user,
		password:   password,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		now:        time.Now,
	}
}

// User returns the login the client authenticates as.
func (c *Client) User() string { return c.user }

type jobList struct {
	Items []Job `json:"items"`
}

// ListJobs returns the running and waiting jobs of user on site.
func (c *Client) ListJobs(ctx context.Context, site, user string) ([]Job, error) {
	q := url.Values{}
	q.Set("state", "running,waiting")
	if user != "" {
		q.Set("user", user)
	}

	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/sites/%s/jobs?%s", site, q.Encode()), nil)
	if err != nil {
		return nil, err
	}

	var resp jobList
	if err := c.do(req, &resp); err != nil {
		return nil, fmt.Errorf("list jobs on %s: %w", site, err)
	}
	for i := range resp.Items {
		resp.Items[i].Site = site
	}
	return resp.Items, nil
}

// Job returns one job.
func (c *Client) Job(ctx context.Context, site string, id int64) (*Job, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/sites/%s/jobs/%d", site, id), nil)
	if err != nil {
		return nil, err
	}

	var job Job
	if err := c.do(req, &job); err != nil {
		return nil, fmt.Errorf("get job %d on %s: %w", id, site, err)
	}
	job.Site = site
	return &job, nil
}

// Submit creates a job on site.
func (c *Client) Submit(ctx context.Context, site string, spec JobSpec) (*Job, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, fmt.Errorf("encode job: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, fmt.Sprintf("/sites/%s/jobs", site), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var job Job
	if err := c.do(req, &job); err != nil {
		return nil, fmt.Errorf("submit job on %s: %w", site, err)
	}
	job.Site = site
	if job.Name == "" {
		job.Name = spec.Name
	}
	return &job, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse response: %w (status %d)", err, resp.StatusCode)
	}
	return nil
}
