package g5k

import (
	"context"
	"time"
)

// JobState is the OAR state of a job.
type JobState string

const (
	JobWaiting    JobState = "waiting"
	JobLaunching  JobState = "launching"
	JobRunning    JobState = "running"
	JobHold       JobState = "hold"
	JobTerminated JobState = "terminated"
	JobError      JobState = "error"
)

// Job is an OAR job as returned by the API.
type Job struct {
	UID             int64           `json:"uid"`
	Name            string          `json:"name"`
	User            string          `json:"user"`
	State           JobState        `json:"state"`
	Site            string          `json:"-"`
	AssignedNodes   []string        `json:"assigned_nodes"`
	ResourcesByType ResourcesByType `json:"resources_by_type"`
	ScheduledAt     int64           `json:"scheduled_at"`
	StartedAt       int64           `json:"started_at"`
	Walltime        int64           `json:"walltime"`
}

// ResourcesByType lists what OAR assigned to a job.
type ResourcesByType struct {
	Subnets []string `json:"subnets"`
}

// Active reports whether the job's resources are usable.
func (j *Job) Active() bool { return j.State == JobRunning }

// Finished reports whether the job can no longer become active.
func (j *Job) Finished() bool { return j.State == JobTerminated || j.State == JobError }

// StartTime returns the actual or scheduled start of the job.
func (j *Job) StartTime() time.Time {
	switch {
	case j.StartedAt > 0:
		return time.Unix(j.StartedAt, 0)
	case j.ScheduledAt > 0:
		return time.Unix(j.ScheduledAt, 0)
	default:
		return time.Time{}
	}
}

// JobSpec is a job submission.
type JobSpec struct {
	// Resources is an OAR resource expression, e.g.
	// "slash_22=1+{cluster='graphene'}/nodes=10,walltime=2:00:00".
	Resources string `json:"resources"`
	Name      string `json:"name"`
	// Reservation pins the start date (Unix seconds). Zero submits a batch job.
	Reservation int64    `json:"reservation,omitempty"`
	Types       []string `json:"types,omitempty"`
	Command     string   `json:"command"`
}

// Interval is a half-open busy period [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether i intersects [start, end).
func (i Interval) Overlaps(start, end time.Time) bool {
	return i.Start.Before(end) && start.Before(i.End)
}

// Resource is one schedulable element and its busy periods.
type Resource struct {
	// Name is a host address or a subnet prefix.
	Name string
	// Cluster is empty for subnets.
	Cluster string
	// Dead resources can never be reserved.
	Dead bool
	Busy []Interval
}

// FreeDuring reports whether the resource is alive and idle during [start, end).
func (r Resource) FreeDuring(start, end time.Time) bool {
	if r.Dead {
		return false
	}
	for _, b := range r.Busy {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

// Planning is the availability of a site's resources at a point in time.
type Planning struct {
	Site    string
	At      time.Time
	Horizon time.Duration
	Hosts   []Resource
	Subnets []Resource
}

// DeployResult splits a host list by deployment outcome.
type DeployResult struct {
	Deployed []string
	Failed   []string
}

// Scheduler is the OAR reservation service.
type Scheduler interface {
	// ListJobs returns the running and waiting jobs of user on site.
	ListJobs(ctx context.Context, site, user string) ([]Job, error)
	// Job returns the current view of one job.
	Job(ctx context.Context, site string, id int64) (*Job, error)
	// Planning returns host and subnet availability over horizon. Subnets
	// are included only when subnetResource is not empty.
	Planning(ctx context.Context, site string, horizon time.Duration, subnetResource string) (*Planning, error)
	// Submit creates a job and returns it as first seen by OAR.
	Submit(ctx context.Context, site string, spec JobSpec) (*Job, error)
}

// Deployer is the Kadeploy service.
type Deployer interface {
	// Deploy images hosts with environment. Hosts that did not reach the
	// deployed state are reported in Failed; err is reserved for calls that
	// could not be made at all.
	Deploy(ctx context.Context, hosts []string, environment string) (DeployResult, error)
}
