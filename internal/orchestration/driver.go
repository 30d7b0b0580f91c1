package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/go-logr/logr"

	"github.com/lpouillo/google-dc-g5k/internal/config"
	"github.com/lpouillo/google-dc-g5k/internal/ledger"
	"github.com/lpouillo/google-dc-g5k/internal/metrics"
	"github.com/lpouillo/google-dc-g5k/internal/platform/s3"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning/fabric"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning/reservation"
	"github.com/lpouillo/google-dc-g5k/internal/provisioning/vnodes"
	"github.com/lpouillo/google-dc-g5k/internal/ui"
)

// RunStore records runs. *ledger.Ledger implements it.
type RunStore interface {
	Start(ctx context.Context, r ledger.Run) (int64, error)
	Finish(ctx context.Context, id int64, r ledger.Run) error
}

// ArtifactPublisher uploads the node list. *s3.Publisher implements it.
type ArtifactPublisher interface {
	Publish(ctx context.Context, artifactPath string, m s3.Manifest) (string, error)
}

// Options holds the optional collaborators of a Driver. Nil fields disable
// the matching feature.
type Options struct {
	Log       logr.Logger
	Printer   *ui.Printer
	Ledger    RunStore
	Metrics   *metrics.Recorder
	Publisher ArtifactPublisher
	// Timeouts overrides the environment-derived timeouts.
	Timeouts *config.Timeouts
}

// Result summarizes a run, successful or not.
type Result struct {
	JobID        int64
	Reused       bool
	Coordinator  string
	Subnet       string
	Deployed     int
	Requested    int
	Running      int
	Missing      []string
	Artifact     string
	PublishedURI string
	FailedPhase  string
	Duration     time.Duration
}

// Driver runs the provisioning pipeline.
type Driver struct {
	cfg    *config.Config
	svc    provisioning.Services
	opts   Options
	phases []provisioning.Phase
}

// NewDriver creates a driver for cfg against svc.
func NewDriver(cfg *config.Config, svc provisioning.Services, opts Options) *Driver {
	if opts.Log.GetSink() == nil {
		opts.Log = logr.Discard()
	}
	return &Driver{
		cfg:  cfg,
		svc:  svc,
		opts: opts,
		phases: []provisioning.Phase{
			provisioning.NewValidationPhase(),
			reservation.NewProvisioner(),
			fabric.NewProvisioner(),
			vnodes.NewProvisioner(),
		},
	}
}

// Run executes every phase and the configured side effects. The returned
// Result is never nil; on failure it carries what was reached.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	pctx := provisioning.NewContext(ctx, d.cfg, d.svc, d.opts.Log)
	if d.opts.Metrics != nil {
		pctx.Metrics = d.opts.Metrics
	}
	if d.opts.Printer != nil {
		pctx.Observer = &bannerObserver{Observer: pctx.Observer, printer: d.opts.Printer}
	}
	if d.opts.Timeouts != nil {
		pctx.Timeouts = d.opts.Timeouts
	}

	runID := d.recordStart(ctx)

	err := provisioning.RunPhases(pctx, d.phases)
	res := d.result(pctx.State)
	res.FailedPhase = provisioning.FailedPhase(err)

	if err == nil && d.opts.Publisher != nil {
		uri, perr := d.opts.Publisher.Publish(ctx, res.Artifact, d.manifest(res))
		if perr != nil {
			err = fmt.Errorf("failed to publish node list: %w", perr)
		} else {
			res.PublishedURI = uri
			d.opts.Log.V(1).Info("node list published", "uri", uri)
		}
	}
	res.Duration = time.Since(start)

	d.writeMetrics()
	d.recordFinish(ctx, runID, res, err)
	d.summarize(res, err)
	return res, err
}

func (d *Driver) result(st *provisioning.State) *Result {
	res := &Result{
		Reused:      st.Reused,
		Coordinator: st.Coordinator,
		Deployed:    len(st.DeployedHosts),
		Requested:   len(st.Requested),
		Running:     len(st.Records),
		Missing:     st.Missing,
		Artifact:    st.Artifact,
	}
	if st.Job != nil {
		res.JobID = st.Job.UID
	}
	if st.Subnet.IsValid() {
		res.Subnet = st.Subnet.String()
	}
	return res
}

func (d *Driver) manifest(res *Result) s3.Manifest {
	return s3.Manifest{
		Label:       d.cfg.JobName,
		Site:        d.cfg.Site,
		JobID:       res.JobID,
		Coordinator: res.Coordinator,
		Subnet:      res.Subnet,
		Requested:   res.Requested,
		Running:     res.Running,
	}
}

// recordStart returns 0 when there is no ledger or the insert failed.
func (d *Driver) recordStart(ctx context.Context) int64 {
	if d.opts.Ledger == nil {
		return 0
	}
	id, err := d.opts.Ledger.Start(ctx, ledger.Run{
		Label:         d.cfg.JobName,
		Site:          d.cfg.Site,
		PhysicalNodes: d.cfg.PhysicalNodes,
		VirtualNodes:  d.cfg.VirtualNodes,
	})
	if err != nil {
		d.opts.Log.Error(err, "failed to record run start")
		return 0
	}
	return id
}

func (d *Driver) recordFinish(ctx context.Context, id int64, res *Result, runErr error) {
	if d.opts.Ledger == nil || id == 0 {
		return
	}
	r := ledger.Run{
		JobID:       res.JobID,
		Status:      ledger.StatusSucceeded,
		Coordinator: res.Coordinator,
		Subnet:      res.Subnet,
		Running:     res.Running,
		Artifact:    res.Artifact,
	}
	if runErr != nil {
		r.Status = ledger.StatusFailed
		r.FailedPhase = res.FailedPhase
		r.Error = runErr.Error()
	}
	// The run context may already be cancelled; the outcome is still worth keeping.
	if err := d.opts.Ledger.Finish(context.WithoutCancel(ctx), id, r); err != nil {
		d.opts.Log.Error(err, "failed to record run outcome", "run", id)
	}
}

func (d *Driver) writeMetrics() {
	if d.opts.Metrics == nil || d.cfg.Metrics.File == "" {
		return
	}
	if err := d.opts.Metrics.WriteTextfile(d.cfg.Metrics.File); err != nil {
		d.opts.Log.Error(err, "failed to write metrics", "file", d.cfg.Metrics.File)
	}
}

func (d *Driver) summarize(res *Result, err error) {
	p := d.opts.Printer
	if p == nil {
		return
	}
	var fields []ui.Field
	add := func(k, v string) {
		if v != "" {
			fields = append(fields, ui.Field{Key: k, Value: v})
		}
	}
	if res.JobID != 0 {
		add("job", strconv.FormatInt(res.JobID, 10))
	}
	add("subnet", res.Subnet)
	add("coordinator", res.Coordinator)
	if res.Requested > 0 {
		add("vnodes", fmt.Sprintf("%d/%d running", res.Running, res.Requested))
	}
	add("node list", res.Artifact)
	add("published", res.PublishedURI)
	add("duration", res.Duration.Round(time.Second).String())

	if err != nil {
		var stage *provisioning.StageError
		msg := "provisioning failed"
		if errors.As(err, &stage) {
			msg = stage.Phase + " phase failed"
		}
		p.Failed(msg, fields)
		return
	}
	p.Done("Distem is ready to be used on "+res.Coordinator, fields)
}
