// Package metrics records pipeline measurements in a Prometheus registry
// and exports them in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "vdc"

// Recorder implements provisioning.Metrics. Every Recorder owns its
// registry so runs never share state.
type Recorder struct {
	registry *prometheus.Registry

	phaseDuration *prometheus.GaugeVec
	phaseFailed   *prometheus.GaugeVec
	commands      *prometheus.CounterVec
	batchDuration prometheus.Histogram
	hosts         *prometheus.GaugeVec
	vnodesRunning prometheus.Gauge
}

// NewRecorder creates a recorder with all vdc metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),

		phaseDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "phase_duration_seconds",
				Help:      "Duration of the last run of each provisioning phase in seconds",
			},
			[]string{"phase"},
		),
		phaseFailed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "phase_failed",
				Help:      "Whether the last run of each phase failed (1) or not (0)",
			},
			[]string{"phase"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "vnode_commands_total",
				Help:      "Virtual node scripts run against the coordinator by result",
			},
			[]string{"result"},
		),
		batchDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_duration_seconds",
				Help:      "Duration of virtual node creation batches in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 10), // 1s to ~8.5min
			},
		),
		hosts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "hosts",
				Help:      "Physical hosts by state (reserved, deployed, failed)",
			},
			[]string{"state"},
		),
		vnodesRunning: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "vnodes_running",
				Help:      "Virtual nodes reported running by the coordinator",
			},
		),
	}

	r.registry.MustRegister(
		r.phaseDuration,
		r.phaseFailed,
		r.commands,
		r.batchDuration,
		r.hosts,
		r.vnodesRunning,
	)
	return r
}

// Registry exposes the recorder's registry, e.g. to serve it over HTTP.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObservePhase(phase string, d time.Duration, err error) {
	r.phaseDuration.WithLabelValues(phase).Set(d.Seconds())
	if err != nil {
		r.phaseFailed.WithLabelValues(phase).Set(1)
	} else {
		r.phaseFailed.WithLabelValues(phase).Set(0)
	}
}

func (r *Recorder) ObserveBatch(_ int, d time.Duration) {
	r.batchDuration.Observe(d.Seconds())
}

func (r *Recorder) CountVNodeCommand(succeeded bool) {
	result := "failed"
	if succeeded {
		result = "succeeded"
	}
	r.commands.WithLabelValues(result).Inc()
}

func (r *Recorder) SetHosts(state string, n int) {
	r.hosts.WithLabelValues(state).Set(float64(n))
}

func (r *Recorder) SetVNodesRunning(n int) {
	r.vnodesRunning.Set(float64(n))
}

// WriteTextfile writes every metric to path for the node_exporter textfile
// collector. The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
