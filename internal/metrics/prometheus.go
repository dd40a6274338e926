package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the generator's metrics on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	// Pipeline metrics
	Runs          *prometheus.CounterVec
	PhaseFailures *prometheus.CounterVec
	Warnings      prometheus.Counter

	// Render metrics
	Renders        *prometheus.CounterVec
	RenderDuration *prometheus.HistogramVec
	Artifacts      *prometheus.CounterVec
	ArtifactBytes  *prometheus.CounterVec

	// Topology shape of the last successful build
	Interfaces *prometheus.GaugeVec

	// Apply metrics
	FilesWritten   *prometheus.CounterVec
	LastApplyEpoch prometheus.Gauge
}

// New returns a registry with every metric registered. Each command
// invocation owns one.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	f := promauto.With(r.reg)

	r.Runs = f.NewCounterVec(prometheus.CounterOpts{
		Name: "packet_networking_runs_total",
		Help: "Pipeline runs by outcome",
	}, []string{"status"})

	r.PhaseFailures = f.NewCounterVec(prometheus.CounterOpts{
		Name: "packet_networking_phase_failures_total",
		Help: "Pipeline failures by phase",
	}, []string{"phase"})

	r.Warnings = f.NewCounter(prometheus.CounterOpts{
		Name: "packet_networking_warnings_total",
		Help: "Non-fatal warnings emitted while building topologies",
	})

	r.Renders = f.NewCounterVec(prometheus.CounterOpts{
		Name: "packet_networking_renders_total",
		Help: "Renders by target and outcome",
	}, []string{"target", "status"})

	r.RenderDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "packet_networking_render_duration_seconds",
		Help:    "Time spent rendering one target",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	}, []string{"target"})

	r.Artifacts = f.NewCounterVec(prometheus.CounterOpts{
		Name: "packet_networking_artifacts_total",
		Help: "Artifacts produced per target",
	}, []string{"target"})

	r.ArtifactBytes = f.NewCounterVec(prometheus.CounterOpts{
		Name: "packet_networking_artifact_bytes_total",
		Help: "Bytes of artifact content produced per target",
	}, []string{"target"})

	r.Interfaces = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "packet_networking_interfaces",
		Help: "Interfaces in the last built topology by kind",
	}, []string{"kind"})

	r.FilesWritten = f.NewCounterVec(prometheus.CounterOpts{
		Name: "packet_networking_files_written_total",
		Help: "Files written under the target root",
	}, []string{"target", "mode"})

	r.LastApplyEpoch = f.NewGauge(prometheus.GaugeOpts{
		Name: "packet_networking_last_apply_timestamp_seconds",
		Help: "Unix timestamp of the last successful apply",
	})

	return r
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

// RecordRun counts a finished pipeline run. A nil err counts as success.
func (r *Registry) RecordRun(phase string, err error) {
	if err == nil {
		r.Runs.WithLabelValues("success").Inc()
		return
	}
	r.Runs.WithLabelValues("failure").Inc()
	r.PhaseFailures.WithLabelValues(phase).Inc()
}

// RecordRender counts a render of target and its output volume.
func (r *Registry) RecordRender(target string, d time.Duration, files, bytes int, err error) {
	r.RenderDuration.WithLabelValues(target).Observe(d.Seconds())
	if err != nil {
		r.Renders.WithLabelValues(target, "failure").Inc()
		return
	}
	r.Renders.WithLabelValues(target, "success").Inc()
	r.Artifacts.WithLabelValues(target).Add(float64(files))
	r.ArtifactBytes.WithLabelValues(target).Add(float64(bytes))
}

// SetTopology records the node counts of the last built graph.
func (r *Registry) SetTopology(physical, bonds, vlans int) {
	r.Interfaces.WithLabelValues("physical").Set(float64(physical))
	r.Interfaces.WithLabelValues("bond").Set(float64(bonds))
	r.Interfaces.WithLabelValues("vlan").Set(float64(vlans))
}

// RecordApply counts written files and stamps the apply time.
func (r *Registry) RecordApply(target string, written, appended int, at time.Time) {
	r.FilesWritten.WithLabelValues(target, "write").Add(float64(written))
	r.FilesWritten.WithLabelValues(target, "append").Add(float64(appended))
	r.LastApplyEpoch.Set(float64(at.Unix()))
}
