// Package metrics records run outcomes in a private Prometheus registry that
// can be dumped in the node-exporter textfile format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/ppe-vision/internal/model"
)

// Run outcomes.
const (
	OutcomeCompleted = "completed"
	OutcomeEmpty     = "empty"
	OutcomeFailed    = "failed"
)

// Metrics holds the run collectors.
type Metrics struct {
	runs            *prometheus.CounterVec
	detections      *prometheus.CounterVec
	skippedBoxes    prometheus.Counter
	storageFailures *prometheus.CounterVec
	alerts          *prometheus.CounterVec
	complianceRate  prometheus.Gauge
	framesPerSecond prometheus.Gauge

	registry *prometheus.Registry
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppe_runs_total",
			Help: "Analysis runs by media kind and outcome.",
		}, []string{"media", "outcome"}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppe_detections_total",
			Help: "Detections aggregated, by category.",
		}, []string{"category"}),
		skippedBoxes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ppe_overlay_skipped_boxes_total",
			Help: "Detections not drawn because of missing or invalid geometry.",
		}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppe_storage_failures_total",
			Help: "Storage operations that failed after retries, by component.",
		}, []string{"component"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ppe_alerts_raised_total",
			Help: "Violation alerts raised, by delivery variant.",
		}, []string{"variant"}),
		complianceRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ppe_last_compliance_rate_percent",
			Help: "Compliance rate of the most recent completed run.",
		}),
		framesPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ppe_last_frames_per_second",
			Help: "Processing throughput of the most recent video run.",
		}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.runs,
		m.detections,
		m.skippedBoxes,
		m.storageFailures,
		m.alerts,
		m.complianceRate,
		m.framesPerSecond,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records a completed run.
func (m *Metrics) ObserveRun(r model.RunResult) {
	outcome := OutcomeCompleted
	if r.Empty() {
		outcome = OutcomeEmpty
	}
	m.runs.WithLabelValues(mediaLabel(r.MediaKind), outcome).Inc()
	m.detections.WithLabelValues(string(model.CategoryViolation)).Add(float64(r.Counts.Violations))
	m.detections.WithLabelValues(string(model.CategoryCompliant)).Add(float64(r.Counts.Safe))
	m.complianceRate.Set(float64(r.ComplianceRatePct))
}

// ObserveFailure records a run that ended in a transport failure.
func (m *Metrics) ObserveFailure(kind model.MediaKind) {
	m.runs.WithLabelValues(mediaLabel(kind), OutcomeFailed).Inc()
}

// ObserveSkipped adds n skipped overlay boxes.
func (m *Metrics) ObserveSkipped(n int) {
	if n > 0 {
		m.skippedBoxes.Add(float64(n))
	}
}

// ObserveStorageFailure counts a storage failure for a component.
func (m *Metrics) ObserveStorageFailure(component string) {
	m.storageFailures.WithLabelValues(component).Inc()
}

// ObserveAlert counts a raised alert.
func (m *Metrics) ObserveAlert(variant string) {
	m.alerts.WithLabelValues(variant).Inc()
}

// ObserveThroughput records the frames/sec of a video run.
func (m *Metrics) ObserveThroughput(fps float64) {
	m.framesPerSecond.Set(fps)
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	return eris.Wrapf(prometheus.WriteToTextfile(path, m.registry), "metrics: write textfile %s", path)
}

func mediaLabel(k model.MediaKind) string {
	if k == "" {
		return string(model.MediaImage)
	}
	return string(k)
}
