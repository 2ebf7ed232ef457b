// Package monitoring wires the observability backends: Prometheus metrics
// and OpenTelemetry tracing.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics manages the Prometheus metrics for the pipeline.
type Metrics struct {
	IngestedRecords *prometheus.CounterVec
	RunsTotal       *prometheus.CounterVec
	RunDuration     *prometheus.HistogramVec
	SpikesDetected  *prometheus.CounterVec
	AlertsCreated   *prometheus.CounterVec
}

// NewMetrics creates the pipeline metrics on the default registry.
func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith creates the pipeline metrics on a specific registerer.
// Tests pass a fresh registry to avoid duplicate-registration panics.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		IngestedRecords: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelpipe_ingested_records_total",
				Help: "Ingestion outcomes per source.",
			},
			[]string{"source", "result"},
		),
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelpipe_runs_total",
				Help: "Pipeline stage runs by outcome.",
			},
			[]string{"stage", "result"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "intelpipe_run_duration_seconds",
				Help:    "Duration of pipeline stage runs.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		SpikesDetected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelpipe_spikes_detected_total",
				Help: "Spike conditions detected per metric.",
			},
			[]string{"metric"},
		),
		AlertsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intelpipe_alerts_created_total",
				Help: "Alerts created by trigger type and severity.",
			},
			[]string{"trigger", "severity"},
		),
	}
}

// RecordIngestion records one ingestion outcome for a source.
func (m *Metrics) RecordIngestion(source, result string) {
	m.IngestedRecords.WithLabelValues(source, result).Inc()
}

// RecordRun records the outcome and duration of one stage run.
func (m *Metrics) RecordRun(stage, result string, duration time.Duration) {
	m.RunsTotal.WithLabelValues(stage, result).Inc()
	m.RunDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSpike records one detected spike.
func (m *Metrics) RecordSpike(metric string) {
	m.SpikesDetected.WithLabelValues(metric).Inc()
}

// RecordAlert records one created alert.
func (m *Metrics) RecordAlert(trigger, severity string) {
	m.AlertsCreated.WithLabelValues(trigger, severity).Inc()
}
