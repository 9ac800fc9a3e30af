// Package metrics exposes Prometheus instrumentation for transfer runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the Prometheus collectors for one process.
//
// A nil *Metrics is valid and records nothing, so the engine can run without
// instrumentation.
type Metrics struct {
	ItemsTotal   *prometheus.CounterVec   // goferry_items_total{stage,outcome}
	BytesTotal   *prometheus.CounterVec   // goferry_bytes_total{stage}
	ItemDuration *prometheus.HistogramVec // goferry_item_duration_seconds{stage}

	QueueDepth     prometheus.Gauge // goferry_queue_depth
	PlannedItems   prometheus.Gauge // goferry_planned_items
	PlannedBytes   prometheus.Gauge // goferry_planned_bytes
	ProcessedBytes prometheus.Gauge // goferry_processed_bytes
	Failures       prometheus.Gauge // goferry_session_failures
}

// New registers the transfer collectors on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		ItemsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "goferry_items_total",
			Help: "Files that reached a terminal outcome, by stage",
		}, []string{"stage", "outcome"}),

		BytesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "goferry_bytes_total",
			Help: "Bytes moved successfully, by stage",
		}, []string{"stage"}),

		ItemDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "goferry_item_duration_seconds",
			Help:    "Per-file transfer duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"stage"}),

		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "goferry_queue_depth",
			Help: "Staged files waiting for upload",
		}),

		PlannedItems: f.NewGauge(prometheus.GaugeOpts{
			Name: "goferry_planned_items",
			Help: "Files in the current transfer plan",
		}),

		PlannedBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "goferry_planned_bytes",
			Help: "Total bytes in the current transfer plan",
		}),

		ProcessedBytes: f.NewGauge(prometheus.GaugeOpts{
			Name: "goferry_processed_bytes",
			Help: "Bytes of files that reached a terminal outcome in the current transfer",
		}),

		Failures: f.NewGauge(prometheus.GaugeOpts{
			Name: "goferry_session_failures",
			Help: "Failed files in the current transfer",
		}),
	}
}

// StartSession resets the per-session gauges for a new plan.
func (m *Metrics) StartSession(items int, bytes int64) {
	if m == nil {
		return
	}
	m.PlannedItems.Set(float64(items))
	m.PlannedBytes.Set(float64(bytes))
	m.ProcessedBytes.Set(0)
	m.Failures.Set(0)
	m.QueueDepth.Set(0)
}

// RecordItem records one stage outcome for a file.
func (m *Metrics) RecordItem(stage string, ok bool, bytes int64, d time.Duration) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if !ok {
		outcome = OutcomeFailure
	}
	m.ItemsTotal.WithLabelValues(stage, outcome).Inc()
	m.ItemDuration.WithLabelValues(stage).Observe(d.Seconds())
	if ok && bytes > 0 {
		m.BytesTotal.WithLabelValues(stage).Add(float64(bytes))
	}
}

// SetProgress mirrors the session counters.
func (m *Metrics) SetProgress(processedBytes, failures int64) {
	if m == nil {
		return
	}
	m.ProcessedBytes.Set(float64(processedBytes))
	m.Failures.Set(float64(failures))
}

// SetQueueDepth records how many staged files wait for upload.
func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}
