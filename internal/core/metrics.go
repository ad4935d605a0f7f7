package core

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder receives engine and service observations.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	RecordLoad(counts map[EntityKind]int, warnings int)
	RecordAdmission(kind EntityKind, outcome AdmissionOutcome)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}
func (noopMetrics) RecordLoad(map[EntityKind]int, int)                   {}
func (noopMetrics) RecordAdmission(EntityKind, AdmissionOutcome)         {}

// PrometheusMetricsRecorder exports engine metrics through a prometheus
// registerer.
type PrometheusMetricsRecorder struct {
	queries    *prometheus.CounterVec
	durations  *prometheus.HistogramVec
	loads      *prometheus.CounterVec
	records    *prometheus.GaugeVec
	warnings   prometheus.Gauge
	admissions *prometheus.CounterVec
}

// NewPrometheusMetricsRecorder creates the collectors and registers them with
// reg. A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusMetricsRecorder(reg prometheus.Registerer) (*PrometheusMetricsRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	r := &PrometheusMetricsRecorder{
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dorkroom",
			Name:      "queries_total",
			Help:      "Engine operations by name and status.",
		}, []string{"op", "status"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dorkroom",
			Name:      "query_duration_seconds",
			Help:      "Engine operation latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"op"}),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dorkroom",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Snapshot loads by result.",
		}, []string{"result"}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "dorkroom",
			Subsystem: "engine",
			Name:      "records",
			Help:      "Records in the active snapshot by kind.",
		}, []string{"kind"}),
		warnings: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dorkroom",
			Subsystem: "engine",
			Name:      "integrity_warnings",
			Help:      "Integrity warnings reported by the last successful load.",
		}),
		admissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dorkroom",
			Name:      "admissions_total",
			Help:      "Admission outcomes by kind.",
		}, []string{"kind", "outcome"}),
	}
	for _, c := range []prometheus.Collector{r.queries, r.durations, r.loads, r.records, r.warnings, r.admissions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Observe records an operation outcome and latency.
func (r *PrometheusMetricsRecorder) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	status := "error"
	if success {
		status = "success"
	}
	r.queries.WithLabelValues(operation, status).Inc()
	r.durations.WithLabelValues(operation).Observe(duration.Seconds())
	if operation == opLoad {
		r.loads.WithLabelValues(status).Inc()
	}
}

// RecordLoad publishes record counts and the load's warning count.
func (r *PrometheusMetricsRecorder) RecordLoad(counts map[EntityKind]int, warnings int) {
	for kind, n := range counts {
		r.records.WithLabelValues(string(kind)).Set(float64(n))
	}
	r.warnings.Set(float64(warnings))
}

// RecordAdmission counts an admission outcome.
func (r *PrometheusMetricsRecorder) RecordAdmission(kind EntityKind, outcome AdmissionOutcome) {
	r.admissions.WithLabelValues(string(kind), string(outcome)).Inc()
}
