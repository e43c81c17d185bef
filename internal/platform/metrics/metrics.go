package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the compliance engine.
type Metrics struct {
	ConsentsRecorded   *prometheus.CounterVec
	RequestsFiled      *prometheus.CounterVec
	RequestTransitions *prometheus.CounterVec
	OverdueRequests    prometheus.Gauge
	AuditAppends       prometheus.Counter
	AuditAppendRetries prometheus.Counter
	ExportsGenerated   prometheus.Counter
	ExportSourceErrors *prometheus.CounterVec
	ExportDuration     prometheus.Histogram
	PurgesExecuted     prometheus.Counter
	SweepsSkipped      prometheus.Counter
}

// New creates and registers all engine metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		ConsentsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutela_consents_recorded_total",
			Help: "Consent decisions appended to the ledger, by type and decision",
		}, []string{"consent_type", "given"}),
		RequestsFiled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutela_requests_filed_total",
			Help: "Data subject requests filed, by type",
		}, []string{"type"}),
		RequestTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutela_request_transitions_total",
			Help: "Request lifecycle transitions applied, by source and target status",
		}, []string{"from", "to"}),
		OverdueRequests: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tutela_overdue_requests",
			Help: "Pending requests past their statutory deadline",
		}),
		AuditAppends: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutela_audit_events_appended_total",
			Help: "Audit events durably appended to the trail",
		}),
		AuditAppendRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutela_audit_append_retries_total",
			Help: "Audit append attempts retried after a transient store failure",
		}),
		ExportsGenerated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutela_exports_generated_total",
			Help: "Data export bundles generated",
		}),
		ExportSourceErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tutela_export_source_errors_total",
			Help: "Collaborator reads that failed during export and degraded to empty",
		}, []string{"source"}),
		ExportDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tutela_export_duration_seconds",
			Help:    "End-to-end latency of export bundle assembly",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PurgesExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutela_purges_executed_total",
			Help: "Account purges completed by the sweeper",
		}),
		SweepsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tutela_sweeps_skipped_total",
			Help: "Sweep ticks skipped because a previous sweep was still running",
		}),
	}
}
