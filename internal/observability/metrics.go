// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Provider metrics
	ProviderRequests *prometheus.CounterVec
	ProviderSignals  *prometheus.CounterVec
	ProviderBudget   *prometheus.GaugeVec

	// Aggregation metrics
	SignalsCollected  prometheus.Counter
	SignalsMerged     prometheus.Counter
	SignalsFiltered   *prometheus.CounterVec
	SignalsEmitted    prometheus.Counter
	SuppressionActive prometheus.Gauge

	// Advisory metrics
	AdvisoryRequests  *prometheus.CounterVec
	AdvisoryFallbacks prometheus.Counter
	AdvisoryLatency   *prometheus.HistogramVec

	// Monitor metrics
	CyclesTotal       *prometheus.CounterVec
	CycleDuration     prometheus.Histogram
	NotificationsSent *prometheus.CounterVec
	LastCycleAt       prometheus.Gauge

	// Storage metrics
	ArchiveRowsWritten prometheus.Counter
	StoreErrors        *prometheus.CounterVec
}

// NewMetrics creates a Metrics instance registered on the given registerer.
// Tests pass a fresh prometheus.NewRegistry to avoid collisions.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "tokenradar"
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Provider metrics
		ProviderRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total provider fetches by platform, operation and status",
		}, []string{"platform", "operation", "status"}),
		ProviderSignals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "signals_total",
			Help:      "Total raw signals returned by platform",
		}, []string{"platform"}),
		ProviderBudget: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "budget_remaining",
			Help:      "Remaining daily request budget by platform",
		}, []string{"platform"}),

		// Aggregation metrics
		SignalsCollected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "signals_collected_total",
			Help:      "Total raw signals collected from all providers",
		}),
		SignalsMerged: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "signals_merged_total",
			Help:      "Total signals produced by merging same-token groups",
		}),
		SignalsFiltered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "signals_filtered_total",
			Help:      "Total signals dropped by filter reason",
		}, []string{"reason"}),
		SignalsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "signals_emitted_total",
			Help:      "Total signals that survived filtering",
		}),
		SuppressionActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "aggregator",
			Name:      "suppression_entries",
			Help:      "Current number of tokens in the suppression window",
		}),

		// Advisory metrics
		AdvisoryRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "advisory",
			Name:      "requests_total",
			Help:      "Total advisory analyses by backend and status",
		}, []string{"backend", "status"}),
		AdvisoryFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "advisory",
			Name:      "fallbacks_total",
			Help:      "Total signals answered by the synthetic fallback",
		}),
		AdvisoryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "advisory",
			Name:      "latency_seconds",
			Help:      "Advisory analysis latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),

		// Monitor metrics
		CyclesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Total scan cycles by status",
		}, []string{"status"}),
		CycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Scan cycle duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
		}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "notifications_total",
			Help:      "Total notification attempts by status",
		}, []string{"status"}),
		LastCycleAt: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "last_cycle_timestamp",
			Help:      "Unix timestamp of the last completed scan cycle",
		}),

		// Storage metrics
		ArchiveRowsWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "archive_rows_total",
			Help:      "Total rows written to the signal archive",
		}),
		StoreErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Total best-effort persistence failures by store",
		}, []string{"store"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
