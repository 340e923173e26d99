package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ── HTTP request metrics (RED method) ──────────────────────────────────

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status_code"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "velocity_monitor",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path"})

	HTTPRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "velocity_monitor",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "Number of HTTP requests currently being processed.",
	})
)

// ── Poll / fetch metrics ───────────────────────────────────────────────

var (
	FetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "fetch",
		Name:      "total",
		Help:      "Total fetch attempts per token and source.",
	}, []string{"token", "source", "status"})

	FetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "velocity_monitor",
		Subsystem: "fetch",
		Name:      "duration_seconds",
		Help:      "Duration of one fetch per token and source in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"token", "source"})

	ForwardFillsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "fetch",
		Name:      "forward_fills_total",
		Help:      "Observations produced by forward-filling after a failed fetch.",
	}, []string{"token"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "velocity_monitor",
		Subsystem: "poll",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of a full poll cycle in seconds.",
		Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
	})

	CycleLastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "velocity_monitor",
		Subsystem: "poll",
		Name:      "last_success_timestamp",
		Help:      "Unix timestamp of the last completed poll cycle.",
	})
)

// ── Alert delivery metrics ─────────────────────────────────────────────

var (
	AlertsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "alerts",
		Name:      "sent_total",
		Help:      "Total alerts successfully delivered.",
	}, []string{"token", "type"})

	AlertsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "alerts",
		Name:      "failed_total",
		Help:      "Total alert delivery failures.",
	}, []string{"token", "type"})

	AlertsDeduplicatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "alerts",
		Name:      "deduplicated_total",
		Help:      "Total alerts suppressed by deduplication.",
	}, []string{"token", "type"})
)

// ── Business metrics ───────────────────────────────────────────────────

var (
	TokenSupply = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "velocity_monitor",
		Subsystem: "token",
		Name:      "supply",
		Help:      "Latest observed total supply per token.",
	}, []string{"token"})

	TokenPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "velocity_monitor",
		Subsystem: "token",
		Name:      "price_usd",
		Help:      "Latest observed price per token in USD.",
	}, []string{"token"})

	TokenVelocityRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "velocity_monitor",
		Subsystem: "token",
		Name:      "velocity_ratio",
		Help:      "Latest 24h velocity ratio per token.",
	}, []string{"token"})

	FlaggedChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "token",
		Name:      "flagged_changes_total",
		Help:      "Supply changes that crossed the significance threshold.",
	}, []string{"token"})

	ReportWriteFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "velocity_monitor",
		Subsystem: "report",
		Name:      "write_failures_total",
		Help:      "Report cycles that failed while writing output files.",
	})
)
