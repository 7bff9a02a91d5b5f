// Package metrics defines Prometheus metrics for sellerscope.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sellerscope"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "Whether the last liveness probe succeeded (1) or failed (0).",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "Whether the last readiness probe succeeded (1) or failed (0).",
	})
)

// Refresh queue metrics.
var (
	EnqueuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_enqueues_total",
		Help:      "Total refresh enqueue requests by origin (manual or system).",
	}, []string{"origin"})

	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current number of queue entries by state.",
	}, []string{"state"})

	QuotaDenialsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "quota_denials_total",
		Help:      "Total manual refresh requests denied by the daily quota.",
	})
)

// Worker metrics.
var (
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "worker_cycle_duration_seconds",
		Help:      "Duration of worker refresh cycles in seconds.",
		Buckets:   prometheus.DefBuckets,
	})

	EntriesProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_entries_processed_total",
		Help:      "Total queue entries driven to a terminal state by the worker.",
	}, []string{"outcome"})

	EntriesReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "worker_entries_reclaimed_total",
		Help:      "Total stuck processing entries returned to pending.",
	})

	SnapshotsWrittenTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "snapshots_written_total",
		Help:      "Total snapshot writes by the worker.",
	})
)

// Scheduler metrics.
var (
	SchedulerNextCycleTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_cycle_timestamp_seconds",
		Help:      "Unix timestamp of the next scheduled refresh cycle.",
	})

	SchedulerNextSweepTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_sweep_timestamp_seconds",
		Help:      "Unix timestamp of the next scheduled policy sweep.",
	})

	SchedulerNextReclaimTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_reclaim_timestamp_seconds",
		Help:      "Unix timestamp of the next scheduled queue reclaim.",
	})
)

// Provider API metrics.
var (
	ProviderCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_calls_total",
		Help:      "Total cumulative enrichment provider API calls.",
	})

	ProviderDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_daily_usage",
		Help:      "Provider API calls used in the current rolling 24-hour window.",
	})

	ProviderBudgetHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_daily_budget_hits_total",
		Help:      "Total number of times the daily provider budget was exhausted.",
	})
)
