// Package metrics registers the service's Prometheus collectors. Metrics
// themselves are explicitly out of scope per spec.md §1 ("Metric/telemetry
// sinks... out of scope"), but the ambient instrumentation every other
// component in this repo emits through (rate limiting, the adjust/commit
// engines) is not -- it mirrors the teacher's internal/metrics package.
// OutboxDepth and VacuumRowsRemoved are registered but no component updates
// them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RateLimitedRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "eventd",
		Name:      "rate_limited_requests_total",
		Help:      "Number of requests rejected by the per-account rate limiter.",
	}, []string{"route"})

	OutboxDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "eventd",
		Name:      "notification_outbox_depth",
		Help:      "Number of undelivered rows in the notification outbox.",
	})

	AdjustTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventd",
		Name:      "room_adjust_task_duration_seconds",
		Help:      "Wall-clock duration of a room-adjust task run.",
		Buckets:   prometheus.DefBuckets,
	})

	AdjustTaskFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventd",
		Name:      "room_adjust_task_failures_total",
		Help:      "Number of room-adjust tasks that failed.",
	})

	CommitTaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "eventd",
		Name:      "edition_commit_task_duration_seconds",
		Help:      "Wall-clock duration of an edition-commit task run.",
		Buckets:   prometheus.DefBuckets,
	})

	CommitTaskFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventd",
		Name:      "edition_commit_task_failures_total",
		Help:      "Number of edition-commit tasks that failed.",
	})

	VacuumRowsRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "eventd",
		Name:      "vacuum_rows_removed_total",
		Help:      "Cumulative rows removed by the vacuum pass.",
	})
)
