package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LifecycleTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greencrew_lifecycle_operations_total",
			Help: "Lifecycle engine operations by outcome",
		},
		[]string{"operation", "outcome"},
	)

	LifecycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greencrew_lifecycle_operation_duration_seconds",
			Help:    "Duration of lifecycle engine operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "greencrew_search_duration_seconds",
			Help:    "Duration of job searches",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	SearchResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "greencrew_search_matches",
			Help:    "Number of jobs matching a search before pagination",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
	)

	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greencrew_notifications_emitted_total",
			Help: "Notification records produced by the emitter",
		},
		[]string{"type", "outcome"},
	)

	ProfileCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greencrew_profile_cache_lookups_total",
			Help: "Profile cache lookups by result",
		},
		[]string{"result"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "greencrew_http_requests_total",
			Help: "HTTP API requests",
		},
		[]string{"route", "status"},
	)

	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)
)

// Outcome labels an operation result for the counters above.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
