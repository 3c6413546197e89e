// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests by route pattern, method and status code.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// TasksDispatchedTotal counts dispatches that produced a report.
	TasksDispatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_dispatched_total",
			Help: "Total number of tasks fanned out to workers.",
		},
	)

	// WorkerCallsTotal counts calls to worker execute endpoints by outcome (ok, http_error, unreachable).
	WorkerCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_calls_total",
			Help: "Total number of execute calls made to workers.",
		},
		[]string{"outcome"},
	)

	// WorkerCallDuration observes the latency of worker execute calls.
	WorkerCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "worker_call_duration_seconds",
			Help:    "Latency of execute calls made to workers.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RegisteredWorkers is the current size of the worker registry.
	RegisteredWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "registered_workers",
			Help: "Number of workers currently known to the registry.",
		},
	)

	// ExecutionsTotal counts execute requests served by a worker, by status (success/failed).
	ExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_executions_total",
			Help: "Total number of execute requests handled by this worker.",
		},
		[]string{"status"},
	)

	// FilesCreatedTotal counts files written by the worker file executor.
	FilesCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "worker_files_created_total",
			Help: "Total number of files created by this worker.",
		},
	)
)
