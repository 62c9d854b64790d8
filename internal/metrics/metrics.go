// Package metrics declares the Prometheus collectors the scheduler, job
// manager, and query evaluator publish through promauto's default
// registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TaskTransitionsTotal counts resource.Task state transitions by the
// state being entered.
var TaskTransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coreq_task_transitions_total",
		Help: "Total task state transitions by resulting state",
	},
	[]string{"state"},
)

// SIMDDispatchTotal counts boolean kernel dispatch calls by the tier
// actually selected (avx512, avx2, sse4, sse2, neon, or ref).
var SIMDDispatchTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coreq_simd_dispatch_total",
		Help: "Count of SIMD kernel dispatch calls by implementation tier",
	},
	[]string{"impl"},
)

// FilterShortCircuitTotal counts conjunct evaluations skipped because an
// earlier child already decided the AND/OR outcome for a chunk.
var FilterShortCircuitTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coreq_filter_shortcircuit_total",
		Help: "Total conjunct child evaluations skipped by AND/OR short-circuiting",
	},
	[]string{"op"},
)

// JobDurationSeconds measures wall-clock time from job submission to
// result aggregation, by job kind (ann or retrieve).
var JobDurationSeconds = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "coreq_job_duration_seconds",
		Help:    "Duration of a job from decomposition to merged result",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"kind"},
)

// ResourceQueueDepth tracks the current in-queue depth of a resource,
// sampled by the scheduler's loader loop.
var ResourceQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "coreq_resource_queue_depth",
		Help: "Current in-queue depth of a resource",
	},
	[]string{"resource"},
)

// BitmapPoolOpsTotal counts sync.Pool get/put traffic on the shared
// roaring.Bitmap pool, by operation.
var BitmapPoolOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "coreq_bitmap_pool_ops_total",
		Help: "Total get/put operations against the shared roaring.Bitmap pool",
	},
	[]string{"op"},
)
