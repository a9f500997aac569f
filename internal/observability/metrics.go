// Package observability provides metrics and tracing for the interaction engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreLatency records post store latency by backend and operation.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusfeed_store_latency_seconds",
		Help:    "Post store call latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "operation"})

	// InteractionAttempts counts read-modify-write attempts per operation.
	InteractionAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_interaction_attempts_total",
		Help: "Total number of optimistic write attempts",
	}, []string{"operation"})

	// InteractionConflicts counts conditional writes that lost the race.
	InteractionConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_interaction_conflicts_total",
		Help: "Total number of version conflicts on conditional writes",
	}, []string{"operation"})

	// InteractionOutcomes counts finished operations by result code.
	InteractionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_interaction_outcomes_total",
		Help: "Total number of interaction operations by outcome code",
	}, []string{"operation", "code"})

	// InteractionLatency records end-to-end operation latency including retries.
	InteractionLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusfeed_interaction_latency_seconds",
		Help:    "Interaction operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// LegacyRepairs counts likeables whose stored count had drifted from the likes set.
	LegacyRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "campusfeed_like_count_repairs_total",
		Help: "Total number of like counts reconciled before a write",
	})

	// EventsPublished counts interaction events by type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "campusfeed_events_published_total",
		Help: "Total number of interaction events published",
	}, []string{"type", "result"})
)

// TrackStore returns a function that records store latency when called (e.g. defer).
func TrackStore(backend, operation string) func() {
	start := time.Now()
	return func() {
		StoreLatency.WithLabelValues(backend, operation).Observe(time.Since(start).Seconds())
	}
}

// TrackInteraction returns a function that records the outcome and latency of an operation.
func TrackInteraction(operation string) func(code string) {
	start := time.Now()
	return func(code string) {
		InteractionLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
		InteractionOutcomes.WithLabelValues(operation, code).Inc()
	}
}
