package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "suraksha_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// CacheRequests counts cache lookups by namespace and outcome (hit|miss|stale|expired).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_cache_requests_total",
			Help: "Total number of cache lookups",
		},
		[]string{"namespace", "result"},
	)

	// CacheEvictions counts capacity evictions per namespace.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_cache_evictions_total",
			Help: "Total number of cache entries evicted at capacity",
		},
		[]string{"namespace"},
	)

	// PushDeliveries counts per-subscription push delivery outcomes (sent|failed|gone).
	PushDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_push_deliveries_total",
			Help: "Total number of per-subscription push delivery attempts",
		},
		[]string{"result"},
	)

	// ReplayQueueDepth tracks the number of pending deliveries awaiting drain.
	ReplayQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "suraksha_replay_queue_depth",
			Help: "Number of pending deliveries in the replay queue",
		},
	)

	// ReplayDrains counts drain outcomes (succeeded|failed|discarded) per drain pass.
	ReplayDrains = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_replay_drain_records_total",
			Help: "Total number of replay queue records processed by drains",
		},
		[]string{"result"},
	)

	// RateLimitDecisions counts admission decisions (admitted|rejected).
	RateLimitDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_rate_limit_decisions_total",
			Help: "Total number of rate limiter admission decisions",
		},
		[]string{"result"},
	)

	// SlowQueries counts wrapped queries exceeding the slow-query threshold.
	SlowQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_slow_queries_total",
			Help: "Total number of queries exceeding the slow-query threshold",
		},
		[]string{"query"},
	)

	// FallbackServed counts query results served from canned fallback data.
	FallbackServed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "suraksha_query_fallback_served_total",
			Help: "Total number of query results substituted with fallback data",
		},
		[]string{"query"},
	)
)
