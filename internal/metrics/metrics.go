package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LookupsTotal tracks resolutions by the tier that answered them
	LookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexcache_lookups_total",
			Help: "Total number of species lookups by answering tier",
		},
		[]string{"tier"}, // cache, store, remote, miss
	)

	// RemoteAttemptsTotal tracks individual catalog attempts by status class
	RemoteAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexcache_remote_attempts_total",
			Help: "Total number of remote catalog attempts",
		},
		[]string{"result"}, // 2xx, 404, 4xx, 5xx, transport
	)

	// RemoteOutcomesTotal tracks classified catalog results
	RemoteOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexcache_remote_outcomes_total",
			Help: "Total number of remote catalog fetches by outcome",
		},
		[]string{"outcome"},
	)

	// RemoteLatency tracks the duration of a whole fetch, retries included
	RemoteLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dexcache_remote_fetch_seconds",
			Help:    "Remote catalog fetch latency in seconds, including backoff",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BackendErrorsTotal tracks failures of cache and store backends
	BackendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexcache_backend_errors_total",
			Help: "Total number of cache or store backend errors",
		},
		[]string{"backend", "op"},
	)

	// PayloadParseFailuresTotal tracks catalog payloads that were not valid JSON
	PayloadParseFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dexcache_payload_parse_failures_total",
			Help: "Total number of catalog payloads that fell back to a minimal view",
		},
	)

	// HTTPRequestsTotal tracks boundary responses
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dexcache_http_requests_total",
			Help: "Total number of HTTP requests served",
		},
		[]string{"route", "code"},
	)

	// StoreRecordsSwept tracks expired rows removed by the sweeper
	StoreRecordsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dexcache_store_records_swept_total",
			Help: "Total number of expired store records removed by the sweeper",
		},
	)

	// DBConnectionPoolUsage tracks SQL pool usage percentage
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dexcache_db_connection_pool_usage_percent",
			Help: "Open connections as a percentage of the configured maximum",
		},
	)
)
