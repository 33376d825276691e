// Package metrics provides Prometheus metrics for the arena ranking service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the arena service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Submission metrics
	scoresSubmitted      prometheus.Counter
	duplicateSubmissions prometheus.Counter
	submissionErrors     prometheus.Counter
	submitLatency        prometheus.Histogram

	// Cache read path metrics
	cacheHits      *prometheus.CounterVec
	cacheFallbacks *prometheus.CounterVec

	// Mirror pipeline metrics
	mirrorApplied prometheus.Counter
	mirrorDropped prometheus.Counter
	mirrorErrors  prometheus.Counter
	mirrorLatency prometheus.Histogram

	// Mirror queue metrics
	mirrorQueueSize        prometheus.Gauge
	mirrorQueueCapacity    prometheus.Gauge
	mirrorQueueUtilization prometheus.Gauge
	mirrorWorkerCount      prometheus.Gauge

	// Reconciliation metrics
	resyncRuns      prometheus.Counter
	resyncFailures  prometheus.Counter
	resyncCoalesced prometheus.Counter
	resyncDuration  prometheus.Histogram
	resyncLastUnix  prometheus.Gauge

	// Population metrics
	cachedPlayers prometheus.Gauge
	dbPlayers     prometheus.Gauge
	dbScores      prometheus.Gauge
	gameCount     prometheus.Gauge
	cacheHealthy  prometheus.Gauge

	// Store latency metrics
	rankStoreUpdateLatency prometheus.Histogram
	rankStoreQueryLatency  prometheus.Histogram
	scoreStoreQueryLatency prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error tracking
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "arena",
		subsystem:        "ranking",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // metrics initialization is one long registration list
	auto := promauto.With(m.registry)

	m.scoresSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_submitted_total",
		Help:      "Total number of score submissions durably persisted",
	})

	m.duplicateSubmissions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_duplicate_total",
		Help:      "Total number of duplicate submissions suppressed by idempotency key",
	})

	m.submissionErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_errors_total",
		Help:      "Total number of failed score submissions",
	})

	m.submitLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submit_latency_milliseconds",
		Help:      "Histogram of durable submission latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.cacheHits = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_hits_total",
			Help:      "Ranking queries answered by the rank store, by query kind",
		},
		[]string{"query"},
	)

	m.cacheFallbacks = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "cache_fallbacks_total",
			Help:      "Ranking queries recomputed from the score store, by query kind and reason",
		},
		[]string{"query", "reason"},
	)

	m.mirrorApplied = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_applied_total",
		Help:      "Total number of cache mirror jobs applied",
	})

	m.mirrorDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_dropped_total",
		Help:      "Total number of cache mirror jobs abandoned on backpressure",
	})

	m.mirrorErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_errors_total",
		Help:      "Total number of cache mirror jobs that failed to apply",
	})

	m.mirrorLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_latency_milliseconds",
		Help:      "Histogram of mirror job apply latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.mirrorQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_queue_size",
		Help:      "Current size of the mirror queue",
	})

	m.mirrorQueueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_queue_capacity",
		Help:      "Configured capacity of the mirror queue",
	})

	m.mirrorQueueUtilization = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_queue_utilization_ratio",
		Help:      "Mirror queue utilization ratio (size / capacity)",
	})

	m.mirrorWorkerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mirror_worker_count",
		Help:      "Number of mirror workers draining the queue",
	})

	m.resyncRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resync_runs_total",
		Help:      "Total number of completed full resync passes",
	})

	m.resyncFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resync_failures_total",
		Help:      "Total number of aborted full resync passes",
	})

	m.resyncCoalesced = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resync_coalesced_total",
		Help:      "Total number of resync triggers coalesced into a running pass",
	})

	m.resyncDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resync_duration_milliseconds",
		Help:      "Histogram of full resync pass duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.resyncLastUnix = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resync_last_unix",
		Help:      "Unix timestamp of the last successful full resync",
	})

	m.cachedPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cached_players",
		Help:      "Number of players in the global cached leaderboard",
	})

	m.dbPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "db_players",
		Help:      "Number of distinct players in the authoritative store",
	})

	m.dbScores = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "db_scores",
		Help:      "Number of score rows in the authoritative store",
	})

	m.gameCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "game_count",
		Help:      "Number of registered games",
	})

	m.cacheHealthy = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_healthy",
		Help:      "1 when the rank store answers the health probe, 0 otherwise",
	})

	m.rankStoreUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rankstore_update_latency_milliseconds",
		Help:      "Rank store update operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.rankStoreQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rankstore_query_latency_milliseconds",
		Help:      "Rank store query operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.scoreStoreQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scorestore_query_latency_milliseconds",
		Help:      "Score store query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Errors by component and kind",
		},
		[]string{"component", "kind"},
	)
}

// GetRegistry returns the registry all global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Package-level helpers delegating to the global manager.

func RecordScoreSubmitted()          { globalManager.scoresSubmitted.Inc() }
func RecordDuplicateSubmission()     { globalManager.duplicateSubmissions.Inc() }
func RecordSubmissionError()         { globalManager.submissionErrors.Inc() }
func RecordSubmitLatency(ms float64) { globalManager.submitLatency.Observe(ms) }

func RecordCacheHit(query string) { globalManager.cacheHits.WithLabelValues(query).Inc() }
func RecordCacheFallback(query, reason string) {
	globalManager.cacheFallbacks.WithLabelValues(query, reason).Inc()
}

func RecordMirrorApplied()           { globalManager.mirrorApplied.Inc() }
func RecordMirrorDropped()           { globalManager.mirrorDropped.Inc() }
func RecordMirrorError()             { globalManager.mirrorErrors.Inc() }
func RecordMirrorLatency(ms float64) { globalManager.mirrorLatency.Observe(ms) }

func UpdateMirrorQueueSize(n int)     { globalManager.mirrorQueueSize.Set(float64(n)) }
func UpdateMirrorQueueCapacity(n int) { globalManager.mirrorQueueCapacity.Set(float64(n)) }
func UpdateMirrorQueueUtilization(r float64) {
	globalManager.mirrorQueueUtilization.Set(r)
}
func UpdateMirrorWorkerCount(n int) { globalManager.mirrorWorkerCount.Set(float64(n)) }

func RecordResyncRun()               { globalManager.resyncRuns.Inc() }
func RecordResyncFailure()           { globalManager.resyncFailures.Inc() }
func RecordResyncCoalesced()         { globalManager.resyncCoalesced.Inc() }
func RecordResyncDuration(ms float64) { globalManager.resyncDuration.Observe(ms) }
func UpdateResyncLastUnix(ts float64) { globalManager.resyncLastUnix.Set(ts) }

func UpdateCachedPlayers(n int)  { globalManager.cachedPlayers.Set(float64(n)) }
func UpdateDBPlayers(n int64)    { globalManager.dbPlayers.Set(float64(n)) }
func UpdateDBScores(n int64)     { globalManager.dbScores.Set(float64(n)) }
func UpdateGameCount(n int64)    { globalManager.gameCount.Set(float64(n)) }
func UpdateCacheHealthy(ok bool) {
	if ok {
		globalManager.cacheHealthy.Set(1)
		return
	}
	globalManager.cacheHealthy.Set(0)
}

func RecordRankStoreUpdateLatency(ms float64) { globalManager.rankStoreUpdateLatency.Observe(ms) }
func RecordRankStoreQueryLatency(ms float64)  { globalManager.rankStoreQueryLatency.Observe(ms) }
func RecordScoreStoreQueryLatency(ms float64) { globalManager.scoreStoreQueryLatency.Observe(ms) }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

func RecordErrorByComponent(component, kind string) {
	globalManager.errorsByComponent.WithLabelValues(component, kind).Inc()
}
