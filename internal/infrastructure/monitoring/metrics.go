package monitoring

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/GriffinCanCode/TalentSphere/backend/internal/infrastructure/resilience"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestSize     *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec

	// Orchestrator operations
	OperationCalls    *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec

	// Peer calls
	PeerCalls    *prometheus.CounterVec
	PeerDuration *prometheus.HistogramVec

	// Circuit breakers
	BreakerState       *prometheus.GaugeVec
	BreakerTransitions *prometheus.CounterVec

	// Caches
	CacheLookups   *prometheus.CounterVec
	CacheEvictions *prometheus.CounterVec

	// Matching
	EnrichmentsDropped *prometheus.CounterVec
	MatchScores        prometheus.Histogram
	SideEffectFailures *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.GaugeFunc
	startTime time.Time

	// Snapshot for JSON API - track current values
	snapshot MetricsSnapshot

	mu sync.RWMutex
}

// MetricsSnapshot holds current metric values for JSON API
type MetricsSnapshot struct {
	TotalRequests int64   `json:"total_requests"`
	TotalErrors   int64   `json:"total_errors"`
	PeerCalls     int64   `json:"peer_calls"`
	PeerFailures  int64   `json:"peer_failures"`
	CacheHits     int64   `json:"cache_hits"`
	CacheMisses   int64   `json:"cache_misses"`
	TotalDuration float64 `json:"total_duration_seconds"` // sum of all request durations
	RequestCount  int64   `json:"request_count"`          // count for averaging
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// NewMetrics creates a new metrics collector registered on reg. A nil reg
// uses the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	m := &Metrics{
		startTime: time.Now(),

		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobservice_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		RequestSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobservice_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		ResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobservice_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),

		OperationCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_operations_total",
				Help: "Total number of orchestrator operations by outcome",
			},
			[]string{"operation", "result"},
		),
		OperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobservice_operation_duration_seconds",
				Help:    "Orchestrator operation duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"operation"},
		),

		PeerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_peer_calls_total",
				Help: "Total number of guarded peer calls by status",
			},
			[]string{"service", "status"},
		),
		PeerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jobservice_peer_call_duration_seconds",
				Help:    "Peer call duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"service"},
		),

		BreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jobservice_breaker_state",
				Help: "Circuit breaker state per peer (0 closed, 1 half-open, 2 open)",
			},
			[]string{"service"},
		),
		BreakerTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_breaker_transitions_total",
				Help: "Total number of circuit breaker state changes",
			},
			[]string{"service", "from", "to"},
		),

		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_cache_lookups_total",
				Help: "Total number of cache lookups by result",
			},
			[]string{"cache", "result"},
		),
		CacheEvictions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_cache_evictions_total",
				Help: "Total number of expired cache entries evicted",
			},
			[]string{"cache"},
		),

		EnrichmentsDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_match_enrichments_dropped_total",
				Help: "Candidates dropped because their profile could not be fetched",
			},
			[]string{"status"},
		),
		MatchScores: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "jobservice_match_score",
				Help:    "Distribution of computed match scores",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
		SideEffectFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jobservice_side_effect_failures_total",
				Help: "Failed non-critical peer calls (analytics, notifications, indexing)",
			},
			[]string{"service"},
		),
	}

	m.Uptime = factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "jobservice_uptime_seconds",
			Help: "Service uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration, reqSize, respSize int64) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.RequestSize.WithLabelValues(method, path).Observe(float64(reqSize))
	m.ResponseSize.WithLabelValues(method, path).Observe(float64(respSize))

	// Update snapshot
	m.mu.Lock()
	m.snapshot.TotalRequests++
	m.snapshot.TotalDuration += duration.Seconds()
	m.snapshot.RequestCount++
	if status != "" && (status[0] == '4' || status[0] == '5') {
		m.snapshot.TotalErrors++
	}
	m.mu.Unlock()
}

// RecordOperation records one orchestrator operation
func (m *Metrics) RecordOperation(operation, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.OperationCalls.WithLabelValues(operation, result).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObservePeerCall records a guarded peer call; it satisfies
// resilience.CallObserver.
func (m *Metrics) ObservePeerCall(service, status string, latency time.Duration) {
	if m == nil {
		return
	}
	m.PeerCalls.WithLabelValues(service, status).Inc()
	m.PeerDuration.WithLabelValues(service).Observe(latency.Seconds())

	m.mu.Lock()
	m.snapshot.PeerCalls++
	if status != resilience.StatusOK.String() {
		m.snapshot.PeerFailures++
	}
	m.mu.Unlock()
}

// BreakerStateChanged tracks breaker transitions. Pass it to
// resilience.WithStateChange.
func (m *Metrics) BreakerStateChanged(service string, from, to resilience.State) {
	if m == nil {
		return
	}
	m.BreakerState.WithLabelValues(service).Set(stateValue(to))
	m.BreakerTransitions.WithLabelValues(service, from.String(), to.String()).Inc()
}

func stateValue(s resilience.State) float64 {
	switch s {
	case resilience.StateHalfOpen:
		return 1
	case resilience.StateOpen:
		return 2
	default:
		return 0
	}
}

// CacheHit records a cache hit; with CacheMiss and CacheEvicted it
// satisfies cache.Observer.
func (m *Metrics) CacheHit(cache string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(cache, "hit").Inc()
	m.mu.Lock()
	m.snapshot.CacheHits++
	m.mu.Unlock()
}

// CacheMiss records a cache miss
func (m *Metrics) CacheMiss(cache string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(cache, "miss").Inc()
	m.mu.Lock()
	m.snapshot.CacheMisses++
	m.mu.Unlock()
}

// CacheEvicted records expired entries removed from a cache
func (m *Metrics) CacheEvicted(cache string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CacheEvictions.WithLabelValues(cache).Add(float64(n))
}

// IncEnrichmentDropped counts a candidate dropped from a match fan-out
func (m *Metrics) IncEnrichmentDropped(status string) {
	if m == nil {
		return
	}
	m.EnrichmentsDropped.WithLabelValues(status).Inc()
}

// ObserveMatchScore records a computed match total
func (m *Metrics) ObserveMatchScore(total int) {
	if m == nil {
		return
	}
	m.MatchScores.Observe(float64(total))
}

// IncSideEffectFailure counts a failed fire-and-forget peer call
func (m *Metrics) IncSideEffectFailure(service string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(service).Inc()
}

// Snapshot returns the current counters for the JSON health endpoint
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := m.snapshot
	snap.UptimeSeconds = time.Since(m.startTime).Seconds()
	return snap
}
