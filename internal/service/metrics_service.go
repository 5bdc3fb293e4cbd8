package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and scheduler activity.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	generationTotal    *prometheus.CounterVec
	generationDuration prometheus.Observer
	unitsTotal         *prometheus.CounterVec
	applyTotal         *prometheus.CounterVec
	proposalsSwept     prometheus.Counter

	cacheHitCount   uint64
	cacheMissCount  uint64
	requestCount    uint64
	generationCount uint64
	applyCount      uint64
}

// MetricsSnapshot is a cheap in-process summary exposed on the health endpoint.
type MetricsSnapshot struct {
	RequestsTotal    uint64    `json:"requestsTotal"`
	CacheHitRatio    float64   `json:"cacheHitRatio"`
	GenerationsTotal uint64    `json:"generationsTotal"`
	AppliesTotal     uint64    `json:"appliesTotal"`
	Goroutines       int       `json:"goroutines"`
	GeneratedAt      time.Time `json:"generatedAt"`
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	generationTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_generations_total",
		Help: "Schedule generation runs by outcome",
	}, []string{"mode"})

	generationDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "scheduler_generation_seconds",
		Help:    "Time spent planning a schedule",
		Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5},
	})

	unitsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_units_total",
		Help: "Class units handled by the planner",
	}, []string{"result"})

	applyTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduler_applies_total",
		Help: "Proposal apply attempts by outcome",
	}, []string{"outcome"})

	proposalsSwept := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "scheduler_proposals_swept_total",
		Help: "Stale pending proposals moved to rejected",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		generationTotal, generationDuration, unitsTotal, applyTotal, proposalsSwept, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		generationTotal:    generationTotal,
		generationDuration: generationDuration,
		unitsTotal:         unitsTotal,
		applyTotal:         applyTotal,
		proposalsSwept:     proposalsSwept,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	if ratio, ok := m.hitRatio(); ok {
		m.cacheHitRatio.Set(ratio)
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveGeneration records one generate call.
func (m *MetricsService) ObserveGeneration(mode string, scheduled, unscheduled int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationTotal.WithLabelValues(mode).Inc()
	m.generationDuration.Observe(duration.Seconds())
	m.unitsTotal.WithLabelValues("scheduled").Add(float64(scheduled))
	m.unitsTotal.WithLabelValues("unscheduled").Add(float64(unscheduled))
	atomic.AddUint64(&m.generationCount, 1)
}

// RecordApply counts an apply attempt; outcome is "applied", "conflict", "invalid_state" or "error".
func (m *MetricsService) RecordApply(outcome string) {
	if m == nil {
		return
	}
	m.applyTotal.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.applyCount, 1)
}

// RecordSweep counts proposals rejected by the sweeper.
func (m *MetricsService) RecordSweep(rejected int64) {
	if m == nil || rejected <= 0 {
		return
	}
	m.proposalsSwept.Add(float64(rejected))
}

// Snapshot returns aggregated counters for the health endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	ratio, _ := m.hitRatio()
	return MetricsSnapshot{
		RequestsTotal:    atomic.LoadUint64(&m.requestCount),
		CacheHitRatio:    ratio,
		GenerationsTotal: atomic.LoadUint64(&m.generationCount),
		AppliesTotal:     atomic.LoadUint64(&m.applyCount),
		Goroutines:       runtime.NumGoroutine(),
		GeneratedAt:      time.Now().UTC(),
	}
}

func (m *MetricsService) hitRatio() (float64, bool) {
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total == 0 {
		return 0, false
	}
	return float64(hits) / float64(total), true
}
