package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec   // labels: route, status
	HTTPDuration    *prometheus.HistogramVec // labels: route
	CacheLookups    *prometheus.CounterVec   // labels: kind, result=hit|miss
	Computations    *prometheus.CounterVec   // labels: kind, outcome=ok|insufficient|unavailable
	IngestSymbols   *prometheus.CounterVec   // labels: outcome=ok|failed
	IngestJobs      prometheus.Counter
	CacheEvictions  prometheus.Counter
	NormalizedDrops *prometheus.CounterVec // labels: reason=discarded|malformed|duplicate
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketpulse_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_cache_lookups_total",
			Help: "Cache lookups by computation kind and result",
		}, []string{"kind", "result"}),
		Computations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_computations_total",
			Help: "Indicator and change computations by outcome",
		}, []string{"kind", "outcome"}),
		IngestSymbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_ingest_symbols_total",
			Help: "Symbols processed by ingest jobs",
		}, []string{"outcome"}),
		IngestJobs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketpulse_ingest_jobs_total",
			Help: "Ingest jobs started",
		}),
		CacheEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "marketpulse_cache_evictions_total",
			Help: "Expired cache entries removed by the sweeper",
		}),
		NormalizedDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "marketpulse_normalize_dropped_rows_total",
			Help: "Raw rows dropped during normalization by reason",
		}, []string{"reason"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.CacheLookups,
		m.Computations,
		m.IngestSymbols,
		m.IngestJobs,
		m.CacheEvictions,
		m.NormalizedDrops,
	)
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCache is a cache.Observer.
func (m *Metrics) ObserveCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}
