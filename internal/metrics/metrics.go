// Package metrics exposes Prometheus counters for the audio proxy and stream resolver.
//
// A nil *Metrics is valid; every method on it is a no-op.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vyra"

// Metrics holds the counters and gauges of one server process.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	cacheHitsTotal     prometheus.Counter
	upstreamTotal      prometheus.Counter
	upstreamFailures   prometheus.Counter
	resolutionsTotal   *prometheus.CounterVec
	resolutionFailures prometheus.Counter
	materializedTotal  prometheus.Counter
	cachedEntries      prometheus.Gauge
	cachedBytes        prometheus.Gauge
}

// New creates and registers the metrics on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		cacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_cache_hits_total",
			Help:      "Audio requests answered from the in-memory cache",
		}),
		upstreamTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_upstream_fetches_total",
			Help:      "Audio requests forwarded to the backing URL",
		}),
		upstreamFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proxy_upstream_failures_total",
			Help:      "Upstream fetches that failed in transport",
		}),
		resolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Successful stream resolutions by source",
		}, []string{"source"}),
		resolutionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_failures_total",
			Help:      "Resolutions where every source was exhausted",
		}),
		materializedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "materializations_total",
			Help:      "Tracks fully downloaded into the audio cache",
		}),
		cachedEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_entries",
			Help:      "Number of tracks in the audio cache",
		}),
		cachedBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_bytes",
			Help:      "Total size of the audio cache in bytes",
		}),
	}

	m.registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.cacheHitsTotal,
		m.upstreamTotal,
		m.upstreamFailures,
		m.resolutionsTotal,
		m.resolutionFailures,
		m.materializedTotal,
		m.cachedEntries,
		m.cachedBytes,
	)

	return m
}

func (m *Metrics) IncRequests() {
	if m != nil {
		m.requestsTotal.Inc()
	}
}

func (m *Metrics) IncErrors() {
	if m != nil {
		m.errorsTotal.Inc()
	}
}

func (m *Metrics) IncCacheHits() {
	if m != nil {
		m.cacheHitsTotal.Inc()
	}
}

func (m *Metrics) IncUpstreamFetches() {
	if m != nil {
		m.upstreamTotal.Inc()
	}
}

func (m *Metrics) IncUpstreamFailures() {
	if m != nil {
		m.upstreamFailures.Inc()
	}
}

// IncResolutions counts a resolution answered by the named source.
func (m *Metrics) IncResolutions(source string) {
	if m != nil {
		m.resolutionsTotal.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) IncResolutionFailures() {
	if m != nil {
		m.resolutionFailures.Inc()
	}
}

func (m *Metrics) IncMaterialized() {
	if m != nil {
		m.materializedTotal.Inc()
	}
}

// SetCache records the current audio cache size.
func (m *Metrics) SetCache(entries int, bytes int64) {
	if m != nil {
		m.cachedEntries.Set(float64(entries))
		m.cachedBytes.Set(float64(bytes))
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		h.ServeHTTP(w, r)
	})
}
