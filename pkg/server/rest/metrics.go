package rest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fahmi-aa/routepack/pkg/graph"
)

type Metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "routepack",
			Name:      "http_requests_total",
			Help:      "HTTP requests by path and status code.",
		}, []string{"path", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "routepack",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// PromHTTPMiddleware records request counts and latencies per route.
func PromHTTPMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			m.requestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(ww.Status())).Inc()
			m.requestDuration.WithLabelValues(r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// cacheStatsCollector exports the graph's block cache counters as gauges.
type cacheStatsCollector struct {
	g *graph.RoutingGraph

	hits     *prometheus.Desc
	misses   *prometheus.Desc
	entries  *prometheus.Desc
	capacity *prometheus.Desc
}

// NewCacheStatsCollector builds a prometheus collector over the graph's
// per-kind block caches.
func NewCacheStatsCollector(g *graph.RoutingGraph) prometheus.Collector {
	return &cacheStatsCollector{
		g: g,
		hits: prometheus.NewDesc("routepack_block_cache_hits_total",
			"Block cache hits by content kind.", []string{"kind"}, nil),
		misses: prometheus.NewDesc("routepack_block_cache_misses_total",
			"Block cache misses by content kind.", []string{"kind"}, nil),
		entries: prometheus.NewDesc("routepack_block_cache_entries",
			"Cached blocks by content kind.", []string{"kind"}, nil),
		capacity: prometheus.NewDesc("routepack_block_cache_capacity",
			"Block cache capacity by content kind.", []string{"kind"}, nil),
	}
}

func (c *cacheStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.entries
	ch <- c.capacity
}

func (c *cacheStatsCollector) Collect(ch chan<- prometheus.Metric) {
	for kind, stats := range c.g.CacheStats() {
		ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits), kind)
		ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses), kind)
		ch <- prometheus.MustNewConstMetric(c.entries, prometheus.GaugeValue, float64(stats.Len), kind)
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(stats.Capacity), kind)
	}
}
