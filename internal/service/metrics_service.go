package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the bulletin freshness cache.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	bulletinRefreshes prometheus.Counter
	bulletinHits      prometheus.Counter
	bulletinMisses    prometheus.Counter
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests served.",
		}, []string{"method", "path", "status"}),
		bulletinRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_refreshes_total",
			Help: "Bulletin fetch-and-parse cycles completed.",
		}),
		bulletinHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_group_hits_total",
			Help: "Group lookups answered from the parsed bulletin.",
		}),
		bulletinMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bulletin_group_misses_total",
			Help: "Group lookups synthesized from bulletin-wide metadata.",
		}),
	}

	registry.MustRegister(m.requestDuration, m.requestTotal, m.bulletinRefreshes, m.bulletinHits, m.bulletinMisses)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := []string{method, path, strconv.Itoa(status)}
	m.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveBulletinRefresh records one completed bulletin refresh.
func (m *MetricsService) ObserveBulletinRefresh() {
	if m == nil {
		return
	}
	m.bulletinRefreshes.Inc()
}

// ObserveBulletinLookup records whether a group lookup hit the parsed map.
func (m *MetricsService) ObserveBulletinLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.bulletinHits.Inc()
		return
	}
	m.bulletinMisses.Inc()
}
