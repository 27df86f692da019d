package metrics

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// GinServerMetrics represents a collection of metrics to be registered on a
// Prometheus metrics registry for a gin server.
type GinServerMetrics struct {
	startedRequest *prometheus.CounterVec
	handledRequest *prometheus.CounterVec

	countsHandlingTimeEnabled bool
	countsHandlingTimeOpts    prometheus.HistogramOpts
	countsHandlingTime        *prometheus.HistogramVec
}

// NewGinServerMetrics returns a GinServerMetrics object, namespaced and
// subsystemed for a Prometheus registry.
func NewGinServerMetrics(namespace, subsystem string) *GinServerMetrics {
	return &GinServerMetrics{
		startedRequest: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gin_server_started_total",
				Help:      "Total number of gin requests started on the server.",
			}, []string{"method", "path"}),
		handledRequest: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "gin_server_handled_total",
				Help:      "Total number of gin requests completed on the server, regardless of success or failure.",
			}, []string{"code", "method", "path"}),
		countsHandlingTimeEnabled: false,
		countsHandlingTimeOpts: prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "gin_server_handling_seconds",
			Help:      "Histogram of response latency (seconds) of gin requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		},
		countsHandlingTime: nil,
	}
}

// EnableCountsHandlingTime enables the handling-time histogram. Histograms
// can be expensive on Prometheus servers, so this is opt-in.
func (m *GinServerMetrics) EnableCountsHandlingTime() {
	if !m.countsHandlingTimeEnabled {
		m.countsHandlingTime = prometheus.NewHistogramVec(
			m.countsHandlingTimeOpts,
			[]string{"code", "method", "path"},
		)
	}
	m.countsHandlingTimeEnabled = true
}

func (m *GinServerMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.startedRequest.Describe(ch)
	m.handledRequest.Describe(ch)
	if m.countsHandlingTimeEnabled {
		m.countsHandlingTime.Describe(ch)
	}
}

func (m *GinServerMetrics) Collect(ch chan<- prometheus.Metric) {
	m.startedRequest.Collect(ch)
	m.handledRequest.Collect(ch)
	if m.countsHandlingTimeEnabled {
		m.countsHandlingTime.Collect(ch)
	}
}

// MiddlewareHandler returns a gin.HandlerFunc that records start/handled
// counts and, if enabled, handling-time for every request.
func (m *GinServerMetrics) MiddlewareHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		monitor := newGinServerMonitor(m, c)
		c.Next()
		monitor.code = c.Writer.Status()
		monitor.metrics.handledRequest.WithLabelValues(http.StatusText(monitor.code), monitor.method, monitor.path).Inc()
		if m.countsHandlingTimeEnabled {
			monitor.metrics.countsHandlingTime.WithLabelValues(http.StatusText(monitor.code), monitor.method, monitor.path).Observe(time.Since(monitor.startTime).Seconds())
		}
	}
}

type ginServerMonitor struct {
	metrics   *GinServerMetrics
	code      int
	method    string
	path      string
	startTime time.Time
}

func newGinServerMonitor(metrics *GinServerMetrics, c *gin.Context) *ginServerMonitor {
	monitor := &ginServerMonitor{
		metrics: metrics,
		method:  c.Request.Method,
		path:    c.Request.URL.Path,
		code:    http.StatusOK,
	}
	if metrics.countsHandlingTimeEnabled {
		monitor.startTime = time.Now()
	}
	monitor.metrics.startedRequest.WithLabelValues(monitor.method, monitor.path).Inc()

	return monitor
}
