package breaker

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a prometheus.Collector exposing per-path admit/reject counts:
// a constructor that takes a namespace/subsystem, and plain CounterVecs
// underneath.
type Metrics struct {
	admitted *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewMetrics builds a Metrics collector. Register it on a prometheus
// registry before wiring it into a Map.
func NewMetrics(namespace, subsystem string) *Metrics {
	return &Metrics{
		admitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "breaker_admitted_total",
			Help:      "Total number of requests admitted by the adaptive throttle, by path.",
		}, []string{"path"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "breaker_rejected_total",
			Help:      "Total number of requests shed by the adaptive throttle, by path.",
		}, []string{"path"}),
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.admitted.Describe(ch)
	m.rejected.Describe(ch)
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.admitted.Collect(ch)
	m.rejected.Collect(ch)
}

func (m *Metrics) observe(path string, allowed bool) {
	if allowed {
		m.admitted.WithLabelValues(path).Inc()
	} else {
		m.rejected.WithLabelValues(path).Inc()
	}
}
