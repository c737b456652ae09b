package cache

import "github.com/prometheus/client_golang/prometheus"

const (
	resultHit   = "hit"
	resultMiss  = "miss"
	resultError = "error"
)

// Metrics counts cache lookups and invalidations. A nil *Metrics is a no-op.
type Metrics struct {
	requests      *prometheus.CounterVec
	invalidations prometheus.Counter
}

// NewMetrics creates the counters and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "product_backend",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache operations by result (hit, miss, error).",
		}, []string{"result"}),
		invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "product_backend",
			Subsystem: "cache",
			Name:      "invalidated_keys_total",
			Help:      "Keys removed by prefix invalidation.",
		}),
	}
	reg.MustRegister(m.requests, m.invalidations)
	return m
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
}

func (m *Metrics) invalidated(n int) {
	if m == nil || n == 0 {
		return
	}
	m.invalidations.Add(float64(n))
}
