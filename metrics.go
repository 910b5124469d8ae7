package dispatch

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// WithMetrics registers dispatch metrics with reg:
// dispatch_requests_total{outcome,status} and
// dispatch_duration_seconds{outcome}.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(d *Dispatcher) {
		m := &metrics{
			requests: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "dispatch_requests_total",
					Help: "Dispatched requests by terminal outcome and status code.",
				},
				[]string{"outcome", "status"},
			),
			latency: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "dispatch_duration_seconds",
					Help:    "Time spent dispatching a request.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"outcome"},
			),
		}
		reg.MustRegister(m.requests, m.latency)
		d.metrics = m
	}
}

// observe records one request. Escalated and fatal outcomes carry status 0:
// the host decides what is sent.
func (m *metrics) observe(o outcome, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if o == outcomeEscalated || o == outcomeFatal {
		status = 0
	}
	m.requests.WithLabelValues(o.String(), strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(o.String()).Observe(elapsed.Seconds())
}
