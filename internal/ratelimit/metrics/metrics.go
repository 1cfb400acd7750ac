package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected  *prometheus.CounterVec
	FailOpens prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Rejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_ratelimit_rejected_total",
			Help: "Requests rejected for exceeding their budget, by route class",
		}, []string{"class"}),
		FailOpens: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_ratelimit_fail_open_total",
			Help: "Requests admitted because the limiter store was unavailable",
		}),
	}
}

func (m *Metrics) IncrementRejected(class string) {
	m.Rejected.WithLabelValues(class).Inc()
}

func (m *Metrics) IncrementFailOpen() {
	m.FailOpens.Inc()
}
