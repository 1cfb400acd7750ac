package collaborator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers every invoker; series are labelled by collaborator.
type Metrics struct {
	Calls        *prometheus.CounterVec
	Retries      *prometheus.CounterVec
	Latency      *prometheus.HistogramVec
	CircuitState *prometheus.GaugeVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		Calls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_collaborator_calls_total",
			Help: "Collaborator calls by operation and outcome category",
		}, []string{"collaborator", "operation", "outcome"}),
		Retries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_collaborator_retries_total",
			Help: "Collaborator call attempts beyond the first",
		}, []string{"collaborator", "operation"}),
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sahayak_collaborator_call_duration_seconds",
			Help:    "Duration of a collaborator call including retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}, []string{"collaborator", "operation"}),
		CircuitState: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sahayak_collaborator_circuit_open",
			Help: "1 while the collaborator's circuit breaker is open",
		}, []string{"collaborator"}),
	}
}

func (m *Metrics) observe(collaborator, operation, outcome string, d time.Duration) {
	m.Calls.WithLabelValues(collaborator, operation, outcome).Inc()
	m.Latency.WithLabelValues(collaborator, operation).Observe(d.Seconds())
}

func (m *Metrics) retried(collaborator, operation string) {
	m.Retries.WithLabelValues(collaborator, operation).Inc()
}

func (m *Metrics) circuit(collaborator string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	m.CircuitState.WithLabelValues(collaborator).Set(v)
}
