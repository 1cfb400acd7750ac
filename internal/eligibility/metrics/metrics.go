package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Evaluations    *prometheus.CounterVec
	SchemesMatched *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_eligibility_evaluations_total",
			Help: "Eligibility evaluations by outcome (eligible, near_miss, none)",
		}, []string{"outcome"}),
		SchemesMatched: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sahayak_eligibility_schemes_returned",
			Help:    "Schemes returned per evaluation by partition",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 13},
		}, []string{"partition"}),
	}
}

func (m *Metrics) ObserveEvaluation(eligible, nearMiss int) {
	outcome := "none"
	switch {
	case eligible > 0:
		outcome = "eligible"
	case nearMiss > 0:
		outcome = "near_miss"
	}
	m.Evaluations.WithLabelValues(outcome).Inc()
	m.SchemesMatched.WithLabelValues("eligible").Observe(float64(eligible))
	m.SchemesMatched.WithLabelValues("near_miss").Observe(float64(nearMiss))
}
