package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers the application tracking registry and its sweeper.
type Metrics struct {
	RecordsCreated     prometheus.Counter
	Reevaluations      *prometheus.CounterVec
	BreachesDetected   prometheus.Counter
	DeadlineRecomputes prometheus.Counter
	SweepDuration      prometheus.Histogram
	SweepFailures      prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_applications_created_total",
			Help: "Total number of tracked applications created",
		}),
		Reevaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_application_reevaluations_total",
			Help: "Application re-evaluations by resulting status",
		}, []string{"status"}),
		BreachesDetected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_application_breaches_total",
			Help: "Applications that moved into breach",
		}),
		DeadlineRecomputes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_application_deadline_recomputes_total",
			Help: "Deadlines recomputed because the governing rule changed",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sahayak_application_sweep_duration_seconds",
			Help:    "Duration of a full re-evaluation sweep",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60},
		}),
		SweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_application_sweep_failures_total",
			Help: "Records the sweeper failed to re-evaluate",
		}),
	}
}

func (m *Metrics) IncrementCreated() {
	m.RecordsCreated.Inc()
}

func (m *Metrics) IncrementReevaluated(status string) {
	m.Reevaluations.WithLabelValues(status).Inc()
}

func (m *Metrics) IncrementBreached() {
	m.BreachesDetected.Inc()
}

func (m *Metrics) IncrementRecomputed() {
	m.DeadlineRecomputes.Inc()
}

func (m *Metrics) IncrementSweepFailure() {
	m.SweepFailures.Inc()
}

// ObserveSweep records a sweep's duration. Call with time.Now() at the start.
func (m *Metrics) ObserveSweep(start time.Time) {
	m.SweepDuration.Observe(time.Since(start).Seconds())
}
