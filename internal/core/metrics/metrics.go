package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers owner data deletion.
type Metrics struct {
	DeletionsCompleted prometheus.Counter
	DeletionsDeferred  *prometheus.CounterVec
	DeletionsOverdue   prometheus.Gauge
	DeletionsPending   prometheus.Gauge
}

func New() *Metrics {
	return &Metrics{
		DeletionsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_owner_deletions_completed_total",
			Help: "Owner data deletions that removed every part",
		}),
		DeletionsDeferred: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_owner_deletions_deferred_total",
			Help: "Deletion passes that left a part for retry, by part",
		}, []string{"part"}),
		DeletionsOverdue: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sahayak_owner_deletions_overdue",
			Help: "Pending deletions past their completion deadline",
		}),
		DeletionsPending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "sahayak_owner_deletions_pending",
			Help: "Deletions waiting for retry",
		}),
	}
}

func (m *Metrics) IncrementCompleted() {
	m.DeletionsCompleted.Inc()
}

func (m *Metrics) IncrementDeferred(part string) {
	m.DeletionsDeferred.WithLabelValues(part).Inc()
}

func (m *Metrics) SetBacklog(pending, overdue int) {
	m.DeletionsPending.Set(float64(pending))
	m.DeletionsOverdue.Set(float64(overdue))
}
