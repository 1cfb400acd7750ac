package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers session transitions, command execution and the workflow
// background workers.
type Metrics struct {
	SessionsStarted  prometheus.Counter
	Transitions      *prometheus.CounterVec
	FlowsCompleted   *prometheus.CounterVec
	Commands         *prometheus.CounterVec
	CommandLatency   *prometheus.HistogramVec
	ConflictRetries  prometheus.Counter
	ConflictGiveUps  prometheus.Counter
	PromptRepeats    prometheus.Counter
	SessionsPurged   prometheus.Counter
	PurgeDuration    prometheus.Histogram
	PurgeTaskFailure *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		SessionsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_sessions_started_total",
			Help: "Workflow sessions started",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_session_transitions_total",
			Help: "Session transitions by event and resulting state",
		}, []string{"event", "state"}),
		FlowsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_flows_completed_total",
			Help: "Completed flow instances by flow and summary",
		}, []string{"flow", "summary"}),
		Commands: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_session_commands_total",
			Help: "Executed workflow commands by command and outcome",
		}, []string{"command", "outcome"}),
		CommandLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sahayak_session_command_duration_seconds",
			Help:    "Duration of workflow command execution",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"command"}),
		ConflictRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_session_conflict_retries_total",
			Help: "Session writes re-applied after a version conflict",
		}),
		ConflictGiveUps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_session_conflict_give_ups_total",
			Help: "Session writes abandoned after exhausting conflict retries",
		}),
		PromptRepeats: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_session_prompt_repeats_total",
			Help: "Prompts repeated after the silence window",
		}),
		SessionsPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sahayak_sessions_purged_total",
			Help: "Sessions removed after the retention window",
		}),
		PurgeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "sahayak_session_purge_duration_seconds",
			Help:    "Duration of a purge run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15},
		}),
		PurgeTaskFailure: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sahayak_purge_task_failures_total",
			Help: "Purge worker tasks that returned an error",
		}, []string{"task"}),
	}
}

func (m *Metrics) IncrementStarted() {
	m.SessionsStarted.Inc()
}

func (m *Metrics) IncrementTransition(event, state string) {
	m.Transitions.WithLabelValues(event, state).Inc()
}

func (m *Metrics) IncrementCompleted(flow, summary string) {
	m.FlowsCompleted.WithLabelValues(flow, summary).Inc()
}

// ObserveCommand records a command's outcome and duration. Call with
// time.Now() taken before execution.
func (m *Metrics) ObserveCommand(command, outcome string, start time.Time) {
	m.Commands.WithLabelValues(command, outcome).Inc()
	m.CommandLatency.WithLabelValues(command).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementConflictRetry() {
	m.ConflictRetries.Inc()
}

func (m *Metrics) IncrementConflictGiveUp() {
	m.ConflictGiveUps.Inc()
}

func (m *Metrics) IncrementPromptRepeat() {
	m.PromptRepeats.Inc()
}

func (m *Metrics) AddPurged(n int) {
	m.SessionsPurged.Add(float64(n))
}

func (m *Metrics) ObservePurge(start time.Time) {
	m.PurgeDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementPurgeTaskFailure(task string) {
	m.PurgeTaskFailure.WithLabelValues(task).Inc()
}
