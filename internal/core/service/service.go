package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sahayak/internal/collaborator"
	"sahayak/internal/core/metrics"
	"sahayak/internal/core/models"
	tracking "sahayak/internal/tracking/models"
	workflow "sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
)

// Workflow is the conversational session service.
type Workflow interface {
	Start(ctx context.Context, owner domain.OwnerID, language string) (*workflow.Session, error)
	Resume(ctx context.Context, owner domain.OwnerID, id domain.SessionID) (*workflow.Session, error)
	Advance(ctx context.Context, owner domain.OwnerID, id domain.SessionID, ev workflow.Event) (*workflow.Session, error)
	SubmitVoice(ctx context.Context, owner domain.OwnerID, id domain.SessionID, audio collaborator.Audio) (*workflow.Session, error)
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
}

// Applications is the application tracking registry.
type Applications interface {
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*tracking.Record, error)
	ReevaluateOwner(ctx context.Context, owner domain.OwnerID) error
	MarkCompleted(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*tracking.Record, error)
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
}

type Parcels interface {
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
}

type DeletionStore interface {
	Save(ctx context.Context, p models.PendingDeletion) error
	List(ctx context.Context) ([]models.PendingDeletion, error)
	Get(ctx context.Context, owner domain.OwnerID) (models.PendingDeletion, bool, error)
	Remove(ctx context.Context, owner domain.OwnerID) error
}

// Auditor records deletion outcomes. Writes are fail-closed.
type Auditor interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service is the boundary exposed to citizens. Every operation is scoped to
// the authenticated owner.
type Service struct {
	workflow     Workflow
	applications Applications
	parcels      Parcels
	deletions    DeletionStore
	auditor      Auditor
	metrics      *metrics.Metrics
	logger       *slog.Logger
	tracer       trace.Tracer
	deletionSLA  time.Duration
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithDeletionSLA sets how long a deletion may stay pending before it is
// reported overdue.
func WithDeletionSLA(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.deletionSLA = d
		}
	}
}

func New(wf Workflow, applications Applications, parcels Parcels, deletions DeletionStore, opts ...Option) *Service {
	s := &Service{
		workflow:     wf,
		applications: applications,
		parcels:      parcels,
		deletions:    deletions,
		logger:       slog.Default(),
		tracer:       otel.Tracer("sahayak/core"),
		deletionSLA:  24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StartSession opens a new conversation in the owner's preferred language.
func (s *Service) StartSession(ctx context.Context, owner domain.OwnerID, language string) (session *workflow.Session, err error) {
	ctx, span := s.start(ctx, "core.StartSession", owner)
	defer func() { end(span, err) }()
	return s.workflow.Start(ctx, owner, language)
}

// SubmitApplicationFacts feeds submission details into a deadline check,
// starting one when the session is not already in it.
func (s *Service) SubmitApplicationFacts(ctx context.Context, owner domain.OwnerID, id domain.SessionID, facts workflow.ApplicationFacts) (session *workflow.Session, err error) {
	ctx, span := s.start(ctx, "core.SubmitApplicationFacts", owner, attribute.String("session_id", id.String()))
	defer func() { end(span, err) }()
	return s.enterFlow(ctx, owner, id, workflow.FlowDeadlineCheck, facts)
}

// RequestEligibility feeds land holdings into an eligibility check,
// starting one when the session is not already in it.
func (s *Service) RequestEligibility(ctx context.Context, owner domain.OwnerID, id domain.SessionID, parcels workflow.ParcelsSubmitted) (session *workflow.Session, err error) {
	ctx, span := s.start(ctx, "core.RequestEligibility", owner,
		attribute.String("session_id", id.String()),
		attribute.Int("parcels", len(parcels.Parcels)),
	)
	defer func() { end(span, err) }()
	return s.enterFlow(ctx, owner, id, workflow.FlowEligibilityCheck, parcels)
}

// AdvanceWorkflow applies one event and returns the resulting snapshot.
func (s *Service) AdvanceWorkflow(ctx context.Context, owner domain.OwnerID, id domain.SessionID, ev workflow.Event) (session *workflow.Session, err error) {
	ctx, span := s.start(ctx, "core.AdvanceWorkflow", owner,
		attribute.String("session_id", id.String()),
		attribute.String("event", workflow.EventName(ev)),
	)
	defer func() { end(span, err) }()
	return s.workflow.Advance(ctx, owner, id, ev)
}

// SubmitVoice transcribes audio and advances the session with the text.
func (s *Service) SubmitVoice(ctx context.Context, owner domain.OwnerID, id domain.SessionID, audio collaborator.Audio) (session *workflow.Session, err error) {
	ctx, span := s.start(ctx, "core.SubmitVoice", owner, attribute.String("session_id", id.String()))
	defer func() { end(span, err) }()
	return s.workflow.SubmitVoice(ctx, owner, id, audio)
}

// ResumeSession returns the last persisted state of a session.
func (s *Service) ResumeSession(ctx context.Context, owner domain.OwnerID, id domain.SessionID) (session *workflow.Session, err error) {
	ctx, span := s.start(ctx, "core.ResumeSession", owner, attribute.String("session_id", id.String()))
	defer func() { end(span, err) }()
	return s.workflow.Resume(ctx, owner, id)
}

// ListApplications re-evaluates the owner's open applications and returns
// them in urgency order. A failed re-evaluation is logged and the last
// stored status is returned.
func (s *Service) ListApplications(ctx context.Context, owner domain.OwnerID) (records []*tracking.Record, err error) {
	ctx, span := s.start(ctx, "core.ListApplications", owner)
	defer func() { end(span, err) }()
	if err := s.applications.ReevaluateOwner(ctx, owner); err != nil {
		s.logger.WarnContext(ctx, "re-evaluation before listing failed",
			"owner_id", owner.String(),
			"error", err,
		)
	}
	records, err = s.applications.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("applications", len(records)))
	return records, nil
}

// CompleteApplication records that the office delivered.
func (s *Service) CompleteApplication(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (record *tracking.Record, err error) {
	ctx, span := s.start(ctx, "core.CompleteApplication", owner, attribute.String("application_id", id.String()))
	defer func() { end(span, err) }()
	return s.applications.MarkCompleted(ctx, owner, id)
}

func (s *Service) enterFlow(ctx context.Context, owner domain.OwnerID, id domain.SessionID, flow workflow.Flow, input workflow.Event) (*workflow.Session, error) {
	session, err := s.workflow.Resume(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if !inFlow(session, flow) {
		if _, err := s.workflow.Advance(ctx, owner, id, workflow.Start{Flow: flow}); err != nil {
			return nil, err
		}
	}
	return s.workflow.Advance(ctx, owner, id, input)
}

func inFlow(session *workflow.Session, flow workflow.Flow) bool {
	if session.Flow != flow {
		return false
	}
	return session.State == workflow.StateAwaitingInput || session.State == workflow.StateErrorRecoverable
}

func (s *Service) start(ctx context.Context, name string, owner domain.OwnerID, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, name)
	span.SetAttributes(append(attrs, attribute.String("owner_id", owner.String()))...)
	return ctx, span
}

func end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	}
	span.End()
}
