package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"sahayak/internal/collaborator"
	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	tracking "sahayak/internal/tracking/models"
	trackingservice "sahayak/internal/tracking/service"
	"sahayak/internal/workflow/machine"
	"sahayak/internal/workflow/metrics"
	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/sentinel"
	"sahayak/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id domain.SessionID) (*models.Session, error)
	CompareAndSwap(ctx context.Context, next *models.Session) (*models.Session, error)
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Session, error)
	ListActiveSince(ctx context.Context, since time.Time) ([]domain.SessionID, error)
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
	PurgeInactiveBefore(ctx context.Context, cutoff time.Time) ([]*models.Session, error)
}

// Tracker is the application tracking registry as seen from a session.
type Tracker interface {
	Create(ctx context.Context, req trackingservice.CreateRequest) (*tracking.Record, error)
	Get(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*tracking.Record, error)
}

type RuleResolver interface {
	Resolve(ctx context.Context, key timeline.Key, today domain.Date) (timeline.Rule, error)
}

type Eligibility interface {
	RecordParcels(ctx context.Context, owner domain.OwnerID, parcels []eligibility.Parcel) ([]eligibility.Parcel, error)
	Evaluate(ctx context.Context, owner domain.OwnerID, rules []eligibility.SchemeRule, facts map[string]bool) (eligibility.Result, error)
}

type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Dependencies are the modules and collaborators commands are executed
// against. Collaborators left nil are treated as unconfigured outages.
type Dependencies struct {
	Tracker     Tracker
	Rules       RuleResolver
	Eligibility Eligibility
	Extractor   collaborator.Extractor
	Speech      collaborator.Speech
	Retriever   collaborator.Retriever
	Generator   collaborator.Generator
}

// Service runs workflow sessions. Every event is applied with the pure
// machine, persisted with a version check, and only then are the resulting
// commands executed. Command results are fed back as events the same way.
type Service struct {
	store   Store
	deps    Dependencies
	machine machine.Machine
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger

	location            *time.Location
	retention           time.Duration
	liveWindow          time.Duration
	maxConflictRetries  int
	extractionThreshold float64
	transcriptThreshold float64
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

// WithMachine sets the silence window, stall timeout, input retry bound
// and location the state machine runs with.
func WithMachine(cfg machine.Config) Option {
	return func(s *Service) {
		s.machine = machine.New(cfg)
		if cfg.Location != nil {
			s.location = cfg.Location
		}
	}
}

func WithRetention(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.retention = d
		}
	}
}

// WithLiveWindow sets how recently a session must have seen activity for
// the timer to visit it.
func WithLiveWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.liveWindow = d
		}
	}
}

func WithMaxConflictRetries(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxConflictRetries = n
		}
	}
}

// WithThresholds sets the confidence below which extracted fields are
// dropped and transcripts are treated as unclear.
func WithThresholds(extraction, transcript float64) Option {
	return func(s *Service) {
		s.extractionThreshold = extraction
		s.transcriptThreshold = transcript
	}
}

func New(store Store, deps Dependencies, opts ...Option) *Service {
	if deps.Extractor == nil {
		deps.Extractor = collaborator.Unconfigured{Name: "extractor"}
	}
	if deps.Speech == nil {
		deps.Speech = collaborator.Unconfigured{Name: "speech"}
	}
	if deps.Generator == nil {
		deps.Generator = collaborator.Unconfigured{Name: "generator"}
	}
	s := &Service{
		store:               store,
		deps:                deps,
		machine:             machine.New(machine.DefaultConfig()),
		logger:              slog.Default(),
		location:            time.UTC,
		retention:           90 * 24 * time.Hour,
		liveWindow:          time.Hour,
		maxConflictRetries:  3,
		extractionThreshold: 0.75,
		transcriptThreshold: 0.6,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens a new idle session for owner.
func (s *Service) Start(ctx context.Context, owner domain.OwnerID, language string) (*models.Session, error) {
	if owner.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "Please sign in to start a conversation.")
	}
	now := requestcontext.Now(ctx)
	session := models.NewSession(domain.NewSessionID(), owner, language, now)
	p := models.PromptFor(models.FlowNone, models.StepNone, session.Language)
	session.Prompt = &p
	session.LastPromptAt = now
	if err := s.store.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to start the conversation")
	}
	if s.metrics != nil {
		s.metrics.IncrementStarted()
	}
	s.emit(ctx, session, audit.EventSessionStarted, "started", session.Language)
	s.logger.InfoContext(ctx, "session started",
		"session_id", session.ID.String(),
		"language", session.Language,
		"request_id", requestcontext.RequestID(ctx),
	)
	return session, nil
}

// Resume returns the session exactly as last persisted.
func (s *Service) Resume(ctx context.Context, owner domain.OwnerID, id domain.SessionID) (*models.Session, error) {
	return s.load(ctx, owner, id)
}

// ListByOwner returns the owner's sessions, oldest first.
func (s *Service) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Session, error) {
	sessions, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list conversations")
	}
	return sessions, nil
}

// Advance applies ev to the session, then runs the commands it produced
// until the session waits on the citizen again. The returned session is the
// last persisted state.
func (s *Service) Advance(ctx context.Context, owner domain.OwnerID, id domain.SessionID, ev models.Event) (*models.Session, error) {
	session, cmds, err := s.apply(ctx, owner, id, ev)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, session, cmds)
}

// SubmitVoice transcribes audio and advances the session with the text.
// A transcript below the confidence threshold, or a failed transcription,
// reaches the machine as unclear input.
func (s *Service) SubmitVoice(ctx context.Context, owner domain.OwnerID, id domain.SessionID, audio collaborator.Audio) (*models.Session, error) {
	if _, err := s.load(ctx, owner, id); err != nil {
		return nil, err
	}
	var input models.TextInput
	transcript, err := s.deps.Speech.Transcribe(ctx, audio)
	if err != nil {
		s.logger.WarnContext(ctx, "transcription failed",
			"session_id", id.String(),
			"category", string(collaborator.CategoryOf(err)),
			"error", err,
		)
	} else {
		input = models.TextInput{Text: transcript.Text, Clear: transcript.Clear(s.transcriptThreshold)}
	}
	return s.Advance(ctx, owner, id, input)
}

// DeleteByOwner removes every session of owner.
func (s *Service) DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error) {
	n, err := s.store.DeleteByOwner(ctx, owner)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete conversations")
	}
	return n, nil
}

func (s *Service) load(ctx context.Context, owner domain.OwnerID, id domain.SessionID) (*models.Session, error) {
	session, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, wrapSessionErr(err)
	}
	if session.OwnerID != owner {
		return nil, dErrors.New(dErrors.CodeForbidden, "This conversation belongs to a different account.")
	}
	return session, nil
}

// apply transitions and persists with a version check. A lost race
// re-reads the session and re-applies the event, up to the conflict bound.
func (s *Service) apply(ctx context.Context, owner domain.OwnerID, id domain.SessionID, ev models.Event) (*models.Session, []models.Command, error) {
	for attempt := 1; ; attempt++ {
		current, err := s.load(ctx, owner, id)
		if err != nil {
			return nil, nil, err
		}
		next, cmds, err := s.machine.Transition(current, ev, requestcontext.Now(ctx))
		if err != nil {
			return nil, nil, err
		}
		if len(cmds) == 0 {
			return current, nil, nil
		}
		stored, err := s.store.CompareAndSwap(ctx, next)
		if err == nil {
			s.observeTransition(ctx, ev, stored)
			return stored, cmds, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, nil, wrapSessionErr(err)
		}
		if attempt >= s.maxConflictRetries {
			if s.metrics != nil {
				s.metrics.IncrementConflictGiveUp()
			}
			return nil, nil, dErrors.Wrap(err, dErrors.CodeConflict, "Your last step clashed with another change. Please repeat it.")
		}
		if s.metrics != nil {
			s.metrics.IncrementConflictRetry()
		}
		s.logger.DebugContext(ctx, "session write conflict, re-applying",
			"session_id", id.String(),
			"attempt", attempt,
		)
	}
}

// run executes call commands in order and feeds each result back. It stops
// when a transition yields no further calls.
func (s *Service) run(ctx context.Context, session *models.Session, cmds []models.Command) (*models.Session, error) {
	for len(cmds) > 0 {
		var calls []models.Command
		for _, cmd := range cmds {
			switch c := cmd.(type) {
			case models.ShowPrompt:
				if c.Repeat && s.metrics != nil {
					s.metrics.IncrementPromptRepeat()
				}
			case models.FlowCompleted:
				s.completed(ctx, session, c)
			default:
				calls = append(calls, cmd)
			}
		}
		cmds = nil
		for _, call := range calls {
			result := s.execute(ctx, session, call)
			next, more, err := s.apply(ctx, session.OwnerID, session.ID, result)
			if err != nil {
				return nil, err
			}
			session = next
			cmds = append(cmds, more...)
		}
	}
	return session, nil
}

func (s *Service) completed(ctx context.Context, session *models.Session, c models.FlowCompleted) {
	if s.metrics != nil {
		s.metrics.IncrementCompleted(string(c.Flow), string(c.Outcome.Summary))
	}
	s.emit(ctx, session, audit.EventSessionCompleted, string(c.Outcome.Summary), string(c.Flow))
	s.logger.InfoContext(ctx, "flow completed",
		"session_id", session.ID.String(),
		"flow", string(c.Flow),
		"summary", string(c.Outcome.Summary),
	)
}

func (s *Service) observeTransition(ctx context.Context, ev models.Event, stored *models.Session) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(models.EventName(ev), string(stored.State))
	}
	s.logger.DebugContext(ctx, "session transitioned",
		"session_id", stored.ID.String(),
		"event", models.EventName(ev),
		"state", string(stored.State),
		"step", string(stored.Step),
		"version", stored.Version,
	)
}

func (s *Service) emit(ctx context.Context, session *models.Session, action audit.AuditEvent, decision, reason string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Event{
		OwnerID:   session.OwnerID,
		Subject:   session.ID.String(),
		Action:    string(action),
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to emit session audit event",
			"action", string(action),
			"error", err,
		)
	}
}

func wrapSessionErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "This conversation was not found. It may have expired.")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "Your last step clashed with another change. Please repeat it.")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load the conversation")
}
