package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	calendar "sahayak/internal/calendar/catalog"
	"sahayak/internal/deadline"
	timelinecatalog "sahayak/internal/timeline/catalog"
	timeline "sahayak/internal/timeline/models"
	"sahayak/internal/tracking/metrics"
	"sahayak/internal/tracking/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/sentinel"
	"sahayak/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, r *models.Record) error
	FindByID(ctx context.Context, id domain.ApplicationID) (*models.Record, error)
	Get(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*models.Record, error)
	FindByRequestKey(ctx context.Context, owner domain.OwnerID, key string) (*models.Record, error)
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Record, error)
	ListActiveIDs(ctx context.Context) ([]domain.ApplicationID, error)
	Execute(ctx context.Context, id domain.ApplicationID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error)
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
}

// RuleResolver finds the timeline rule in force. Snapshot is consulted
// during re-evaluation, which never triggers a remote lookup.
type RuleResolver interface {
	Resolve(ctx context.Context, key timeline.Key, today domain.Date) (timeline.Rule, error)
	Snapshot() *timelinecatalog.Snapshot
}

type CalendarSource interface {
	Snapshot() *calendar.Snapshot
}

type Auditor interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// CreateRequest describes a submission to track. ManualRule is set when the
// citizen supplied the processing time because none could be retrieved.
// RequestKey, when set, makes Create return the record an earlier request
// with the same key created.
type CreateRequest struct {
	OwnerID        domain.OwnerID
	Service        domain.ServiceID
	Jurisdiction   domain.Jurisdiction
	SubmissionDate domain.Date
	ManualRule     *timeline.Rule
	RequestKey     string
}

// Service is the application tracking registry.
type Service struct {
	store    Store
	rules    RuleResolver
	calendar CalendarSource
	auditor  Auditor
	metrics  *metrics.Metrics
	logger   *slog.Logger
	location *time.Location
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

// WithLocation sets the zone in which "today" is determined.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

func New(store Store, rules RuleResolver, cal CalendarSource, opts ...Option) *Service {
	s := &Service{
		store:    store,
		rules:    rules,
		calendar: cal,
		logger:   slog.Default(),
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today(now time.Time) domain.Date {
	return domain.DateIn(now, s.location)
}

// Create validates the submission, resolves the rule in force, computes the
// deadline against one calendar snapshot and stores the record.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*models.Record, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}
	if existing, err := s.existing(ctx, req); existing != nil || err != nil {
		return existing, err
	}
	now := requestcontext.Now(ctx)
	today := s.today(now)
	if req.SubmissionDate.After(today) {
		return nil, dErrors.Field(dErrors.CodeFutureSubmission, "submission_date",
			"The submission date is in the future. Enter the date printed on your acknowledgement.")
	}

	key := timeline.Key{Service: req.Service, Jurisdiction: req.Jurisdiction}
	rule, err := s.ruleFor(ctx, key, today, req.ManualRule)
	if err != nil {
		return nil, err
	}
	due, err := deadline.ComputeDeadline(req.SubmissionDate, rule, req.Jurisdiction, today, s.calendar.Snapshot())
	if err != nil {
		return nil, err
	}
	verdict := deadline.Evaluate(req.SubmissionDate, due, today)

	record := models.NewRecord(domain.NewApplicationID(), req.OwnerID, rule, req.SubmissionDate, due, verdict, now)
	record.RequestKey = req.RequestKey
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, sentinel.ErrConflict) && req.RequestKey != "" {
			if existing, ferr := s.existing(ctx, req); existing != nil || ferr != nil {
				return existing, ferr
			}
		}
		return nil, wrapRecordErr(err)
	}
	if err := s.emit(ctx, record, audit.EventApplicationCreated, string(record.Status),
		fmt.Sprintf("deadline %s under %s", record.Deadline, rule.SourceVersion)); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.logger.InfoContext(ctx, "application tracked",
		"application_id", record.ID.String(),
		"service", record.Service,
		"jurisdiction", record.Jurisdiction,
		"deadline", record.Deadline.String(),
		"status", record.Status,
	)
	return s.reportBreach(ctx, record)
}

// existing returns the record already created for the request key, or nil.
func (s *Service) existing(ctx context.Context, req CreateRequest) (*models.Record, error) {
	if req.RequestKey == "" {
		return nil, nil
	}
	record, err := s.store.FindByRequestKey(ctx, req.OwnerID, req.RequestKey)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	s.logger.InfoContext(ctx, "application already tracked for request",
		"application_id", record.ID.String(),
		"request_key", req.RequestKey,
	)
	return record, nil
}

func (s *Service) ruleFor(ctx context.Context, key timeline.Key, today domain.Date, manual *timeline.Rule) (timeline.Rule, error) {
	if manual == nil {
		return s.rules.Resolve(ctx, key, today)
	}
	rule := *manual
	rule.Service, rule.Jurisdiction = key.Service, key.Jurisdiction
	if !rule.IsManual() {
		return timeline.Rule{}, dErrors.Field(dErrors.CodeInvalidRule, "source_version", "a citizen-supplied rule must be marked manual")
	}
	if err := rule.Validate(); err != nil {
		return timeline.Rule{}, err
	}
	return rule, nil
}

// Reevaluate re-runs the breach verdict for a record. If a published rule
// has superseded the record's rule the deadline is recomputed first.
// Submission date never changes.
func (s *Service) Reevaluate(ctx context.Context, id domain.ApplicationID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	today := s.today(now)
	rules := s.rules.Snapshot()
	cal := s.calendar.Snapshot()

	var (
		recomputed bool
		newRule    timeline.Rule
		newDue     domain.Date
		verdict    deadline.Verdict
	)
	record, err := s.store.Execute(ctx, id,
		func(r *models.Record) error {
			recomputed = false
			if r.IsCompleted() {
				return nil
			}
			due := r.Deadline
			if current, ok := rules.Current(r.Rule.Key(), today); ok && r.Supersedes(current) {
				computed, err := deadline.ComputeDeadline(r.SubmissionDate, current, r.Jurisdiction, today, cal)
				if err != nil {
					return err
				}
				newRule, newDue, recomputed = current, computed, true
				due = computed
			}
			verdict = deadline.Evaluate(r.SubmissionDate, due, today)
			return nil
		},
		func(r *models.Record) {
			if recomputed {
				r.ApplyRule(newRule, newDue)
			}
			r.ApplyVerdict(verdict, now)
		},
	)
	if err != nil {
		return nil, wrapRecordErr(err)
	}

	if recomputed {
		if s.metrics != nil {
			s.metrics.IncrementRecomputed()
		}
		if err := s.emit(ctx, record, audit.EventDeadlineRecomputed, "recomputed",
			fmt.Sprintf("deadline %s under %s", record.Deadline, record.Rule.SourceVersion)); err != nil {
			return nil, err
		}
	}
	if s.metrics != nil {
		s.metrics.IncrementReevaluated(string(record.Status))
	}
	return s.reportBreach(ctx, record)
}

// reportBreach writes a breach to the audit trail once. A failed write is
// retried on the next re-evaluation.
func (s *Service) reportBreach(ctx context.Context, record *models.Record) (*models.Record, error) {
	if !record.NeedsBreachReport() {
		return record, nil
	}
	if err := s.emit(ctx, record, audit.EventBreachDetected, "breached",
		fmt.Sprintf("%d days past %s", record.OverdueDays, record.Deadline)); err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncrementBreached()
	}
	s.logger.InfoContext(ctx, "application breached",
		"application_id", record.ID.String(),
		"overdue_days", record.OverdueDays,
	)

	marked, err := s.store.Execute(ctx, record.ID,
		func(*models.Record) error { return nil },
		func(r *models.Record) { r.MarkBreachReported() },
	)
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	return marked, nil
}

// ReevaluateOwner refreshes every record of one owner.
func (s *Service) ReevaluateOwner(ctx context.Context, owner domain.OwnerID) error {
	records, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return wrapRecordErr(err)
	}
	for _, r := range records {
		if r.IsCompleted() {
			continue
		}
		if _, err := s.Reevaluate(ctx, r.ID); err != nil && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			return err
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*models.Record, error) {
	record, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	return record, nil
}

// ListByOwner returns the owner's records in urgency order.
func (s *Service) ListByOwner(ctx context.Context, owner domain.OwnerID) ([]*models.Record, error) {
	if owner.IsNil() {
		return nil, dErrors.Field(dErrors.CodeInvalidInput, "owner_id", "owner is required")
	}
	records, err := s.store.ListByOwner(ctx, owner)
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	models.SortByUrgency(records)
	return records, nil
}

// MarkCompleted closes a record once the office has delivered.
func (s *Service) MarkCompleted(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	record, err := s.store.Execute(ctx, id,
		func(r *models.Record) error {
			if r.OwnerID != owner {
				return sentinel.ErrNotFound
			}
			if err := r.CanComplete(); err != nil {
				return dErrors.New(dErrors.CodeConflict, "This application is already marked as completed.")
			}
			return nil
		},
		func(r *models.Record) { r.ApplyCompletion(now) },
	)
	if err != nil {
		return nil, wrapRecordErr(err)
	}
	if err := s.emit(ctx, record, audit.EventApplicationCompleted, "completed", ""); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteByOwner removes every record of the owner.
func (s *Service) DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error) {
	n, err := s.store.DeleteByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("delete application records: %w", err)
	}
	return n, nil
}

func (s *Service) emit(ctx context.Context, record *models.Record, action audit.AuditEvent, decision, reason string) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Emit(ctx, audit.ComplianceEvent{
		OwnerID:   record.OwnerID,
		Subject:   record.ID.String(),
		Action:    action,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record application history")
	}
	return nil
}

func validateCreate(req CreateRequest) error {
	if req.OwnerID.IsNil() {
		return dErrors.Field(dErrors.CodeInvalidInput, "owner_id", "owner is required")
	}
	if req.Service == "" {
		return dErrors.Field(dErrors.CodeInvalidInput, "service_identifier", "service identifier is required")
	}
	if req.Jurisdiction == "" {
		return dErrors.Field(dErrors.CodeInvalidInput, "jurisdiction", "jurisdiction is required")
	}
	if req.SubmissionDate.IsZero() {
		return dErrors.Field(dErrors.CodeInvalidInput, "submission_date", "submission date is required")
	}
	return nil
}

func wrapRecordErr(err error) error {
	var de *dErrors.Error
	switch {
	case errors.As(err, &de):
		return err
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "the application was changed by another request, please retry")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to access application records")
	}
}
