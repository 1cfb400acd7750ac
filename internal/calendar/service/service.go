package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"sahayak/internal/calendar/catalog"
	"sahayak/internal/calendar/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/requestcontext"
)

// Store persists published calendars so a restart serves the same catalog.
type Store interface {
	SaveCalendar(ctx context.Context, cal models.HolidayCalendar) error
	SaveProfile(ctx context.Context, p models.JurisdictionProfile) error
	LoadAll(ctx context.Context) ([]models.HolidayCalendar, []models.JurisdictionProfile, error)
}

type Auditor interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service answers working-day questions against the current snapshot and is
// the only writer of the calendar catalog.
type Service struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	store   Store
	auditor Auditor
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func New(cat *catalog.Catalog, store Store, opts ...Option) *Service {
	s := &Service{catalog: cat, store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the snapshot a caller should bind one evaluation to.
func (s *Service) Snapshot() *catalog.Snapshot {
	return s.catalog.Snapshot()
}

func (s *Service) IsWorkingDay(_ context.Context, date domain.Date, j domain.Jurisdiction) (bool, error) {
	return s.catalog.Snapshot().IsWorkingDay(date, j)
}

func (s *Service) CountWorkingDays(_ context.Context, start, end domain.Date, j domain.Jurisdiction) (int, error) {
	return s.catalog.Snapshot().CountWorkingDays(start, end, j)
}

// Warm replaces the in-memory catalog with the persisted one.
func (s *Service) Warm(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cals, profiles, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load calendars: %w", err)
	}
	snap, err := s.catalog.Replace(cals, profiles)
	if err != nil {
		return fmt.Errorf("replace calendar catalog: %w", err)
	}
	s.logger.InfoContext(ctx, "calendar catalog loaded",
		"calendars", len(cals),
		"profiles", len(profiles),
		"version", snap.Version(),
	)
	return nil
}

// Publish replaces the whole holiday set for (jurisdiction, year). The
// calendar is persisted before it becomes visible to evaluations.
func (s *Service) Publish(ctx context.Context, cal models.HolidayCalendar) (models.HolidayCalendar, error) {
	normalized, err := cal.Normalize()
	if err != nil {
		return models.HolidayCalendar{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	normalized.Version = s.catalog.Snapshot().Version() + 1
	if normalized.PublishedAt.IsZero() {
		normalized.PublishedAt = requestcontext.Now(ctx)
	}
	if err := s.store.SaveCalendar(ctx, normalized); err != nil {
		return models.HolidayCalendar{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish calendar")
	}
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.ComplianceEvent{
			Subject:   normalized.Key().String(),
			Action:    audit.EventCalendarPublished,
			Decision:  "published",
			Reason:    fmt.Sprintf("%d holidays", len(normalized.Holidays)),
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			return models.HolidayCalendar{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish calendar")
		}
	}
	published, snap, err := s.catalog.Publish(normalized)
	if err != nil {
		return models.HolidayCalendar{}, err
	}
	s.logger.InfoContext(ctx, "calendar published",
		"jurisdiction", published.Jurisdiction,
		"year", published.Year,
		"holidays", len(published.Holidays),
		"snapshot_version", snap.Version(),
	)
	return published, nil
}

func (s *Service) PublishProfile(ctx context.Context, p models.JurisdictionProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveProfile(ctx, p); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save jurisdiction profile")
	}
	if _, err := s.catalog.PublishProfile(p); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "jurisdiction profile published", "jurisdiction", p.Code, "parent", p.Parent)
	return nil
}
