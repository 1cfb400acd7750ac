package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"sahayak/internal/timeline/catalog"
	"sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/platform/sentinel"
	"sahayak/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, rule models.Rule) error
	LoadAll(ctx context.Context) ([]models.Rule, error)
}

// Source looks up a published rule outside the local catalog. It returns
// sentinel.ErrNotFound when no rule is known for the key.
type Source interface {
	RetrieveTimelineRule(ctx context.Context, key models.Key) (models.Rule, error)
}

type Auditor interface {
	Emit(ctx context.Context, event audit.ComplianceEvent) error
}

// Service owns the timeline rule catalog and resolves the rule in force.
type Service struct {
	catalog *catalog.Catalog
	store   Store
	source  Source
	auditor Auditor
	logger  *slog.Logger
	group   singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithSource enables lookup of rules missing from the local catalog.
func WithSource(src Source) Option {
	return func(s *Service) {
		s.source = src
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

func (s *Service) Snapshot() *catalog.Snapshot {
	return s.catalog.Snapshot()
}

func (s *Service) Warm(ctx context.Context) error {
	rules, err := s.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("load timeline rules: %w", err)
	}
	snap := s.catalog.Append(rules...)
	s.logger.InfoContext(ctx, "timeline catalog loaded", "rules", len(rules), "version", snap.Version())
	return nil
}

// Publish appends a rule to the shared catalog. Earlier rules for the same
// key are kept for audit.
func (s *Service) Publish(ctx context.Context, rule models.Rule) (models.Rule, error) {
	if err := rule.ValidateForCatalog(); err != nil {
		return models.Rule{}, err
	}
	if rule.RecordedAt.IsZero() {
		rule.RecordedAt = requestcontext.Now(ctx)
	}
	if err := s.store.Append(ctx, rule); err != nil {
		return models.Rule{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish timeline rule")
	}
	if s.auditor != nil {
		if err := s.auditor.Emit(ctx, audit.ComplianceEvent{
			Subject:   rule.Key().String(),
			Action:    audit.EventTimelineRulePublished,
			Decision:  "published",
			Reason:    fmt.Sprintf("%d %s from %s (%s)", rule.DurationUnits, rule.Unit, rule.EffectiveFrom, rule.SourceVersion),
			RequestID: requestcontext.RequestID(ctx),
		}); err != nil {
			return models.Rule{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to publish timeline rule")
		}
	}
	snap := s.catalog.Append(rule)
	s.logger.InfoContext(ctx, "timeline rule published",
		"key", rule.Key().String(),
		"effective_from", rule.EffectiveFrom.String(),
		"source_version", rule.SourceVersion,
		"snapshot_version", snap.Version(),
	)
	return rule, nil
}

// Resolve returns the rule in force on today for key. A catalog miss is
// looked up through the configured source and the result is appended to the
// catalog. Concurrent misses for one key share a single lookup.
func (s *Service) Resolve(ctx context.Context, key models.Key, today domain.Date) (models.Rule, error) {
	if rule, ok := s.catalog.Snapshot().Current(key, today); ok {
		return rule, nil
	}
	if s.source == nil {
		return models.Rule{}, notFound(key)
	}

	v, err, shared := s.group.Do(key.String(), func() (any, error) {
		return s.retrieve(ctx, key)
	})
	if err != nil {
		return models.Rule{}, err
	}
	if shared {
		s.logger.DebugContext(ctx, "timeline lookup shared", "key", key.String())
	}
	rule := v.(models.Rule)
	if rule.EffectiveFrom.After(today) {
		return models.Rule{}, notFound(key)
	}
	return rule, nil
}

func (s *Service) retrieve(ctx context.Context, key models.Key) (models.Rule, error) {
	rule, err := s.source.RetrieveTimelineRule(ctx, key)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return models.Rule{}, notFound(key)
		}
		s.logger.WarnContext(ctx, "timeline lookup failed", "key", key.String(), "error", err)
		return models.Rule{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "The service that looks up processing times is not reachable right now.")
	}
	rule.Service, rule.Jurisdiction = key.Service, key.Jurisdiction
	return s.Publish(ctx, rule)
}

func notFound(key models.Key) error {
	return dErrors.Wrap(
		fmt.Errorf("%w: timeline rule %s", sentinel.ErrNotFound, key),
		dErrors.CodeNotFound,
		"No published processing time was found for this service.",
	)
}
