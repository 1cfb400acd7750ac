package service

import (
	"context"
	"fmt"
	"log/slog"

	"sahayak/internal/eligibility/matcher"
	"sahayak/internal/eligibility/metrics"
	"sahayak/internal/eligibility/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/requestcontext"
)

// maxParcels bounds one owner's submission.
const maxParcels = 200

type ParcelStore interface {
	Replace(ctx context.Context, owner domain.OwnerID, parcels []models.Parcel) error
	ListByOwner(ctx context.Context, owner domain.OwnerID) ([]models.Parcel, error)
	DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error)
}

// Auditor receives operations events; delivery is best effort.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	parcels ParcelStore
	auditor Auditor
	metrics *metrics.Metrics
	logger  *slog.Logger
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

func New(parcels ParcelStore, opts ...Option) *Service {
	s := &Service{parcels: parcels, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordParcels validates parcels and makes them the owner's holdings,
// replacing anything submitted earlier. Survey numbers must be unique within
// one submission.
func (s *Service) RecordParcels(ctx context.Context, owner domain.OwnerID, parcels []models.Parcel) ([]models.Parcel, error) {
	if owner.IsNil() {
		return nil, dErrors.Field(dErrors.CodeInvalidInput, "owner_id", "owner is required")
	}
	if len(parcels) == 0 {
		return nil, dErrors.Field(dErrors.CodeInvalidInput, "parcels", "at least one land parcel is required")
	}
	if len(parcels) > maxParcels {
		return nil, dErrors.Field(dErrors.CodeInvalidInput, "parcels", fmt.Sprintf("at most %d land parcels can be submitted", maxParcels))
	}
	normalized := make([]models.Parcel, 0, len(parcels))
	seen := make(map[string]struct{}, len(parcels))
	for _, p := range parcels {
		n, err := p.Normalize()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[n.SurveyNumber]; dup {
			return nil, dErrors.Field(dErrors.CodeInvalidInput, "survey_number",
				fmt.Sprintf("survey number %s appears more than once", n.SurveyNumber))
		}
		seen[n.SurveyNumber] = struct{}{}
		n.OwnerID = owner
		normalized = append(normalized, n)
	}
	if err := s.parcels.Replace(ctx, owner, normalized); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save land parcels")
	}
	return normalized, nil
}

func (s *Service) Parcels(ctx context.Context, owner domain.OwnerID) ([]models.Parcel, error) {
	parcels, err := s.parcels.ListByOwner(ctx, owner)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load land parcels")
	}
	return parcels, nil
}

// Evaluate matches the owner's current holdings against rules.
func (s *Service) Evaluate(ctx context.Context, owner domain.OwnerID, rules []models.SchemeRule, facts map[string]bool) (models.Result, error) {
	parcels, err := s.Parcels(ctx, owner)
	if err != nil {
		return models.Result{}, err
	}
	if len(parcels) == 0 {
		return models.Result{}, dErrors.Field(dErrors.CodeInvalidInput, "parcels", "no land parcels are on record")
	}

	result := matcher.Match(parcels, rules, facts)

	if s.metrics != nil {
		s.metrics.ObserveEvaluation(len(result.Eligible), len(result.NearMiss))
	}
	if s.auditor != nil {
		err := s.auditor.Emit(ctx, audit.Event{
			OwnerID:   owner,
			Action:    string(audit.EventEligibilityEvaluated),
			Decision:  fmt.Sprintf("eligible=%d near_miss=%d", len(result.Eligible), len(result.NearMiss)),
			Reason:    fmt.Sprintf("schemes=%d parcels=%d", len(rules), len(parcels)),
			RequestID: requestcontext.RequestID(ctx),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "failed to emit eligibility audit event", "error", err)
		}
	}
	s.logger.InfoContext(ctx, "eligibility evaluated",
		"schemes", len(rules),
		"eligible", len(result.Eligible),
		"near_miss", len(result.NearMiss),
	)
	return result, nil
}

func (s *Service) DeleteByOwner(ctx context.Context, owner domain.OwnerID) (int, error) {
	n, err := s.parcels.DeleteByOwner(ctx, owner)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete land parcels")
	}
	return n, nil
}
