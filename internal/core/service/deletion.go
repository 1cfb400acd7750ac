package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"sahayak/internal/core/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/audit"
	"sahayak/pkg/requestcontext"
)

// DeleteOwnerData removes the owner's sessions, applications and parcels.
// Parts that fail are queued and retried by RetryPendingDeletions until
// they are gone. Audit events are retained.
func (s *Service) DeleteOwnerData(ctx context.Context, owner domain.OwnerID) (report models.DeletionReport, err error) {
	ctx, span := s.start(ctx, "core.DeleteOwnerData", owner)
	defer func() { end(span, err) }()

	if owner.IsNil() {
		return models.DeletionReport{}, dErrors.New(dErrors.CodeUnauthorized, "Please sign in to delete your data.")
	}
	requestedAt := requestcontext.Now(ctx)
	pending, ok, err := s.deletions.Get(ctx, owner)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to read pending deletion", "owner_id", owner.String(), "error", err)
	} else if ok {
		requestedAt = pending.RequestedAt
	}

	report, failure := s.deleteParts(ctx, owner)
	report.RequestedAt = requestedAt
	span.SetAttributes(attribute.Bool("deferred", !report.Complete()))
	if report.Complete() {
		return report, s.finish(ctx, report)
	}
	if err := s.postpone(ctx, report, failure); err != nil {
		return report, err
	}
	return report, nil
}

// RetryPendingDeletions runs another pass over every queued deletion.
func (s *Service) RetryPendingDeletions(ctx context.Context) error {
	pending, err := s.deletions.List(ctx)
	if err != nil {
		return fmt.Errorf("list pending deletions: %w", err)
	}
	now := requestcontext.Now(ctx)
	var errs []error
	remaining, overdue := 0, 0
	for _, p := range pending {
		report, failure := s.deleteParts(ctx, p.OwnerID)
		report.RequestedAt = p.RequestedAt
		if report.Complete() {
			if err := s.finish(ctx, report); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		remaining++
		if p.Due(now, s.deletionSLA) {
			overdue++
			s.logger.ErrorContext(ctx, "owner data deletion overdue",
				"owner_id", p.OwnerID.String(),
				"requested_at", p.RequestedAt,
				"attempts", p.Attempts+1,
				"error", failure,
			)
		}
		if err := s.postpone(ctx, report, failure); err != nil {
			errs = append(errs, err)
		}
	}
	if s.metrics != nil {
		s.metrics.SetBacklog(remaining, overdue)
	}
	return errors.Join(errs...)
}

func (s *Service) deleteParts(ctx context.Context, owner domain.OwnerID) (models.DeletionReport, error) {
	removers := map[models.Part]func(context.Context, domain.OwnerID) (int, error){
		models.PartSessions:     s.workflow.DeleteByOwner,
		models.PartApplications: s.applications.DeleteByOwner,
		models.PartParcels:      s.parcels.DeleteByOwner,
	}
	report := models.DeletionReport{OwnerID: owner, Removed: make(map[models.Part]int, len(models.Parts))}
	var errs []error
	for _, part := range models.Parts {
		n, err := removers[part](ctx, owner)
		if err != nil {
			report.Deferred = append(report.Deferred, part)
			errs = append(errs, fmt.Errorf("%s: %w", part, err))
			continue
		}
		report.Removed[part] = n
	}
	return report, errors.Join(errs...)
}

func (s *Service) finish(ctx context.Context, report models.DeletionReport) error {
	if err := s.deletions.Remove(ctx, report.OwnerID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear pending deletion", "owner_id", report.OwnerID.String(), "error", err)
	}
	if err := s.emit(ctx, report.OwnerID, audit.EventOwnerDataDeleted, "deleted", removedSummary(report)); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.IncrementCompleted()
	}
	s.logger.InfoContext(ctx, "owner data deleted",
		"owner_id", report.OwnerID.String(),
		"removed", removedSummary(report),
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

func (s *Service) postpone(ctx context.Context, report models.DeletionReport, failure error) error {
	err := s.deletions.Save(ctx, models.PendingDeletion{
		OwnerID:     report.OwnerID,
		RequestedAt: report.RequestedAt,
		LastError:   failure.Error(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to queue pending deletion", "owner_id", report.OwnerID.String(), "error", err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "We could not delete your data right now. Please try again later.")
	}
	if s.metrics != nil {
		for _, part := range report.Deferred {
			s.metrics.IncrementDeferred(string(part))
		}
	}
	s.logger.WarnContext(ctx, "owner data deletion deferred",
		"owner_id", report.OwnerID.String(),
		"deferred", report.Deferred,
		"error", failure,
	)
	return s.emit(ctx, report.OwnerID, audit.EventOwnerDeletionDeferred, "deferred", deferredSummary(report))
}

func (s *Service) emit(ctx context.Context, owner domain.OwnerID, action audit.AuditEvent, decision, reason string) error {
	if s.auditor == nil {
		return nil
	}
	err := s.auditor.Emit(ctx, audit.ComplianceEvent{
		Timestamp: requestcontext.Now(ctx),
		OwnerID:   owner,
		Action:    action,
		Decision:  decision,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record the deletion")
	}
	return nil
}

func removedSummary(report models.DeletionReport) string {
	parts := make([]string, 0, len(models.Parts))
	for _, part := range models.Parts {
		if n, ok := report.Removed[part]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", part, n))
		}
	}
	return strings.Join(parts, " ")
}

func deferredSummary(report models.DeletionReport) string {
	parts := make([]string, len(report.Deferred))
	for i, part := range report.Deferred {
		parts[i] = string(part)
	}
	return strings.Join(parts, ",")
}
