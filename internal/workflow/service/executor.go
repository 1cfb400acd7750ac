package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"sahayak/internal/collaborator"
	timeline "sahayak/internal/timeline/models"
	tracking "sahayak/internal/tracking/models"
	trackingservice "sahayak/internal/tracking/service"
	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
	"sahayak/pkg/platform/sentinel"
	"sahayak/pkg/requestcontext"
)

// execute runs one call command and turns its outcome into the result event
// the machine expects. Errors never escape: they travel in the result.
func (s *Service) execute(ctx context.Context, session *models.Session, cmd models.Command) models.Result {
	start := time.Now()
	result := s.dispatch(ctx, session, cmd)
	outcome := "ok"
	if f := result.Failed(); f != nil {
		outcome = string(f.Code)
	}
	if s.metrics != nil {
		s.metrics.ObserveCommand(models.CommandName(cmd), outcome, start)
	}
	return result
}

func (s *Service) dispatch(ctx context.Context, session *models.Session, cmd models.Command) models.Result {
	owner := session.OwnerID
	switch c := cmd.(type) {
	case models.ExtractDocument:
		extraction, err := s.deps.Extractor.Extract(ctx, collaborator.DocumentRef{ID: c.DocumentID})
		if err != nil {
			return models.ExtractionResult{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		fields, dropped := extraction.Confident(s.extractionThreshold)
		return models.ExtractionResult{ResultHeader: ok(c.CallID), Fields: fields, Dropped: dropped}

	case models.ResolveRule:
		today := domain.DateIn(requestcontext.Now(ctx), s.location)
		rule, err := s.deps.Rules.Resolve(ctx, c.Key, today)
		if err != nil {
			return models.RuleResolved{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.RuleResolved{ResultHeader: ok(c.CallID), Rule: rule}

	case models.TrackApplication:
		req := trackingservice.CreateRequest{
			OwnerID:        owner,
			Service:        c.Service,
			Jurisdiction:   c.Jurisdiction,
			SubmissionDate: c.SubmissionDate,
			RequestKey:     c.RequestKey,
		}
		if c.ManualRule != nil {
			req.ManualRule = &timeline.Rule{
				Service:       c.Service,
				Jurisdiction:  c.Jurisdiction,
				DurationUnits: c.ManualRule.DurationUnits,
				Unit:          c.ManualRule.Unit,
				EffectiveFrom: c.SubmissionDate,
				SourceVersion: timeline.ManualPrefix + session.ID.String(),
			}
		}
		record, err := s.deps.Tracker.Create(ctx, req)
		if err != nil {
			return models.ApplicationTracked{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.ApplicationTracked{ResultHeader: ok(c.CallID), Application: applicationOutcome(record)}

	case models.RecordParcels:
		if _, err := s.deps.Eligibility.RecordParcels(ctx, owner, c.Parcels); err != nil {
			return models.ParcelsRecorded{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.ParcelsRecorded{ResultHeader: ok(c.CallID)}

	case models.RetrieveSchemes:
		if s.deps.Retriever == nil {
			return models.SchemesRetrieved{ResultHeader: s.failed(ctx, c.CallID, cmd,
				collaborator.NewError(collaborator.ErrorNotFound, "retriever", "no scheme source configured", nil))}
		}
		schemes, err := s.deps.Retriever.RetrieveSchemeRules(ctx, c.Jurisdiction)
		if err != nil {
			return models.SchemesRetrieved{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.SchemesRetrieved{ResultHeader: ok(c.CallID), Schemes: schemes}

	case models.MatchEligibility:
		result, err := s.deps.Eligibility.Evaluate(ctx, owner, c.Schemes, c.Attested)
		if err != nil {
			return models.EligibilityMatched{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.EligibilityMatched{ResultHeader: ok(c.CallID), Result: result}

	case models.ExplainDocument:
		gen, err := s.deps.Generator.Generate(ctx, collaborator.GenerationRequest{
			Kind:     collaborator.GenerationExplanation,
			Language: c.Language,
			Facts:    c.Fields,
		})
		if err != nil {
			return models.TextGenerated{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.TextGenerated{ResultHeader: ok(c.CallID), Text: gen.Text}

	case models.DraftGrievance:
		text, err := s.draftGrievance(ctx, owner, c)
		if err != nil {
			return models.TextGenerated{ResultHeader: s.failed(ctx, c.CallID, cmd, err)}
		}
		return models.TextGenerated{ResultHeader: ok(c.CallID), Text: text}
	}
	panic("workflow: unexpected command " + models.CommandName(cmd))
}

// draftGrievance only drafts for a breached application of the owner.
func (s *Service) draftGrievance(ctx context.Context, owner domain.OwnerID, c models.DraftGrievance) (string, error) {
	record, err := s.deps.Tracker.Get(ctx, owner, c.ApplicationID)
	if err != nil {
		return "", err
	}
	if record.Status != tracking.StatusBreached {
		return "", dErrors.New(dErrors.CodeConflict, "This application is not past its deadline, so there is nothing to complain about yet.")
	}
	gen, err := s.deps.Generator.Generate(ctx, collaborator.GenerationRequest{
		Kind:     collaborator.GenerationGrievance,
		Language: c.Language,
		Facts: map[string]string{
			"service":           string(record.Service),
			"jurisdiction":      string(record.Jurisdiction),
			"submission_date":   record.SubmissionDate.String(),
			"computed_deadline": record.Deadline.String(),
			"overdue_days":      strconv.Itoa(record.OverdueDays),
			"rule_source":       record.Rule.SourceVersion,
		},
	})
	if err != nil {
		return "", err
	}
	return gen.Text, nil
}

func applicationOutcome(r *tracking.Record) models.ApplicationOutcome {
	return models.ApplicationOutcome{
		ID:          r.ID,
		Deadline:    r.Deadline,
		Status:      string(r.Status),
		OverdueDays: r.OverdueDays,
	}
}

func ok(call string) models.ResultHeader {
	return models.ResultHeader{CallID: call}
}

// failed logs err with its cause and keeps only the code and the user-safe
// message in the result.
func (s *Service) failed(ctx context.Context, call string, cmd models.Command, err error) models.ResultHeader {
	f := failureOf(err)
	s.logger.WarnContext(ctx, "workflow command failed",
		"command", models.CommandName(cmd),
		"call_id", call,
		"code", string(f.Code),
		"error", err,
	)
	return models.ResultHeader{CallID: call, Failure: &f}
}

func failureOf(err error) models.Failure {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return models.Failure{Code: de.Code, Message: de.Message}
	}
	var ce *collaborator.Error
	var code dErrors.Code
	switch {
	case errors.As(err, &ce):
		code = collaboratorCode(ce.Category)
	case errors.Is(err, sentinel.ErrNotFound):
		code = dErrors.CodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		code = dErrors.CodeTimeout
	case errors.Is(err, sentinel.ErrUnavailable):
		code = dErrors.CodeUnavailable
	default:
		code = dErrors.CodeInternal
	}
	return models.Failure{Code: code, Message: models.GuidanceFor(code).Cause}
}

func collaboratorCode(category collaborator.ErrorCategory) dErrors.Code {
	switch category {
	case collaborator.ErrorNotFound:
		return dErrors.CodeNotFound
	case collaborator.ErrorTimeout:
		return dErrors.CodeTimeout
	case collaborator.ErrorInternal:
		return dErrors.CodeInternal
	}
	return dErrors.CodeUnavailable
}
