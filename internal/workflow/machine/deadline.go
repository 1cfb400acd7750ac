package machine

import (
	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

func (t *transition) deadlineInput(ev models.Event) bool {
	switch t.s.Step {
	case models.StepAwaitFacts:
		switch e := ev.(type) {
		case models.ApplicationFacts:
			t.applicationFacts(e)
			return true
		case models.DocumentSubmitted:
			if e.DocumentID == "" {
				t.rerequest(models.ReasonMissing, []string{"document"})
				return true
			}
			t.s.Facts.DocumentID = e.DocumentID
			t.dispatch(models.StepAwaitExtraction)
			return true
		}
	case models.StepAwaitManualFacts:
		if e, ok := ev.(models.ApplicationFacts); ok {
			t.applicationFacts(e)
			return true
		}
	case models.StepAwaitRule:
		if e, ok := ev.(models.ManualRuleEntered); ok {
			rule := models.ManualRule{DurationUnits: e.DurationUnits, Unit: e.Unit}
			if e.DurationUnits <= 0 || !e.Unit.IsValid() {
				t.rerequest(models.ReasonInvalid, []string{"duration_units", "unit"})
				return true
			}
			t.s.Facts.ManualRule = &rule
			t.dispatch(models.StepEvaluate)
			return true
		}
	}
	return false
}

// applicationFacts merges what the citizen supplied. Complete facts move on
// to rule lookup; partial facts are kept and the rest asked for.
func (t *transition) applicationFacts(e models.ApplicationFacts) {
	if !e.SubmissionDate.IsZero() && e.SubmissionDate.After(t.today()) {
		t.rerequest(models.ReasonInvalid, []string{models.FieldSubmissionDate})
		return
	}
	before := len(t.s.Facts.Missing())
	if e.Service != "" {
		t.s.Facts.Service = e.Service
	}
	if e.Jurisdiction != "" {
		t.s.Facts.Jurisdiction = e.Jurisdiction
	}
	if !e.SubmissionDate.IsZero() {
		t.s.Facts.SubmissionDate = e.SubmissionDate
	}
	missing := t.s.Facts.Missing()
	switch {
	case len(missing) == 0:
		t.dispatch(models.StepAwaitRule)
	case len(missing) < before:
		t.await(models.StepAwaitManualFacts, models.ReasonMissing, missing)
	default:
		t.rerequest(models.ReasonMissing, missing)
	}
}

func (t *transition) deadlineResult(r models.Result) {
	switch t.s.Step {
	case models.StepAwaitExtraction:
		res, ok := r.(models.ExtractionResult)
		if !ok {
			return
		}
		if res.Failure != nil {
			t.await(models.StepAwaitManualFacts, models.ReasonUnavailable, t.s.Facts.Missing())
			return
		}
		t.mergeExtracted(res.Fields)
		missing := t.s.Facts.Missing()
		if len(missing) == 0 {
			t.dispatch(models.StepAwaitRule)
			return
		}
		reason := models.ReasonMissing
		if len(res.Dropped) > 0 {
			reason = models.ReasonUnclear
		}
		t.await(models.StepAwaitManualFacts, reason, missing)

	case models.StepAwaitRule:
		res, ok := r.(models.RuleResolved)
		if !ok {
			return
		}
		if res.Failure != nil {
			t.await(models.StepAwaitRule, ruleReason(res.Failure.Code), nil)
			return
		}
		t.dispatch(models.StepEvaluate)

	case models.StepEvaluate:
		res, ok := r.(models.ApplicationTracked)
		if !ok {
			return
		}
		if res.Failure != nil {
			t.trackingFailed(*res.Failure)
			return
		}
		id := res.Application.ID
		t.s.Facts.ApplicationID = &id
		t.complete(deadlineOutcome(res.Application))
	}
}

func (t *transition) trackingFailed(f models.Failure) {
	switch f.Code {
	case dErrors.CodeFutureSubmission, dErrors.CodeInvalidInput, dErrors.CodeValidation:
		t.s.Facts.SubmissionDate = domain.Date{}
		t.fail(models.StepAwaitManualFacts, f)
	case dErrors.CodeInvalidRule:
		t.s.Facts.ManualRule = nil
		t.fail(models.StepAwaitRule, f)
	case dErrors.CodeNotFound, dErrors.CodeUnavailable, dErrors.CodeTimeout:
		t.await(models.StepAwaitRule, ruleReason(f.Code), nil)
	default:
		t.fail(models.StepEvaluate, f)
	}
}

func (t *transition) mergeExtracted(fields map[string]string) {
	if t.s.Facts.Service == "" {
		if svc, err := domain.ParseServiceID(fields[models.FieldService]); err == nil {
			t.s.Facts.Service = svc
		}
	}
	if t.s.Facts.Jurisdiction == "" {
		if j, err := domain.ParseJurisdiction(fields[models.FieldJurisdiction]); err == nil {
			t.s.Facts.Jurisdiction = j
		}
	}
	if t.s.Facts.SubmissionDate.IsZero() {
		if d, err := domain.ParseDate(fields[models.FieldSubmissionDate]); err == nil && !d.After(t.today()) {
			t.s.Facts.SubmissionDate = d
		}
	}
}

func (t *transition) today() domain.Date {
	return domain.DateIn(t.now, t.m.cfg.Location)
}

func ruleReason(code dErrors.Code) models.PromptReason {
	if code == dErrors.CodeNotFound {
		return models.ReasonNotFound
	}
	return models.ReasonUnavailable
}
