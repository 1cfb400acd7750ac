package machine

import (
	"sahayak/internal/workflow/models"
	dErrors "sahayak/pkg/domain-errors"
)

func (t *transition) eligibilityInput(ev models.Event) bool {
	e, ok := ev.(models.ParcelsSubmitted)
	if !ok || t.s.Step != models.StepAwaitParcels {
		return false
	}
	var missing []string
	if e.Jurisdiction == "" {
		missing = append(missing, models.FieldJurisdiction)
	}
	if len(e.Parcels) == 0 {
		missing = append(missing, "parcels")
	}
	if len(missing) > 0 {
		t.rerequest(models.ReasonMissing, missing)
		return true
	}
	t.s.Facts.Jurisdiction = e.Jurisdiction
	t.s.Facts.Parcels = e.Parcels
	t.s.Facts.Attested = e.Attested
	t.s.Facts.ParcelsRecorded = false
	t.s.Facts.Schemes = nil
	t.dispatch(models.StepAwaitSchemes)
	return true
}

func (t *transition) eligibilityResult(r models.Result) {
	switch res := r.(type) {
	case models.ParcelsRecorded:
		if t.s.Step != models.StepAwaitSchemes || t.s.Facts.ParcelsRecorded {
			return
		}
		if f := res.Failure; f != nil {
			if isInputCode(f.Code) {
				t.s.Facts.Parcels = nil
				t.await(models.StepAwaitParcels, models.ReasonInvalid, nil)
				return
			}
			t.fail(models.StepAwaitSchemes, *f)
			return
		}
		t.s.Facts.ParcelsRecorded = true
		t.dispatch(models.StepAwaitSchemes)

	case models.SchemesRetrieved:
		if t.s.Step != models.StepAwaitSchemes || !t.s.Facts.ParcelsRecorded {
			return
		}
		if f := res.Failure; f != nil {
			if f.Code == dErrors.CodeNotFound {
				t.complete(noSchemesOutcome())
				return
			}
			t.fail(models.StepAwaitSchemes, *f)
			return
		}
		if len(res.Schemes) == 0 {
			t.complete(noSchemesOutcome())
			return
		}
		t.s.Facts.Schemes = res.Schemes
		t.dispatch(models.StepMatch)

	case models.EligibilityMatched:
		if t.s.Step != models.StepMatch {
			return
		}
		if f := res.Failure; f != nil {
			if isInputCode(f.Code) {
				t.await(models.StepAwaitParcels, models.ReasonMissing, []string{"parcels"})
				return
			}
			t.fail(models.StepMatch, *f)
			return
		}
		t.complete(eligibilityOutcome(res.Result))
	}
}

func (t *transition) explanationInput(ev models.Event) bool {
	e, ok := ev.(models.DocumentSubmitted)
	if !ok || t.s.Step != models.StepAwaitDocument {
		return false
	}
	if e.DocumentID == "" {
		t.rerequest(models.ReasonMissing, []string{"document"})
		return true
	}
	t.s.Facts.DocumentID = e.DocumentID
	t.s.Facts.ExtractedFields = nil
	t.dispatch(models.StepAwaitExtraction)
	return true
}

func (t *transition) explanationResult(r models.Result) {
	switch res := r.(type) {
	case models.ExtractionResult:
		if t.s.Step != models.StepAwaitExtraction {
			return
		}
		if f := res.Failure; f != nil {
			t.fail(models.StepAwaitDocument, *f)
			return
		}
		if len(res.Fields) == 0 {
			t.s.Step = models.StepAwaitDocument
			t.s.State = models.StateAwaitingInput
			t.s.PendingCall = ""
			t.rerequest(models.ReasonUnclear, nil)
			return
		}
		t.s.Facts.ExtractedFields = res.Fields
		t.dispatch(models.StepAwaitExplanation)

	case models.TextGenerated:
		if t.s.Step != models.StepAwaitExplanation {
			return
		}
		if f := res.Failure; f != nil {
			t.fail(models.StepAwaitExplanation, *f)
			return
		}
		t.complete(explanationOutcome(res.Text))
	}
}

func (t *transition) grievanceInput(ev models.Event) bool {
	e, ok := ev.(models.ApplicationSelected)
	if !ok || t.s.Step != models.StepSelectApplication {
		return false
	}
	if e.ApplicationID.IsNil() {
		t.rerequest(models.ReasonMissing, []string{"application_id"})
		return true
	}
	id := e.ApplicationID
	t.s.Facts.ApplicationID = &id
	t.dispatch(models.StepAwaitDraft)
	return true
}

func (t *transition) grievanceResult(r models.Result) {
	res, ok := r.(models.TextGenerated)
	if !ok || t.s.Step != models.StepAwaitDraft {
		return
	}
	if f := res.Failure; f != nil {
		switch f.Code {
		case dErrors.CodeNotFound, dErrors.CodeConflict, dErrors.CodeInvalidInput:
			t.s.Facts.ApplicationID = nil
			t.await(models.StepSelectApplication, models.ReasonInvalid, nil)
		default:
			t.fail(models.StepAwaitDraft, *f)
		}
		return
	}
	t.complete(grievanceOutcome(res.Text))
}

func isInputCode(code dErrors.Code) bool {
	return code == dErrors.CodeInvalidInput || code == dErrors.CodeValidation
}
