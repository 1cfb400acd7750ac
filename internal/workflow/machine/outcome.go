package machine

import (
	eligibility "sahayak/internal/eligibility/models"
	"sahayak/internal/workflow/models"
)

var (
	actionTrackApplication = models.NextAction{Key: "track_application", Flow: models.FlowDeadlineCheck}
	actionCheckEligibility = models.NextAction{Key: "check_eligibility", Flow: models.FlowEligibilityCheck}
	actionExplainDocument  = models.NextAction{Key: "explain_document", Flow: models.FlowDocumentExplanation}
	actionDraftGrievance   = models.NextAction{Key: "draft_grievance", Flow: models.FlowGrievanceDraft}
	actionEnd              = models.NextAction{Key: "end_session"}
)

func deadlineOutcome(app models.ApplicationOutcome) models.Outcome {
	o := models.Outcome{Application: &app}
	switch app.Status {
	case "breached":
		o.Summary = models.SummaryDeadlineBreached
		o.NextActions = []models.NextAction{actionDraftGrievance, actionTrackApplication, actionCheckEligibility, actionEnd}
	case "completed":
		o.Summary = models.SummaryDeadlineCompleted
		o.NextActions = []models.NextAction{actionTrackApplication, actionCheckEligibility, actionEnd}
	default:
		o.Summary = models.SummaryDeadlinePending
		o.NextActions = []models.NextAction{actionTrackApplication, actionCheckEligibility, actionExplainDocument, actionEnd}
	}
	return o
}

func eligibilityOutcome(r eligibility.Result) models.Outcome {
	return models.Outcome{
		Summary:     models.SummaryEligibility,
		Eligibility: &r,
		NextActions: []models.NextAction{actionCheckEligibility, actionTrackApplication, actionExplainDocument, actionEnd},
	}
}

func noSchemesOutcome() models.Outcome {
	return models.Outcome{
		Summary:     models.SummaryNoSchemes,
		NextActions: []models.NextAction{actionTrackApplication, actionExplainDocument, actionEnd},
	}
}

func explanationOutcome(text string) models.Outcome {
	return models.Outcome{
		Summary:     models.SummaryDocumentExplained,
		Text:        text,
		NextActions: []models.NextAction{actionTrackApplication, actionExplainDocument, actionEnd},
	}
}

func grievanceOutcome(text string) models.Outcome {
	return models.Outcome{
		Summary:     models.SummaryGrievanceDrafted,
		Text:        text,
		NextActions: []models.NextAction{actionTrackApplication, actionCheckEligibility, actionEnd},
	}
}
