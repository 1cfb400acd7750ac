package models

import (
	eligibility "sahayak/internal/eligibility/models"
	"sahayak/pkg/domain"
)

// MaxNextActions bounds the suggestions attached to a completed flow.
const MaxNextActions = 4

type Summary string

const (
	SummaryDeadlinePending   Summary = "deadline_pending"
	SummaryDeadlineBreached  Summary = "deadline_breached"
	SummaryDeadlineCompleted Summary = "deadline_completed"
	SummaryEligibility       Summary = "eligibility_results"
	SummaryNoSchemes         Summary = "no_schemes_published"
	SummaryDocumentExplained Summary = "document_explained"
	SummaryGrievanceDrafted  Summary = "grievance_drafted"
)

// ApplicationOutcome is the tracked record a deadline check produced.
type ApplicationOutcome struct {
	ID          domain.ApplicationID `json:"id"`
	Deadline    domain.Date          `json:"computed_deadline"`
	Status      string               `json:"status"`
	OverdueDays int                  `json:"overdue_days"`
}

// NextAction suggests what the citizen can do next. Flow is set when the
// action starts a new flow.
type NextAction struct {
	Key  string `json:"key"`
	Flow Flow   `json:"flow,omitempty"`
}

// Outcome is the summary of a completed flow instance.
type Outcome struct {
	Summary     Summary             `json:"summary"`
	Application *ApplicationOutcome `json:"application,omitempty"`
	Eligibility *eligibility.Result `json:"eligibility,omitempty"`
	Text        string              `json:"text,omitempty"`
	NextActions []NextAction        `json:"next_actions"`
}

func (o Outcome) clone() Outcome {
	c := o
	if o.Application != nil {
		a := *o.Application
		c.Application = &a
	}
	if o.Eligibility != nil {
		r := eligibility.Result{
			Eligible: append([]eligibility.Match(nil), o.Eligibility.Eligible...),
			NearMiss: append([]eligibility.Match(nil), o.Eligibility.NearMiss...),
		}
		c.Eligibility = &r
	}
	c.NextActions = append([]NextAction(nil), o.NextActions...)
	return c
}
