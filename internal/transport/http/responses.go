package httptransport

import (
	"time"

	"sahayak/internal/core"
	tracking "sahayak/internal/tracking/models"
	workflow "sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
)

// SessionResponse is the citizen-facing snapshot of a session.
type SessionResponse struct {
	SessionID      domain.SessionID  `json:"session_id"`
	Language       string            `json:"language"`
	State          workflow.State    `json:"state"`
	Flow           workflow.Flow     `json:"flow,omitempty"`
	Step           workflow.Step     `json:"step,omitempty"`
	Prompt         *workflow.Prompt  `json:"prompt,omitempty"`
	Outcome        *workflow.Outcome `json:"outcome,omitempty"`
	Failure        *FailureResponse  `json:"failure,omitempty"`
	LastActivityAt time.Time         `json:"last_activity_at"`
	Version        int64             `json:"version"`
}

// FailureResponse explains a failed step in plain language.
type FailureResponse struct {
	Code     string `json:"code"`
	Cause    string `json:"cause"`
	NextStep string `json:"next_step"`
}

func toSessionResponse(s *workflow.Session) SessionResponse {
	resp := SessionResponse{
		SessionID:      s.ID,
		Language:       s.Language,
		State:          s.State,
		Flow:           s.Flow,
		Step:           s.Step,
		Prompt:         s.Prompt,
		Outcome:        s.Outcome,
		LastActivityAt: s.LastActivityAt,
		Version:        s.Version,
	}
	if s.Failure != nil {
		advice := workflow.GuidanceFor(s.Failure.Code)
		resp.Failure = &FailureResponse{
			Code:     string(s.Failure.Code),
			Cause:    advice.Cause,
			NextStep: advice.NextStep,
		}
	}
	return resp
}

// ApplicationResponse is one tracked application.
type ApplicationResponse struct {
	ID               domain.ApplicationID `json:"id"`
	Service          domain.ServiceID     `json:"service"`
	Jurisdiction     domain.Jurisdiction  `json:"jurisdiction"`
	SubmissionDate   domain.Date          `json:"submission_date"`
	ComputedDeadline domain.Date          `json:"computed_deadline"`
	Status           tracking.Status      `json:"status"`
	OverdueDays      int                  `json:"overdue_days"`
	RuleVersion      string               `json:"rule_version"`
	LastEvaluatedAt  time.Time            `json:"last_evaluated_at"`
	CompletedAt      *time.Time           `json:"completed_at,omitempty"`
}

func toApplicationResponse(r *tracking.Record) ApplicationResponse {
	return ApplicationResponse{
		ID:               r.ID,
		Service:          r.Service,
		Jurisdiction:     r.Jurisdiction,
		SubmissionDate:   r.SubmissionDate,
		ComputedDeadline: r.Deadline,
		Status:           r.Status,
		OverdueDays:      r.OverdueDays,
		RuleVersion:      r.Rule.SourceVersion,
		LastEvaluatedAt:  r.LastEvaluatedAt,
		CompletedAt:      r.CompletedAt,
	}
}

// ApplicationListResponse is the body of GET /applications.
type ApplicationListResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}

func toApplicationList(records []*tracking.Record) ApplicationListResponse {
	out := ApplicationListResponse{Applications: make([]ApplicationResponse, 0, len(records))}
	for _, r := range records {
		out.Applications = append(out.Applications, toApplicationResponse(r))
	}
	return out
}

// DeletionResponse is the body of DELETE /me.
type DeletionResponse struct {
	Status      string         `json:"status"`
	RequestedAt time.Time      `json:"requested_at"`
	Removed     map[string]int `json:"removed"`
	Deferred    []string       `json:"deferred,omitempty"`
}

func toDeletionResponse(report core.DeletionReport) DeletionResponse {
	resp := DeletionResponse{
		Status:      "deleted",
		RequestedAt: report.RequestedAt,
		Removed:     make(map[string]int, len(report.Removed)),
	}
	for part, n := range report.Removed {
		resp.Removed[string(part)] = n
	}
	if !report.Complete() {
		resp.Status = "pending"
		for _, part := range report.Deferred {
			resp.Deferred = append(resp.Deferred, string(part))
		}
	}
	return resp
}
