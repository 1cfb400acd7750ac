// Package models holds the workflow session and the closed sets of states,
// flows, steps, events and commands the state machine works over.
package models

import (
	"time"

	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

type State string

const (
	StateIdle             State = "idle"
	StateAwaitingInput    State = "awaiting_input"
	StateProcessing       State = "processing"
	StateCompleted        State = "completed"
	StateErrorRecoverable State = "error_recoverable"
	StateErrorFatal       State = "error_fatal"
)

// CanStartFlow reports whether a new flow instance may begin.
func (s State) CanStartFlow() bool {
	return s == StateIdle || s == StateCompleted || s == StateErrorFatal
}

type Flow string

const (
	FlowNone                Flow = ""
	FlowDeadlineCheck       Flow = "deadline_check"
	FlowEligibilityCheck    Flow = "eligibility_check"
	FlowDocumentExplanation Flow = "document_explanation"
	FlowGrievanceDraft      Flow = "grievance_draft"
)

func (f Flow) IsValid() bool {
	switch f {
	case FlowDeadlineCheck, FlowEligibilityCheck, FlowDocumentExplanation, FlowGrievanceDraft:
		return true
	}
	return false
}

type Step string

const (
	StepNone Step = ""
	StepDone Step = "done"

	// deadline_check
	StepAwaitFacts       Step = "await_facts"
	StepAwaitExtraction  Step = "await_extraction"
	StepAwaitManualFacts Step = "await_manual_facts"
	StepAwaitRule        Step = "await_rule"
	StepEvaluate         Step = "evaluate"

	// eligibility_check
	StepAwaitParcels Step = "await_parcels"
	StepAwaitSchemes Step = "await_schemes"
	StepMatch        Step = "match"

	// document_explanation
	StepAwaitDocument    Step = "await_document"
	StepAwaitExplanation Step = "await_explanation"

	// grievance_draft
	StepSelectApplication Step = "select_application"
	StepAwaitDraft        Step = "await_draft"
)

// FirstStep is where a new instance of f begins.
func (f Flow) FirstStep() Step {
	switch f {
	case FlowDeadlineCheck:
		return StepAwaitFacts
	case FlowEligibilityCheck:
		return StepAwaitParcels
	case FlowDocumentExplanation:
		return StepAwaitDocument
	case FlowGrievanceDraft:
		return StepSelectApplication
	}
	return StepNone
}

// Facts accumulates what the current flow instance has learned. It is reset
// when a new instance starts.
type Facts struct {
	Service        domain.ServiceID      `json:"service,omitempty"`
	Jurisdiction   domain.Jurisdiction   `json:"jurisdiction,omitempty"`
	SubmissionDate domain.Date           `json:"submission_date"`
	DocumentID     string                `json:"document_id,omitempty"`
	ManualRule     *ManualRule           `json:"manual_rule,omitempty"`
	ApplicationID  *domain.ApplicationID `json:"application_id,omitempty"`

	Parcels         []eligibility.Parcel     `json:"parcels,omitempty"`
	ParcelsRecorded bool                     `json:"parcels_recorded,omitempty"`
	Attested        map[string]bool          `json:"attested,omitempty"`
	Schemes         []eligibility.SchemeRule `json:"schemes,omitempty"`
	ExtractedFields map[string]string        `json:"extracted_fields,omitempty"`
}

// Missing names the application facts still needed for a deadline check.
func (f Facts) Missing() []string {
	var missing []string
	if f.Service == "" {
		missing = append(missing, FieldService)
	}
	if f.Jurisdiction == "" {
		missing = append(missing, FieldJurisdiction)
	}
	if f.SubmissionDate.IsZero() {
		missing = append(missing, FieldSubmissionDate)
	}
	return missing
}

func (f Facts) RuleKey() timeline.Key {
	return timeline.Key{Service: f.Service, Jurisdiction: f.Jurisdiction}
}

// Field names shared by prompts, extraction results and input errors.
const (
	FieldService        = "service"
	FieldJurisdiction   = "jurisdiction"
	FieldSubmissionDate = "submission_date"
)

// ManualRule is a processing time typed in by the citizen.
type ManualRule struct {
	DurationUnits int           `json:"duration_units"`
	Unit          timeline.Unit `json:"unit"`
}

// Failure records why the session left the happy path.
type Failure struct {
	Code    dErrors.Code `json:"code"`
	Message string       `json:"message"`
}

// Session is one citizen conversation. Version increases by one on every
// persisted change; stores reject writes that present a stale version.
type Session struct {
	ID       domain.SessionID `json:"id"`
	OwnerID  domain.OwnerID   `json:"owner_id"`
	Language string           `json:"language"`

	State    State `json:"state"`
	Flow     Flow  `json:"flow,omitempty"`
	Step     Step  `json:"step,omitempty"`
	Instance int   `json:"instance"`

	Facts        Facts    `json:"facts"`
	Prompt       *Prompt  `json:"prompt,omitempty"`
	InputRetries int      `json:"input_retries"`
	Outcome      *Outcome `json:"outcome,omitempty"`
	Failure      *Failure `json:"failure,omitempty"`

	// PendingCall is the id of the command whose result the session awaits
	// while Processing. Results carrying any other id are stale.
	PendingCall  string    `json:"pending_call,omitempty"`
	PendingSince time.Time `json:"pending_since,omitempty"`
	Calls        int       `json:"calls"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
	LastPromptAt   time.Time `json:"last_prompt_at,omitempty"`
	PromptRepeats  int       `json:"prompt_repeats"`
	Version        int64     `json:"version"`
}

func NewSession(id domain.SessionID, owner domain.OwnerID, language string, now time.Time) *Session {
	return &Session{
		ID:             id,
		OwnerID:        owner,
		Language:       NormalizeLanguage(language),
		State:          StateIdle,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// ExpiredAt reports whether the session has been inactive for the whole
// retention window.
func (s *Session) ExpiredAt(now time.Time, retention time.Duration) bool {
	return !now.Before(s.LastActivityAt.Add(retention))
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Facts = s.Facts.clone()
	if s.Prompt != nil {
		p := *s.Prompt
		p.Missing = append([]string(nil), s.Prompt.Missing...)
		c.Prompt = &p
	}
	if s.Outcome != nil {
		o := s.Outcome.clone()
		c.Outcome = &o
	}
	if s.Failure != nil {
		f := *s.Failure
		c.Failure = &f
	}
	return &c
}

func (f Facts) clone() Facts {
	c := f
	if f.ManualRule != nil {
		m := *f.ManualRule
		c.ManualRule = &m
	}
	if f.ApplicationID != nil {
		id := *f.ApplicationID
		c.ApplicationID = &id
	}
	c.Parcels = append([]eligibility.Parcel(nil), f.Parcels...)
	c.Schemes = append([]eligibility.SchemeRule(nil), f.Schemes...)
	if f.Attested != nil {
		c.Attested = make(map[string]bool, len(f.Attested))
		for k, v := range f.Attested {
			c.Attested[k] = v
		}
	}
	if f.ExtractedFields != nil {
		c.ExtractedFields = make(map[string]string, len(f.ExtractedFields))
		for k, v := range f.ExtractedFields {
			c.ExtractedFields[k] = v
		}
	}
	return c
}
