package models

import (
	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

// Event is anything that can advance a session. The set is closed: only
// types in this package implement it.
type Event interface {
	eventName() string
}

// EventName returns a stable name for logs and metrics.
func EventName(e Event) string { return e.eventName() }

// Control events.
type (
	// Start begins a new instance of Flow.
	Start struct {
		Flow Flow
	}
	// Cancel abandons the current flow instance.
	Cancel struct{}
	// Retry re-dispatches the work of a step that failed recoverably.
	Retry struct{}
	// TimerElapsed is delivered periodically while a session is live.
	TimerElapsed struct{}
)

// Input events carry facts from the citizen.
type (
	ApplicationFacts struct {
		Service        domain.ServiceID
		Jurisdiction   domain.Jurisdiction
		SubmissionDate domain.Date
	}
	DocumentSubmitted struct {
		DocumentID string
	}
	ManualRuleEntered struct {
		DurationUnits int
		Unit          timeline.Unit
	}
	ParcelsSubmitted struct {
		Jurisdiction domain.Jurisdiction
		Parcels      []eligibility.Parcel
		Attested     map[string]bool
	}
	ApplicationSelected struct {
		ApplicationID domain.ApplicationID
	}
	// TextInput is free text, typed or transcribed. Clear is false for a
	// transcript below the confidence threshold.
	TextInput struct {
		Text  string
		Clear bool
	}
)

func (Start) eventName() string               { return "start" }
func (Cancel) eventName() string              { return "cancel" }
func (Retry) eventName() string               { return "retry" }
func (TimerElapsed) eventName() string        { return "timer_elapsed" }
func (ApplicationFacts) eventName() string    { return "application_facts" }
func (DocumentSubmitted) eventName() string   { return "document_submitted" }
func (ManualRuleEntered) eventName() string   { return "manual_rule_entered" }
func (ParcelsSubmitted) eventName() string    { return "parcels_submitted" }
func (ApplicationSelected) eventName() string { return "application_selected" }
func (TextInput) eventName() string           { return "text_input" }

// IsInput reports whether e carries citizen input.
func IsInput(e Event) bool {
	switch e.(type) {
	case ApplicationFacts, DocumentSubmitted, ManualRuleEntered, ParcelsSubmitted, ApplicationSelected, TextInput:
		return true
	}
	return false
}

// Result is the outcome of a command, fed back into the machine. Failure is
// set when the command failed.
type Result interface {
	Event
	Call() string
	Failed() *Failure
}

// ResultHeader is embedded by every result.
type ResultHeader struct {
	CallID  string
	Failure *Failure
}

func (h ResultHeader) Call() string     { return h.CallID }
func (h ResultHeader) Failed() *Failure { return h.Failure }

type (
	// ExtractionResult carries the fields extracted with enough confidence;
	// Dropped names the fields that fell below the threshold.
	ExtractionResult struct {
		ResultHeader
		Fields  map[string]string
		Dropped []string
	}
	RuleResolved struct {
		ResultHeader
		Rule timeline.Rule
	}
	ApplicationTracked struct {
		ResultHeader
		Application ApplicationOutcome
	}
	ParcelsRecorded struct {
		ResultHeader
	}
	SchemesRetrieved struct {
		ResultHeader
		Schemes []eligibility.SchemeRule
	}
	EligibilityMatched struct {
		ResultHeader
		Result eligibility.Result
	}
	TextGenerated struct {
		ResultHeader
		Text string
	}
)

func (ExtractionResult) eventName() string   { return "extraction_result" }
func (RuleResolved) eventName() string       { return "rule_resolved" }
func (ApplicationTracked) eventName() string { return "application_tracked" }
func (ParcelsRecorded) eventName() string    { return "parcels_recorded" }
func (SchemesRetrieved) eventName() string   { return "schemes_retrieved" }
func (EligibilityMatched) eventName() string { return "eligibility_matched" }
func (TextGenerated) eventName() string      { return "text_generated" }
