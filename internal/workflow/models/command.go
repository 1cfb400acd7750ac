package models

import (
	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

// Command is work the machine asks for. Commands with a CallID are executed
// after the session is persisted and answered with the matching Result.
type Command interface {
	commandName() string
}

func CommandName(c Command) string { return c.commandName() }

type (
	// ShowPrompt asks the citizen for input. Repeat is set when the prompt
	// is re-issued after silence.
	ShowPrompt struct {
		Prompt Prompt
		Repeat bool
	}
	// FlowCompleted announces a finished flow instance.
	FlowCompleted struct {
		Flow    Flow
		Outcome Outcome
	}

	ExtractDocument struct {
		CallID     string
		DocumentID string
	}
	ResolveRule struct {
		CallID string
		Key    timeline.Key
	}
	// TrackApplication carries a RequestKey fixed for the flow instance,
	// so a dispatch repeated after a stall creates no second record.
	TrackApplication struct {
		CallID         string
		RequestKey     string
		Service        domain.ServiceID
		Jurisdiction   domain.Jurisdiction
		SubmissionDate domain.Date
		ManualRule     *ManualRule
	}
	RecordParcels struct {
		CallID  string
		Parcels []eligibility.Parcel
	}
	RetrieveSchemes struct {
		CallID       string
		Jurisdiction domain.Jurisdiction
	}
	MatchEligibility struct {
		CallID   string
		Schemes  []eligibility.SchemeRule
		Attested map[string]bool
	}
	ExplainDocument struct {
		CallID   string
		Fields   map[string]string
		Language string
	}
	DraftGrievance struct {
		CallID        string
		ApplicationID domain.ApplicationID
		Language      string
	}
)

func (ShowPrompt) commandName() string       { return "show_prompt" }
func (FlowCompleted) commandName() string    { return "flow_completed" }
func (ExtractDocument) commandName() string  { return "extract_document" }
func (ResolveRule) commandName() string      { return "resolve_rule" }
func (TrackApplication) commandName() string { return "track_application" }
func (RecordParcels) commandName() string    { return "record_parcels" }
func (RetrieveSchemes) commandName() string  { return "retrieve_schemes" }
func (MatchEligibility) commandName() string { return "match_eligibility" }
func (ExplainDocument) commandName() string  { return "explain_document" }
func (DraftGrievance) commandName() string   { return "draft_grievance" }
