package httptransport

import (
	"sort"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	workflow "sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

const (
	maxParcels    = 200
	maxAudioBytes = 700 << 10
)

// StartSessionRequest is the body of POST /sessions. Language falls back to
// Accept-Language when empty.
type StartSessionRequest struct {
	Language string `json:"language"`
}

func (r *StartSessionRequest) Validate() error {
	r.Language = strings.TrimSpace(r.Language)
	return fieldError(validation.ValidateStruct(r,
		validation.Field(&r.Language, validation.Length(0, 35)),
	))
}

// ApplicationFactsRequest is the body of POST /sessions/{id}/applications.
type ApplicationFactsRequest struct {
	Service        string `json:"service"`
	Jurisdiction   string `json:"jurisdiction"`
	SubmissionDate string `json:"submission_date"`

	facts workflow.ApplicationFacts
}

func (r *ApplicationFactsRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Service, validation.Required),
		validation.Field(&r.Jurisdiction, validation.Required),
		validation.Field(&r.SubmissionDate, validation.Required, validation.Date(domain.DateLayout)),
	)
	if err != nil {
		return fieldError(err)
	}
	service, err := domain.ParseServiceID(r.Service)
	if err != nil {
		return err
	}
	jurisdiction, err := domain.ParseJurisdiction(r.Jurisdiction)
	if err != nil {
		return err
	}
	date, err := domain.ParseDate(r.SubmissionDate)
	if err != nil {
		return err
	}
	r.facts = workflow.ApplicationFacts{Service: service, Jurisdiction: jurisdiction, SubmissionDate: date}
	return nil
}

func (r *ApplicationFactsRequest) Facts() workflow.ApplicationFacts { return r.facts }

// ParcelRequest is one land parcel as submitted.
type ParcelRequest struct {
	SurveyNumber string  `json:"survey_number"`
	Area         float64 `json:"area"`
	AreaUnit     string  `json:"area_unit"`
	Category     string  `json:"category"`
}

func (p ParcelRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.SurveyNumber, validation.Required, validation.Length(1, 64)),
		validation.Field(&p.Area, validation.Required),
		validation.Field(&p.AreaUnit, validation.Required),
		validation.Field(&p.Category, validation.Required, validation.Length(1, 64)),
	)
}

// EligibilityRequest is the body of POST /sessions/{id}/eligibility.
// Attested holds the citizen's yes/no answers to scheme conditions.
type EligibilityRequest struct {
	Jurisdiction string          `json:"jurisdiction"`
	Parcels      []ParcelRequest `json:"parcels"`
	Attested     map[string]bool `json:"attested,omitempty"`

	submitted workflow.ParcelsSubmitted
}

func (r *EligibilityRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Jurisdiction, validation.Required),
		validation.Field(&r.Parcels, validation.Required, validation.Length(1, maxParcels)),
	)
	if err != nil {
		return fieldError(err)
	}
	jurisdiction, err := domain.ParseJurisdiction(r.Jurisdiction)
	if err != nil {
		return err
	}
	parcels := make([]eligibility.Parcel, len(r.Parcels))
	for i, p := range r.Parcels {
		unit, err := eligibility.ParseAreaUnit(p.AreaUnit)
		if err != nil {
			return err
		}
		parcels[i] = eligibility.Parcel{
			SurveyNumber: strings.TrimSpace(p.SurveyNumber),
			Area:         p.Area,
			AreaUnit:     unit,
			Category:     p.Category,
		}
	}
	r.submitted = workflow.ParcelsSubmitted{Jurisdiction: jurisdiction, Parcels: parcels, Attested: r.Attested}
	return nil
}

func (r *EligibilityRequest) Submitted() workflow.ParcelsSubmitted { return r.submitted }

// Event types accepted by POST /sessions/{id}/events.
const (
	EventStart               = "start"
	EventCancel              = "cancel"
	EventRetry               = "retry"
	EventText                = "text"
	EventDocument            = "document"
	EventManualRule          = "manual_rule"
	EventApplicationFacts    = "application_facts"
	EventParcels             = "parcels"
	EventApplicationSelected = "application_selected"
)

// EventRequest carries one citizen event. Only the fields of Type are read.
type EventRequest struct {
	Type          string                   `json:"type"`
	Flow          string                   `json:"flow,omitempty"`
	Text          string                   `json:"text,omitempty"`
	DocumentID    string                   `json:"document_id,omitempty"`
	DurationUnits int                      `json:"duration_units,omitempty"`
	Unit          string                   `json:"unit,omitempty"`
	ApplicationID string                   `json:"application_id,omitempty"`
	Facts         *ApplicationFactsRequest `json:"facts,omitempty"`
	Eligibility   *EligibilityRequest      `json:"eligibility,omitempty"`

	event workflow.Event
}

func (r *EventRequest) Validate() error {
	switch r.Type {
	case EventStart:
		flow := workflow.Flow(r.Flow)
		if !flow.IsValid() {
			return dErrors.Field(dErrors.CodeValidation, "flow", "flow must be one of deadline_check, eligibility_check, document_explanation, grievance_draft")
		}
		r.event = workflow.Start{Flow: flow}
	case EventCancel:
		r.event = workflow.Cancel{}
	case EventRetry:
		r.event = workflow.Retry{}
	case EventText:
		if len(r.Text) > 4096 {
			return dErrors.Field(dErrors.CodeValidation, "text", "text is too long")
		}
		r.event = workflow.TextInput{Text: r.Text, Clear: true}
	case EventDocument:
		id := strings.TrimSpace(r.DocumentID)
		if id == "" || len(id) > 256 {
			return dErrors.Field(dErrors.CodeValidation, "document_id", "document_id is required")
		}
		r.event = workflow.DocumentSubmitted{DocumentID: id}
	case EventManualRule:
		unit := timeline.Unit(r.Unit)
		if !unit.IsValid() {
			return dErrors.Field(dErrors.CodeValidation, "unit", "unit must be calendarDays or workingDays")
		}
		r.event = workflow.ManualRuleEntered{DurationUnits: r.DurationUnits, Unit: unit}
	case EventApplicationFacts:
		if r.Facts == nil {
			return dErrors.Field(dErrors.CodeValidation, "facts", "facts are required")
		}
		if err := r.Facts.Validate(); err != nil {
			return err
		}
		r.event = r.Facts.Facts()
	case EventParcels:
		if r.Eligibility == nil {
			return dErrors.Field(dErrors.CodeValidation, "eligibility", "eligibility is required")
		}
		if err := r.Eligibility.Validate(); err != nil {
			return err
		}
		r.event = r.Eligibility.Submitted()
	case EventApplicationSelected:
		id, err := domain.ParseApplicationID(r.ApplicationID)
		if err != nil {
			return err
		}
		r.event = workflow.ApplicationSelected{ApplicationID: id}
	default:
		return dErrors.Field(dErrors.CodeValidation, "type", "unknown event type")
	}
	return nil
}

func (r *EventRequest) Event() workflow.Event { return r.event }

// VoiceRequest is the body of POST /sessions/{id}/voice. Audio is base64.
type VoiceRequest struct {
	Audio     []byte `json:"audio"`
	MediaType string `json:"media_type"`
}

func (r *VoiceRequest) Validate() error {
	return fieldError(validation.ValidateStruct(r,
		validation.Field(&r.Audio, validation.Required, validation.Length(1, maxAudioBytes)),
		validation.Field(&r.MediaType, validation.Required),
	))
}

// fieldError turns ozzo validation errors into a domain error naming the
// first failing field.
func fieldError(err error) error {
	if err == nil {
		return nil
	}
	errs, ok := err.(validation.Errors)
	if !ok || len(errs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeValidation, err.Error())
	}
	fields := make([]string, 0, len(errs))
	for field := range errs {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	field := fields[0]
	return dErrors.Field(dErrors.CodeValidation, field, field+": "+errs[field].Error())
}
