package audit

import (
	"context"
	"time"

	"sahayak/pkg/domain"

	"github.com/google/uuid"
)

// EventCategory classifies audit events by their primary purpose.
// Categories drive retention and routing: compliance events are written
// fail-closed through the outbox, operations events may be dropped under load.
type EventCategory string

const (
	// CategoryCompliance covers events with legal significance: deadline
	// breaches, record completion and owner data deletion.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	OwnerID   domain.OwnerID
	// Subject is the identifier acted on (application id, session id,
	// calendar key). Never free text entered by the citizen.
	Subject   string
	Action    string
	Decision  string
	Reason    string
	RequestID string
}

type AuditEvent string

const (
	// Application tracking
	EventApplicationCreated     AuditEvent = "application_created"
	EventApplicationReevaluated AuditEvent = "application_reevaluated"
	EventApplicationCompleted   AuditEvent = "application_completed"
	EventDeadlineRecomputed     AuditEvent = "deadline_recomputed"
	EventBreachDetected         AuditEvent = "breach_detected"

	// Eligibility
	EventEligibilityEvaluated AuditEvent = "eligibility_evaluated"

	// Workflow sessions
	EventSessionStarted   AuditEvent = "session_started"
	EventSessionCompleted AuditEvent = "session_completed"
	EventSessionPurged    AuditEvent = "session_purged"

	// Owner data
	EventOwnerDataDeleted      AuditEvent = "owner_data_deleted"
	EventOwnerDeletionDeferred AuditEvent = "owner_deletion_deferred"

	// Catalogs
	EventCalendarPublished     AuditEvent = "calendar_published"
	EventTimelineRulePublished AuditEvent = "timeline_rule_published"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventApplicationCreated:    CategoryCompliance,
	EventApplicationCompleted:  CategoryCompliance,
	EventDeadlineRecomputed:    CategoryCompliance,
	EventBreachDetected:        CategoryCompliance,
	EventOwnerDataDeleted:      CategoryCompliance,
	EventOwnerDeletionDeferred: CategoryCompliance,
	EventCalendarPublished:     CategoryCompliance,
	EventTimelineRulePublished: CategoryCompliance,

	EventApplicationReevaluated: CategoryOperations,
	EventEligibilityEvaluated:   CategoryOperations,
	EventSessionStarted:         CategoryOperations,
	EventSessionCompleted:       CategoryOperations,
	EventSessionPurged:          CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// ComplianceEvent captures legally significant actions requiring guaranteed
// persistence. Use with the compliance publisher for fail-closed semantics.
type ComplianceEvent struct {
	Timestamp time.Time      // set automatically if zero
	OwnerID   domain.OwnerID // empty only for catalog events, which set Subject
	Subject   string
	Action    AuditEvent
	Decision  string
	Reason    string
	RequestID string
}

// Category returns CategoryCompliance (always).
func (e ComplianceEvent) Category() EventCategory { return CategoryCompliance }

// ToEvent converts to the storage Event shape.
func (e ComplianceEvent) ToEvent() Event {
	return Event{
		Category:  CategoryCompliance,
		Timestamp: e.Timestamp,
		OwnerID:   e.OwnerID,
		Subject:   e.Subject,
		Action:    string(e.Action),
		Decision:  e.Decision,
		Reason:    e.Reason,
		RequestID: e.RequestID,
	}
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByOwner(ctx context.Context, ownerID domain.OwnerID) ([]Event, error)
}

// OutboxEntry is an audit event awaiting publication to the event stream.
type OutboxEntry struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}
