package models

import (
	"time"

	"sahayak/internal/deadline"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusBreached  Status = "breached"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusBreached, StatusCompleted:
		return true
	}
	return false
}

// Record tracks one citizen submission against its statutory deadline.
//
// Invariants:
//   - SubmissionDate is never after the day the record was created
//   - Deadline is derived from Rule and only changes when Rule is superseded
//   - OverdueDays >= 0, and OverdueDays == 0 exactly when Status != breached
//   - Completed is terminal
//   - Version increases by one on every stored mutation
type Record struct {
	ID             domain.ApplicationID `json:"id"`
	OwnerID        domain.OwnerID       `json:"owner_id"`
	Service        domain.ServiceID     `json:"service"`
	Jurisdiction   domain.Jurisdiction  `json:"jurisdiction"`
	SubmissionDate domain.Date          `json:"submission_date"`
	Deadline       domain.Date          `json:"computed_deadline"`
	Status         Status               `json:"status"`
	OverdueDays    int                  `json:"overdue_days"`
	// Rule is the timeline rule the deadline was computed from.
	Rule timeline.Rule `json:"-"`
	// RequestKey identifies the request that created the record. A repeated
	// request with the same key gets this record back.
	RequestKey string `json:"-"`
	// BreachReported is set once the breach has been written to the audit trail.
	BreachReported  bool       `json:"-"`
	LastEvaluatedAt time.Time  `json:"last_evaluated_at"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	Version         int64      `json:"version"`
}

// NewRecord builds a pending record and applies the first verdict.
func NewRecord(id domain.ApplicationID, owner domain.OwnerID, rule timeline.Rule, submission, due domain.Date, verdict deadline.Verdict, now time.Time) *Record {
	r := &Record{
		ID:             id,
		OwnerID:        owner,
		Service:        rule.Service,
		Jurisdiction:   rule.Jurisdiction,
		SubmissionDate: submission,
		Deadline:       due,
		Status:         StatusPending,
		Rule:           rule,
		CreatedAt:      now,
		Version:        1,
	}
	r.ApplyVerdict(verdict, now)
	return r
}

func (r *Record) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// ApplyVerdict updates status and overdue days. It reports whether the
// record moved into breach with this verdict. Completed records are left
// untouched apart from the evaluation time.
func (r *Record) ApplyVerdict(v deadline.Verdict, now time.Time) (newlyBreached bool) {
	r.LastEvaluatedAt = now
	if r.IsCompleted() {
		return false
	}
	if v.Breached {
		newlyBreached = r.Status != StatusBreached
		r.Status = StatusBreached
		r.OverdueDays = v.OverdueDays
		return newlyBreached
	}
	r.Status = StatusPending
	r.OverdueDays = 0
	r.BreachReported = false
	return false
}

// NeedsBreachReport is true while a breach has not yet reached the audit trail.
func (r *Record) NeedsBreachReport() bool {
	return r.Status == StatusBreached && !r.BreachReported
}

func (r *Record) MarkBreachReported() {
	if r.Status == StatusBreached {
		r.BreachReported = true
	}
}

// ApplyRule replaces the governing rule and the deadline derived from it.
func (r *Record) ApplyRule(rule timeline.Rule, due domain.Date) {
	r.Rule = rule
	r.Deadline = due
}

// Supersedes reports whether candidate should replace the record's rule.
// Record-scoped manual rules give way to any published rule; published
// rules give way only to a rule with a later effective date.
func (r *Record) Supersedes(candidate timeline.Rule) bool {
	if candidate.IsManual() {
		return false
	}
	if r.Rule.IsManual() {
		return true
	}
	return candidate.EffectiveFrom.After(r.Rule.EffectiveFrom)
}

func (r *Record) CanComplete() error {
	if r.IsCompleted() {
		return dErrors.New(dErrors.CodeInvariantViolation, "application is already completed")
	}
	return nil
}

func (r *Record) ApplyCompletion(now time.Time) {
	r.Status = StatusCompleted
	r.OverdueDays = 0
	r.CompletedAt = &now
	r.LastEvaluatedAt = now
}

// CheckInvariants is run by stores before every write.
func (r *Record) CheckInvariants() error {
	if !r.Status.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown application status")
	}
	if r.OverdueDays < 0 {
		return dErrors.New(dErrors.CodeInvariantViolation, "overdue days cannot be negative")
	}
	if (r.OverdueDays == 0) == (r.Status == StatusBreached) {
		return dErrors.New(dErrors.CodeInvariantViolation, "overdue days must be positive exactly when breached")
	}
	if r.Deadline.Before(r.SubmissionDate) {
		return dErrors.New(dErrors.CodeInvariantViolation, "deadline precedes submission")
	}
	return nil
}

// Clone returns a deep copy so stored records are never shared.
func (r *Record) Clone() *Record {
	c := *r
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
