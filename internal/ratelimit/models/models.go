package models

import "time"

// Class groups routes that share a request budget.
type Class string

const (
	// ClassConversation covers the owner-scoped session and application routes.
	ClassConversation Class = "conversation"
	// ClassVoice covers audio uploads, which fan out to a speech collaborator.
	ClassVoice Class = "voice"
	// ClassAdmin covers catalog publication.
	ClassAdmin Class = "admin"
)

func (c Class) IsValid() bool {
	switch c {
	case ClassConversation, ClassVoice, ClassAdmin:
		return true
	}
	return false
}

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

// Result is the outcome of one admission check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until a slot frees up. Zero when allowed.
	RetryAfter int
}

// ExceededResponse is the body written with a 429.
type ExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}
