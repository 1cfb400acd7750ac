package collaborator

import (
	"context"
	"errors"
	"fmt"

	"sahayak/pkg/platform/sentinel"
)

// ErrorCategory is the normalized failure taxonomy for collaborator calls.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorCircuitOpen    ErrorCategory = "circuit_open"
	ErrorInternal       ErrorCategory = "internal"
)

// Error wraps a collaborator failure with its category.
type Error struct {
	Category     ErrorCategory
	Collaborator string
	Message      string
	Underlying   error
	Retryable    bool
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("collaborator %s [%s]: %s: %v", e.Collaborator, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("collaborator %s [%s]: %s", e.Collaborator, e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError builds a categorized error. Not-found errors always wrap
// sentinel.ErrNotFound so callers can test for them without this package.
func NewError(category ErrorCategory, collaborator, message string, underlying error) *Error {
	if category == ErrorNotFound && !errors.Is(underlying, sentinel.ErrNotFound) {
		if underlying == nil {
			underlying = sentinel.ErrNotFound
		} else {
			underlying = fmt.Errorf("%w: %w", sentinel.ErrNotFound, underlying)
		}
	}
	if category == ErrorOutage || category == ErrorCircuitOpen {
		if underlying == nil {
			underlying = sentinel.ErrUnavailable
		}
	}
	return &Error{
		Category:     category,
		Collaborator: collaborator,
		Message:      message,
		Underlying:   underlying,
		Retryable:    category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

func IsRetryable(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// CategoryOf returns the category of err, ErrorInternal when it carries none.
func CategoryOf(err error) ErrorCategory {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}

// classify turns an arbitrary adapter error into a categorized one.
func classify(collaborator string, err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ErrorTimeout, collaborator, "call timed out", err)
	case errors.Is(err, sentinel.ErrNotFound):
		return NewError(ErrorNotFound, collaborator, "nothing published", err)
	case errors.Is(err, sentinel.ErrUnavailable):
		return NewError(ErrorOutage, collaborator, "unavailable", err)
	default:
		return NewError(ErrorInternal, collaborator, "call failed", err)
	}
}
