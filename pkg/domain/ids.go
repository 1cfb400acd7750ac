package domain

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "sahayak/pkg/domain-errors"
)

// Typed identifiers. Each wraps a UUID so an OwnerID can never be passed where a
// SessionID is expected.
type (
	OwnerID       uuid.UUID
	SessionID     uuid.UUID
	ApplicationID uuid.UUID
)

func (id OwnerID) String() string       { return uuid.UUID(id).String() }
func (id OwnerID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id SessionID) String() string     { return uuid.UUID(id).String() }
func (id SessionID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ApplicationID) String() string { return uuid.UUID(id).String() }
func (id ApplicationID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func NewSessionID() SessionID         { return SessionID(uuid.New()) }
func NewApplicationID() ApplicationID { return ApplicationID(uuid.New()) }

func (id OwnerID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id SessionID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id ApplicationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *OwnerID) UnmarshalText(b []byte) error {
	parsed, err := ParseOwnerID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *SessionID) UnmarshalText(b []byte) error {
	parsed, err := ParseSessionID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func (id *ApplicationID) UnmarshalText(b []byte) error {
	parsed, err := ParseApplicationID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseOwnerID parses an owner identifier at a trust boundary.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID("owner_id", s)
	return OwnerID(u), err
}

// ParseSessionID parses a session identifier at a trust boundary.
func ParseSessionID(s string) (SessionID, error) {
	u, err := parseUUID("session_id", s)
	return SessionID(u), err
}

// ParseApplicationID parses an application identifier at a trust boundary.
func ParseApplicationID(s string) (ApplicationID, error) {
	u, err := parseUUID("application_id", s)
	return ApplicationID(u), err
}

func parseUUID(field, s string) (uuid.UUID, error) {
	if s == "" || len(s) > 64 || !utf8.ValidString(s) {
		return uuid.Nil, dErrors.Field(dErrors.CodeInvalidInput, field, field+" must be a valid identifier")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Field(dErrors.CodeInvalidInput, field, field+" must be a valid identifier")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Field(dErrors.CodeInvalidInput, field, field+" must not be empty")
	}
	return u, nil
}

// Jurisdiction is an administrative region code such as "IN" or "IN-KA".
type Jurisdiction string

// ParseJurisdiction normalizes and validates a jurisdiction code.
func ParseJurisdiction(s string) (Jurisdiction, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.Field(dErrors.CodeInvalidInput, "jurisdiction", "jurisdiction is required")
	}
	if len(s) > 16 {
		return "", dErrors.Field(dErrors.CodeInvalidInput, "jurisdiction", "jurisdiction code is too long")
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') && r != '-' {
			return "", dErrors.Field(dErrors.CodeInvalidInput, "jurisdiction", "jurisdiction code may only contain letters, digits and '-'")
		}
	}
	return Jurisdiction(s), nil
}

func (j Jurisdiction) String() string { return string(j) }

// ServiceID identifies a citizen service covered by a timeline rule, e.g. "income-certificate".
type ServiceID string

// ParseServiceID normalizes and validates a service identifier.
func ParseServiceID(s string) (ServiceID, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", dErrors.Field(dErrors.CodeInvalidInput, "service_identifier", "service identifier is required")
	}
	if len(s) > 128 {
		return "", dErrors.Field(dErrors.CodeInvalidInput, "service_identifier", "service identifier is too long")
	}
	return ServiceID(s), nil
}

func (s ServiceID) String() string { return string(s) }
