package models

import (
	"fmt"
	"strings"
	"time"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

// Unit is how a rule's duration is counted.
type Unit string

const (
	UnitCalendarDays Unit = "calendarDays"
	UnitWorkingDays  Unit = "workingDays"
)

func (u Unit) IsValid() bool {
	return u == UnitCalendarDays || u == UnitWorkingDays
}

// ManualPrefix marks a rule entered by the citizen because no published rule
// could be retrieved. Such rules stay on the record they were entered for.
const ManualPrefix = "manual:"

// Key identifies the rule series for one service in one jurisdiction.
type Key struct {
	Service      domain.ServiceID
	Jurisdiction domain.Jurisdiction
}

func (k Key) String() string {
	return fmt.Sprintf("%s@%s", k.Service, k.Jurisdiction)
}

// Rule is the legally mandated processing time for a service.
type Rule struct {
	Service       domain.ServiceID
	Jurisdiction  domain.Jurisdiction
	DurationUnits int
	Unit          Unit
	EffectiveFrom domain.Date
	SourceVersion string
	RecordedAt    time.Time
}

func (r Rule) Key() Key {
	return Key{Service: r.Service, Jurisdiction: r.Jurisdiction}
}

func (r Rule) IsManual() bool {
	return strings.HasPrefix(r.SourceVersion, ManualPrefix)
}

// Validate checks the rule can drive a deadline computation.
func (r Rule) Validate() error {
	if r.DurationUnits <= 0 {
		return dErrors.Field(dErrors.CodeInvalidRule, "duration_units", "the processing time must be a positive number of days")
	}
	if !r.Unit.IsValid() {
		return dErrors.Field(dErrors.CodeInvalidRule, "unit", "the processing time unit must be calendarDays or workingDays")
	}
	return nil
}

// ValidateForCatalog additionally requires the fields a published rule carries.
func (r Rule) ValidateForCatalog() error {
	if r.Service == "" {
		return dErrors.Field(dErrors.CodeValidation, "service", "service is required")
	}
	if r.Jurisdiction == "" {
		return dErrors.Field(dErrors.CodeValidation, "jurisdiction", "jurisdiction is required")
	}
	if r.EffectiveFrom.IsZero() {
		return dErrors.Field(dErrors.CodeValidation, "effective_from", "effective date is required")
	}
	if strings.TrimSpace(r.SourceVersion) == "" {
		return dErrors.Field(dErrors.CodeValidation, "source_version", "source version is required")
	}
	if r.IsManual() {
		return dErrors.Field(dErrors.CodeValidation, "source_version", "manual rules cannot be published")
	}
	return r.Validate()
}

// ManualRule builds the record-scoped rule a citizen supplies when retrieval fails.
func ManualRule(key Key, durationUnits int, unit Unit, effectiveFrom domain.Date, session domain.SessionID) Rule {
	return Rule{
		Service:       key.Service,
		Jurisdiction:  key.Jurisdiction,
		DurationUnits: durationUnits,
		Unit:          unit,
		EffectiveFrom: effectiveFrom,
		SourceVersion: ManualPrefix + session.String(),
	}
}
