package models

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

// HolidayKind tags a published holiday.
type HolidayKind string

const (
	KindNational HolidayKind = "national"
	KindRegional HolidayKind = "regional"
	// KindOptional holidays are restricted holidays chosen per employee.
	// Offices stay open, so they are not non-working days.
	KindOptional HolidayKind = "optional"
)

func (k HolidayKind) IsValid() bool {
	switch k {
	case KindNational, KindRegional, KindOptional:
		return true
	}
	return false
}

// NonWorking reports whether the holiday closes public offices.
func (k HolidayKind) NonWorking() bool {
	return k == KindNational || k == KindRegional
}

type Holiday struct {
	Date domain.Date
	Name string
	Kind HolidayKind
}

// Key identifies one published holiday set.
type Key struct {
	Jurisdiction domain.Jurisdiction
	Year         int
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Jurisdiction, k.Year)
}

// HolidayCalendar is the complete holiday set of one jurisdiction for one
// year. A published calendar is never edited; a refresh replaces it whole.
type HolidayCalendar struct {
	Jurisdiction domain.Jurisdiction
	Year         int
	Holidays     []Holiday
	PublishedAt  time.Time
	// Version is assigned by the catalog on publication.
	Version int64
}

func (c HolidayCalendar) Key() Key {
	return Key{Jurisdiction: c.Jurisdiction, Year: c.Year}
}

// Normalize validates the calendar and returns a copy with holidays ordered
// by date then name and exact duplicates removed.
func (c HolidayCalendar) Normalize() (HolidayCalendar, error) {
	if c.Jurisdiction == "" {
		return HolidayCalendar{}, dErrors.Field(dErrors.CodeValidation, "jurisdiction", "jurisdiction is required")
	}
	if c.Year < 1950 || c.Year > 2200 {
		return HolidayCalendar{}, dErrors.Field(dErrors.CodeValidation, "year", "year is out of range")
	}

	out := c
	out.Holidays = make([]Holiday, 0, len(c.Holidays))
	seen := make(map[string]struct{}, len(c.Holidays))
	for i, h := range c.Holidays {
		field := fmt.Sprintf("holidays[%d]", i)
		if h.Date.IsZero() {
			return HolidayCalendar{}, dErrors.Field(dErrors.CodeValidation, field+".date", "holiday date is required")
		}
		if h.Date.Year() != c.Year {
			return HolidayCalendar{}, dErrors.Field(dErrors.CodeValidation, field+".date",
				fmt.Sprintf("holiday %s is outside year %d", h.Date, c.Year))
		}
		h.Name = strings.TrimSpace(h.Name)
		if h.Name == "" {
			return HolidayCalendar{}, dErrors.Field(dErrors.CodeValidation, field+".name", "holiday name is required")
		}
		if !h.Kind.IsValid() {
			return HolidayCalendar{}, dErrors.Field(dErrors.CodeValidation, field+".kind",
				"holiday kind must be national, regional or optional")
		}
		dedupe := h.Date.String() + "|" + h.Name
		if _, dup := seen[dedupe]; dup {
			continue
		}
		seen[dedupe] = struct{}{}
		out.Holidays = append(out.Holidays, h)
	}
	sort.Slice(out.Holidays, func(i, j int) bool {
		if c := out.Holidays[i].Date.Compare(out.Holidays[j].Date); c != 0 {
			return c < 0
		}
		return out.Holidays[i].Name < out.Holidays[j].Name
	})
	return out, nil
}

// JurisdictionProfile describes how a jurisdiction's working week is built.
type JurisdictionProfile struct {
	Code domain.Jurisdiction
	// Parent names the jurisdiction whose national holidays also apply here.
	Parent        domain.Jurisdiction
	WeeklyRestDay time.Weekday
}

// DefaultProfile is used for jurisdictions without an explicit profile.
func DefaultProfile(code domain.Jurisdiction) JurisdictionProfile {
	return JurisdictionProfile{Code: code, WeeklyRestDay: time.Sunday}
}

func (p JurisdictionProfile) Validate() error {
	if p.Code == "" {
		return dErrors.Field(dErrors.CodeValidation, "code", "jurisdiction code is required")
	}
	if p.Parent == p.Code {
		return dErrors.Field(dErrors.CodeValidation, "parent", "a jurisdiction cannot be its own parent")
	}
	if p.WeeklyRestDay < time.Sunday || p.WeeklyRestDay > time.Saturday {
		return dErrors.Field(dErrors.CodeValidation, "weekly_rest_day", "weekly rest day is invalid")
	}
	return nil
}

// ParseWeekday accepts an English weekday name in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.ToLower(d.String()) == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}
