// Package calendar answers working-day questions per jurisdiction from a
// versioned catalog of published holiday calendars.
package calendar

import (
	"sahayak/internal/calendar/catalog"
	"sahayak/internal/calendar/models"
	"sahayak/internal/calendar/service"
)

type (
	Service             = service.Service
	Snapshot            = catalog.Snapshot
	HolidayCalendar     = models.HolidayCalendar
	Holiday             = models.Holiday
	HolidayKind         = models.HolidayKind
	JurisdictionProfile = models.JurisdictionProfile
)

const (
	KindNational = models.KindNational
	KindRegional = models.KindRegional
	KindOptional = models.KindOptional
)

// ErrCalendarDataMissing is returned when a needed (jurisdiction, year) set is unpublished.
var ErrCalendarDataMissing = catalog.ErrCalendarDataMissing

// NewService constructs a calendar service over a fresh catalog.
func NewService(store service.Store, opts ...service.Option) *Service {
	return service.New(catalog.New(), store, opts...)
}
