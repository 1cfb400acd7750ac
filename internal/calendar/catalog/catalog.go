// Package catalog holds published holiday calendars as immutable, versioned
// snapshots. Readers bind to one *Snapshot for a whole evaluation; publishers
// build a new snapshot and swap it in atomically.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"sahayak/internal/calendar/models"
	"sahayak/pkg/domain"
	dErrors "sahayak/pkg/domain-errors"
)

// ErrCalendarDataMissing is wrapped by every error caused by an unpublished
// (jurisdiction, year) holiday set.
var ErrCalendarDataMissing = errors.New("calendar data missing")

// maxCountSpan bounds a single working-day count.
const maxCountSpan = 3660

// Snapshot is an immutable view of every published calendar and profile.
type Snapshot struct {
	version   int64
	calendars map[models.Key]models.HolidayCalendar
	profiles  map[domain.Jurisdiction]models.JurisdictionProfile
	// closed holds the merged non-working dates of every key whose data is
	// complete. A key whose own or parent set is unpublished is absent.
	closed map[models.Key]map[domain.Date]struct{}
}

func newSnapshot(version int64, calendars map[models.Key]models.HolidayCalendar, profiles map[domain.Jurisdiction]models.JurisdictionProfile) *Snapshot {
	s := &Snapshot{
		version:   version,
		calendars: calendars,
		profiles:  profiles,
		closed:    make(map[models.Key]map[domain.Date]struct{}, len(calendars)),
	}
	for key, cal := range calendars {
		days := make(map[domain.Date]struct{}, len(cal.Holidays))
		for _, h := range cal.Holidays {
			if h.Kind.NonWorking() {
				days[h.Date] = struct{}{}
			}
		}
		if parent := s.Profile(key.Jurisdiction).Parent; parent != "" {
			parentCal, ok := calendars[models.Key{Jurisdiction: parent, Year: key.Year}]
			if !ok {
				continue
			}
			for _, h := range parentCal.Holidays {
				if h.Kind == models.KindNational {
					days[h.Date] = struct{}{}
				}
			}
		}
		s.closed[key] = days
	}
	return s
}

// Version increases with every publication.
func (s *Snapshot) Version() int64 { return s.version }

// Calendar returns the published set for (j, year).
func (s *Snapshot) Calendar(j domain.Jurisdiction, year int) (models.HolidayCalendar, bool) {
	cal, ok := s.calendars[models.Key{Jurisdiction: j, Year: year}]
	return cal, ok
}

// Profile returns the jurisdiction's profile, or the default Sunday-rest profile.
func (s *Snapshot) Profile(j domain.Jurisdiction) models.JurisdictionProfile {
	if p, ok := s.profiles[j]; ok {
		return p
	}
	return models.DefaultProfile(j)
}

// Keys lists every published key in jurisdiction then year order.
func (s *Snapshot) Keys() []models.Key {
	keys := make([]models.Key, 0, len(s.calendars))
	for k := range s.calendars {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Jurisdiction != keys[j].Jurisdiction {
			return keys[i].Jurisdiction < keys[j].Jurisdiction
		}
		return keys[i].Year < keys[j].Year
	})
	return keys
}

// IsWorkingDay reports whether public offices in j are open on date.
func (s *Snapshot) IsWorkingDay(date domain.Date, j domain.Jurisdiction) (bool, error) {
	if date.IsZero() {
		return false, dErrors.Field(dErrors.CodeInvalidInput, "date", "A date is required.")
	}
	closed, err := s.closedDays(j, date.Year())
	if err != nil {
		return false, err
	}
	if date.Weekday() == s.Profile(j).WeeklyRestDay {
		return false, nil
	}
	_, holiday := closed[date]
	return !holiday, nil
}

// CountWorkingDays counts working days in (start, end]: start is excluded,
// end is included.
func (s *Snapshot) CountWorkingDays(start, end domain.Date, j domain.Jurisdiction) (int, error) {
	if start.IsZero() || end.IsZero() {
		return 0, dErrors.Field(dErrors.CodeInvalidInput, "date", "Both dates are required.")
	}
	if end.Before(start) {
		return 0, dErrors.Field(dErrors.CodeInvalidInput, "end", "The end date is before the start date.")
	}
	if domain.CalendarDaysBetween(start, end) > maxCountSpan {
		return 0, dErrors.Field(dErrors.CodeInvalidInput, "end", "The date range is too long.")
	}
	count := 0
	for d := start.AddDays(1); !d.After(end); d = d.AddDays(1) {
		ok, err := s.IsWorkingDay(d, j)
		if err != nil {
			return 0, err
		}
		if ok {
			count++
		}
	}
	return count, nil
}

func (s *Snapshot) closedDays(j domain.Jurisdiction, year int) (map[domain.Date]struct{}, error) {
	key := models.Key{Jurisdiction: j, Year: year}
	if closed, ok := s.closed[key]; ok {
		return closed, nil
	}
	missing := key
	if _, own := s.calendars[key]; own {
		missing = models.Key{Jurisdiction: s.Profile(j).Parent, Year: year}
	}
	return nil, dErrors.Wrap(
		fmt.Errorf("%w: %s", ErrCalendarDataMissing, missing),
		dErrors.CodeCalendarDataMissing,
		fmt.Sprintf("The holiday calendar for %s in %d has not been published yet.", missing.Jurisdiction, year),
	)
}

// Catalog owns the current snapshot.
type Catalog struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
	now     func() time.Time
}

type Option func(*Catalog)

func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

func New(opts ...Option) *Catalog {
	c := &Catalog{now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	c.current.Store(newSnapshot(0, map[models.Key]models.HolidayCalendar{}, map[domain.Jurisdiction]models.JurisdictionProfile{}))
	return c
}

// Snapshot returns the current snapshot. It never returns nil.
func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Publish replaces the whole holiday set for the calendar's key and returns
// the calendar as stored, with its assigned version.
func (c *Catalog) Publish(cal models.HolidayCalendar) (models.HolidayCalendar, *Snapshot, error) {
	normalized, err := cal.Normalize()
	if err != nil {
		return models.HolidayCalendar{}, nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	version := prev.version + 1
	normalized.Version = version
	if normalized.PublishedAt.IsZero() {
		normalized.PublishedAt = c.now()
	}

	calendars := make(map[models.Key]models.HolidayCalendar, len(prev.calendars)+1)
	for k, v := range prev.calendars {
		calendars[k] = v
	}
	calendars[normalized.Key()] = normalized

	next := newSnapshot(version, calendars, prev.profiles)
	c.current.Store(next)
	return normalized, next, nil
}

// PublishProfile sets a jurisdiction profile.
func (c *Catalog) PublishProfile(p models.JurisdictionProfile) (*Snapshot, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	profiles := make(map[domain.Jurisdiction]models.JurisdictionProfile, len(prev.profiles)+1)
	for k, v := range prev.profiles {
		profiles[k] = v
	}
	profiles[p.Code] = p

	next := newSnapshot(prev.version+1, prev.calendars, profiles)
	c.current.Store(next)
	return next, nil
}

// Replace swaps in a complete catalog, as loaded from durable storage.
// Calendars keep their stored versions; the snapshot version moves past all of them.
func (c *Catalog) Replace(cals []models.HolidayCalendar, profiles []models.JurisdictionProfile) (*Snapshot, error) {
	calendars := make(map[models.Key]models.HolidayCalendar, len(cals))
	profileMap := make(map[domain.Jurisdiction]models.JurisdictionProfile, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		profileMap[p.Code] = p
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	version := c.current.Load().version
	for _, cal := range cals {
		normalized, err := cal.Normalize()
		if err != nil {
			return nil, fmt.Errorf("calendar %s: %w", cal.Key(), err)
		}
		if normalized.Version > version {
			version = normalized.Version
		}
		calendars[normalized.Key()] = normalized
	}

	next := newSnapshot(version+1, calendars, profileMap)
	c.current.Store(next)
	return next, nil
}
