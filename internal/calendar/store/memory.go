// Package store persists published holiday calendars and jurisdiction profiles.
package store

import (
	"context"
	"sort"
	"sync"

	"sahayak/internal/calendar/models"
	"sahayak/pkg/domain"
)

// InMemory keeps calendars for tests and single-node development.
type InMemory struct {
	mu        sync.RWMutex
	calendars map[models.Key]models.HolidayCalendar
	profiles  map[domain.Jurisdiction]models.JurisdictionProfile
}

func NewInMemory() *InMemory {
	return &InMemory{
		calendars: make(map[models.Key]models.HolidayCalendar),
		profiles:  make(map[domain.Jurisdiction]models.JurisdictionProfile),
	}
}

func (s *InMemory) SaveCalendar(_ context.Context, cal models.HolidayCalendar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cal.Holidays = append([]models.Holiday(nil), cal.Holidays...)
	s.calendars[cal.Key()] = cal
	return nil
}

func (s *InMemory) SaveProfile(_ context.Context, p models.JurisdictionProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.Code] = p
	return nil
}

func (s *InMemory) LoadAll(_ context.Context) ([]models.HolidayCalendar, []models.JurisdictionProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cals := make([]models.HolidayCalendar, 0, len(s.calendars))
	for _, c := range s.calendars {
		c.Holidays = append([]models.Holiday(nil), c.Holidays...)
		cals = append(cals, c)
	}
	sort.Slice(cals, func(i, j int) bool { return cals[i].Version < cals[j].Version })

	profiles := make([]models.JurisdictionProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		profiles = append(profiles, p)
	}
	sort.Slice(profiles, func(i, j int) bool { return profiles[i].Code < profiles[j].Code })
	return cals, profiles, nil
}
