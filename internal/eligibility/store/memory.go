// Package store persists land parcels, partitioned by owner.
package store

import (
	"context"
	"sort"
	"sync"

	"sahayak/internal/eligibility/models"
	"sahayak/pkg/domain"
)

type InMemory struct {
	mu      sync.RWMutex
	parcels map[domain.OwnerID]map[string]models.Parcel
}

func NewInMemory() *InMemory {
	return &InMemory{parcels: make(map[domain.OwnerID]map[string]models.Parcel)}
}

// Replace swaps the owner's whole parcel set for parcels.
func (s *InMemory) Replace(_ context.Context, owner domain.OwnerID, parcels []models.Parcel) error {
	owned := make(map[string]models.Parcel, len(parcels))
	for _, p := range parcels {
		p.OwnerID = owner
		owned[p.SurveyNumber] = p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(owned) == 0 {
		delete(s.parcels, owner)
		return nil
	}
	s.parcels[owner] = owned
	return nil
}

// ListByOwner returns the owner's parcels ordered by survey number.
func (s *InMemory) ListByOwner(_ context.Context, owner domain.OwnerID) ([]models.Parcel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Parcel, 0, len(s.parcels[owner]))
	for _, p := range s.parcels[owner] {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SurveyNumber < out[j].SurveyNumber })
	return out, nil
}

func (s *InMemory) DeleteByOwner(_ context.Context, owner domain.OwnerID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.parcels[owner])
	delete(s.parcels, owner)
	return n, nil
}
