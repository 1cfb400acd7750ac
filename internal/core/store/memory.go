// Package store persists pending owner data deletions.
package store

import (
	"context"
	"sort"
	"sync"

	"sahayak/internal/core/models"
	"sahayak/pkg/domain"
)

type InMemory struct {
	mu      sync.Mutex
	pending map[domain.OwnerID]models.PendingDeletion
}

func NewInMemory() *InMemory {
	return &InMemory{pending: make(map[domain.OwnerID]models.PendingDeletion)}
}

// Save records a failed attempt. An existing entry keeps its original
// request time and gains one attempt.
func (s *InMemory) Save(_ context.Context, p models.PendingDeletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.pending[p.OwnerID]; ok {
		existing.Attempts++
		existing.LastError = p.LastError
		s.pending[p.OwnerID] = existing
		return nil
	}
	p.Attempts = 1
	s.pending[p.OwnerID] = p
	return nil
}

// List returns pending deletions, oldest request first.
func (s *InMemory) List(_ context.Context) ([]models.PendingDeletion, error) {
	s.mu.Lock()
	out := make([]models.PendingDeletion, 0, len(s.pending))
	for _, p := range s.pending {
		out = append(out, p)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RequestedAt.Equal(out[j].RequestedAt) {
			return out[i].RequestedAt.Before(out[j].RequestedAt)
		}
		return out[i].OwnerID.String() < out[j].OwnerID.String()
	})
	return out, nil
}

func (s *InMemory) Get(_ context.Context, owner domain.OwnerID) (models.PendingDeletion, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[owner]
	return p, ok, nil
}

func (s *InMemory) Remove(_ context.Context, owner domain.OwnerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, owner)
	return nil
}
