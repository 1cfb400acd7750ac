// Package store persists published timeline rules.
package store

import (
	"context"
	"sync"

	"sahayak/internal/timeline/models"
)

type InMemory struct {
	mu    sync.RWMutex
	rules []models.Rule
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (s *InMemory) Append(_ context.Context, rule models.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rules {
		if r.Key() == rule.Key() && r.EffectiveFrom.Equal(rule.EffectiveFrom) && r.SourceVersion == rule.SourceVersion {
			return nil
		}
	}
	s.rules = append(s.rules, rule)
	return nil
}

// LoadAll returns rules in append order.
func (s *InMemory) LoadAll(_ context.Context) ([]models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Rule(nil), s.rules...), nil
}
