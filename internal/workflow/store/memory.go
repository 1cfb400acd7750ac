// Package store persists workflow sessions. Writes are compare-and-swap on
// the session version so concurrent advances of one session cannot both win.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sahayak/internal/workflow/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	sessions map[domain.SessionID]*models.Session
}

func NewInMemory() *InMemory {
	return &InMemory{sessions: make(map[domain.SessionID]*models.Session)}
}

func (s *InMemory) Create(_ context.Context, session *models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[session.ID]; exists {
		return fmt.Errorf("session %s: %w", session.ID, sentinel.ErrConflict)
	}
	stored := session.Clone()
	stored.Version = 1
	s.sessions[session.ID] = stored
	session.Version = 1
	return nil
}

func (s *InMemory) Get(_ context.Context, id domain.SessionID) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return session.Clone(), nil
}

// CompareAndSwap stores next if the stored version still equals
// next.Version, and returns the stored copy with its new version.
func (s *InMemory) CompareAndSwap(_ context.Context, next *models.Session) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[next.ID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if current.Version != next.Version {
		return nil, fmt.Errorf("session %s at version %d, have %d: %w", next.ID, current.Version, next.Version, sentinel.ErrConflict)
	}
	stored := next.Clone()
	stored.Version = current.Version + 1
	s.sessions[next.ID] = stored
	return stored.Clone(), nil
}

// ListByOwner returns the owner's sessions, oldest first.
func (s *InMemory) ListByOwner(_ context.Context, owner domain.OwnerID) ([]*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Session
	for _, session := range s.sessions {
		if session.OwnerID == owner {
			out = append(out, session.Clone())
		}
	}
	sortByCreation(out)
	return out, nil
}

// ListActiveSince returns the ids of sessions with activity at or after
// since.
func (s *InMemory) ListActiveSince(_ context.Context, since time.Time) ([]domain.SessionID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []domain.SessionID
	for id, session := range s.sessions {
		if !session.LastActivityAt.Before(since) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *InMemory) DeleteByOwner(_ context.Context, owner domain.OwnerID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, session := range s.sessions {
		if session.OwnerID == owner {
			delete(s.sessions, id)
			deleted++
		}
	}
	return deleted, nil
}

// PurgeInactiveBefore removes sessions whose last activity is before cutoff
// and returns what was removed.
func (s *InMemory) PurgeInactiveBefore(_ context.Context, cutoff time.Time) ([]*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged []*models.Session
	for id, session := range s.sessions {
		if session.LastActivityAt.Before(cutoff) {
			purged = append(purged, session)
			delete(s.sessions, id)
		}
	}
	sortByCreation(purged)
	return purged, nil
}

func sortByCreation(sessions []*models.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID.String() < sessions[j].ID.String()
	})
}
