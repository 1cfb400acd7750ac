// Package store persists application records, partitioned by owner.
package store

import (
	"context"
	"fmt"
	"sync"

	"sahayak/internal/tracking/models"
	"sahayak/pkg/domain"
	"sahayak/pkg/platform/keylock"
	"sahayak/pkg/platform/sentinel"
)

// InMemory serializes mutations per record id. Records of different ids
// never wait on each other beyond the brief map access.
type InMemory struct {
	mu      sync.RWMutex
	records map[domain.ApplicationID]*models.Record
	byOwner map[domain.OwnerID]map[domain.ApplicationID]struct{}
	byKey   map[domain.OwnerID]map[string]domain.ApplicationID
	locks   *keylock.Map[domain.ApplicationID]
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[domain.ApplicationID]*models.Record),
		byOwner: make(map[domain.OwnerID]map[domain.ApplicationID]struct{}),
		byKey:   make(map[domain.OwnerID]map[string]domain.ApplicationID),
		locks:   keylock.New[domain.ApplicationID](),
	}
}

func (s *InMemory) Create(_ context.Context, r *models.Record) error {
	if err := r.CheckInvariants(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return fmt.Errorf("application %s: %w", r.ID, sentinel.ErrConflict)
	}
	if r.RequestKey != "" {
		keys, ok := s.byKey[r.OwnerID]
		if !ok {
			keys = make(map[string]domain.ApplicationID)
			s.byKey[r.OwnerID] = keys
		}
		if _, used := keys[r.RequestKey]; used {
			return fmt.Errorf("request %s: %w", r.RequestKey, sentinel.ErrConflict)
		}
		keys[r.RequestKey] = r.ID
	}
	s.records[r.ID] = r.Clone()
	owned, ok := s.byOwner[r.OwnerID]
	if !ok {
		owned = make(map[domain.ApplicationID]struct{})
		s.byOwner[r.OwnerID] = owned
	}
	owned[r.ID] = struct{}{}
	return nil
}

// FindByID returns a copy of the record regardless of owner. Callers acting
// for a citizen must use Get.
func (s *InMemory) FindByID(_ context.Context, id domain.ApplicationID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return r.Clone(), nil
}

func (s *InMemory) Get(ctx context.Context, owner domain.OwnerID, id domain.ApplicationID) (*models.Record, error) {
	r, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.OwnerID != owner {
		return nil, sentinel.ErrNotFound
	}
	return r, nil
}

// FindByRequestKey returns the owner's record created under key.
func (s *InMemory) FindByRequestKey(_ context.Context, owner domain.OwnerID, key string) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byKey[owner][key]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return s.records[id].Clone(), nil
}

func (s *InMemory) ListByOwner(_ context.Context, owner domain.OwnerID) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owned := s.byOwner[owner]
	out := make([]*models.Record, 0, len(owned))
	for id := range owned {
		out = append(out, s.records[id].Clone())
	}
	return out, nil
}

// ListActiveIDs returns ids of records that are not completed.
func (s *InMemory) ListActiveIDs(_ context.Context) ([]domain.ApplicationID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.ApplicationID, 0, len(s.records))
	for id, r := range s.records {
		if !r.IsCompleted() {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Execute runs validate then mutate on a private copy while holding the
// record's lock, and stores the copy only if validate succeeds.
func (s *InMemory) Execute(_ context.Context, id domain.ApplicationID, validate func(*models.Record) error, mutate func(*models.Record)) (*models.Record, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.RLock()
	current, ok := s.records[id]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := current.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.Version = current.Version + 1
	if err := working.CheckInvariants(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if _, still := s.records[id]; !still {
		s.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	s.records[id] = working
	s.mu.Unlock()
	return working.Clone(), nil
}

func (s *InMemory) DeleteByOwner(_ context.Context, owner domain.OwnerID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owned := s.byOwner[owner]
	for id := range owned {
		delete(s.records, id)
	}
	delete(s.byOwner, owner)
	delete(s.byKey, owner)
	return len(owned), nil
}
