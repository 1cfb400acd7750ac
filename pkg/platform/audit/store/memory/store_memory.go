package memory

import (
	"context"
	"sort"
	"sync"

	"sahayak/pkg/domain"
	audit "sahayak/pkg/platform/audit"
)

// InMemoryStore keeps events per owner for development and tests. Events
// without an owner, such as catalog publication, are kept under the nil id.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[domain.OwnerID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[domain.OwnerID][]audit.Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.OwnerID] = append(s.events[event.OwnerID], event)
	return nil
}

func (s *InMemoryStore) ListByOwner(_ context.Context, ownerID domain.OwnerID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[ownerID]...), nil
}

// ListRecent returns the most recent N events across all owners, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	var all []audit.Event
	for _, ownerEvents := range s.events {
		all = append(all, ownerEvents...)
	}
	s.mu.RUnlock()

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
