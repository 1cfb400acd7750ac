// Package catalog holds the append-only timeline rule catalog. Readers bind
// to an immutable snapshot; appends swap in a new one.
package catalog

import (
	"sort"
	"sync"
	"sync/atomic"

	"sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

type Snapshot struct {
	version int64
	// rules per key, ordered by effective date then append order
	rules map[models.Key][]models.Rule
}

func (s *Snapshot) Version() int64 { return s.version }

// Current returns the rule with the latest effective date not after today.
// Among rules effective on the same day the most recently appended wins.
func (s *Snapshot) Current(key models.Key, today domain.Date) (models.Rule, bool) {
	series := s.rules[key]
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].EffectiveFrom.After(today) {
			return series[i], true
		}
	}
	return models.Rule{}, false
}

// History returns every rule ever appended for key, superseded ones included.
func (s *Snapshot) History(key models.Key) []models.Rule {
	return append([]models.Rule(nil), s.rules[key]...)
}

func (s *Snapshot) Keys() []models.Key {
	keys := make([]models.Key, 0, len(s.rules))
	for k := range s.rules {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

type Catalog struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

func New() *Catalog {
	c := &Catalog{}
	c.current.Store(&Snapshot{rules: map[models.Key][]models.Rule{}})
	return c
}

func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Append adds rules to the catalog. Re-appending a rule already present
// (same key, effective date and source version) is a no-op.
func (c *Catalog) Append(rules ...models.Rule) *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	prev := c.current.Load()
	next := &Snapshot{version: prev.version + 1, rules: make(map[models.Key][]models.Rule, len(prev.rules)+len(rules))}
	for k, v := range prev.rules {
		next.rules[k] = v
	}

	changed := false
	for _, r := range rules {
		key := r.Key()
		series := next.rules[key]
		if contains(series, r) {
			continue
		}
		grown := make([]models.Rule, 0, len(series)+1)
		grown = append(grown, series...)
		grown = append(grown, r)
		sort.SliceStable(grown, func(i, j int) bool {
			return grown[i].EffectiveFrom.Before(grown[j].EffectiveFrom)
		})
		next.rules[key] = grown
		changed = true
	}
	if !changed {
		return prev
	}
	c.current.Store(next)
	return next
}

func contains(series []models.Rule, r models.Rule) bool {
	for _, existing := range series {
		if existing.EffectiveFrom.Equal(r.EffectiveFrom) && existing.SourceVersion == r.SourceVersion {
			return true
		}
	}
	return false
}
