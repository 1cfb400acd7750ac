// Package catalog holds scheme eligibility rules as an immutable snapshot
// indexed by jurisdiction.
package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"sahayak/internal/eligibility/models"
	"sahayak/pkg/domain"
)

type Snapshot struct {
	version int64
	byID    map[string]models.SchemeRule
}

func (s *Snapshot) Version() int64 { return s.version }

// ForJurisdiction returns the schemes offered in j: those declared for j
// itself and those declared for any ancestor ("IN" covers "IN-KA").
// A scheme with no jurisdiction applies everywhere.
func (s *Snapshot) ForJurisdiction(j domain.Jurisdiction) []models.SchemeRule {
	var out []models.SchemeRule
	for _, r := range s.byID {
		if covers(r.Jurisdiction, j) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].ID < out[k].ID })
	return out
}

func (s *Snapshot) Len() int { return len(s.byID) }

func covers(scope, j domain.Jurisdiction) bool {
	if scope == "" || scope == j {
		return true
	}
	return strings.HasPrefix(string(j), string(scope)+"-")
}

type Catalog struct {
	current atomic.Pointer[Snapshot]
}

func New() *Catalog {
	c := &Catalog{}
	c.current.Store(&Snapshot{byID: map[string]models.SchemeRule{}})
	return c
}

func (c *Catalog) Snapshot() *Snapshot {
	return c.current.Load()
}

// Replace validates rules and swaps them in as the next snapshot. On error
// the current snapshot is left untouched.
func (c *Catalog) Replace(rules []models.SchemeRule) (*Snapshot, error) {
	byID := make(map[string]models.SchemeRule, len(rules))
	for i, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("schemes[%d]: %w", i, err)
		}
		if _, dup := byID[r.ID]; dup {
			return nil, fmt.Errorf("schemes[%d]: duplicate scheme id %q", i, r.ID)
		}
		byID[r.ID] = r
	}
	for {
		prev := c.current.Load()
		next := &Snapshot{version: prev.version + 1, byID: byID}
		if c.current.CompareAndSwap(prev, next) {
			return next, nil
		}
	}
}
