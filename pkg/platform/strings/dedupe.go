// Package strings holds small slice helpers for catalog values.
package strings

import (
	"strings"
)

// Dedupe maps each value through normalize and keeps the first occurrence of
// every non-empty result. Order is preserved. A nil normalize only trims.
//
//	Dedupe([]string{"Dry Land", "dry-land", " "}, models.NormalizeCategory)
//	// []string{"dry-land"}
func Dedupe(values []string, normalize func(string) string) []string {
	if len(values) == 0 {
		return values
	}
	if normalize == nil {
		normalize = strings.TrimSpace
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		n := normalize(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}
