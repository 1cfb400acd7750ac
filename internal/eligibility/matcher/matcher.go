// Package matcher scores aggregated land holdings against scheme rules.
package matcher

import (
	"sort"

	"sahayak/internal/eligibility/models"
)

// areaEpsilon absorbs unit-conversion rounding so that 3 acres expressed in
// gunthas still satisfies a 3.0 acre minimum.
const areaEpsilon = 1e-6

// Aggregate sums parcel areas in acres and collects distinct categories.
func Aggregate(parcels []models.Parcel) models.Holdings {
	h := models.Holdings{Categories: make(map[string]struct{}, len(parcels))}
	for _, p := range parcels {
		h.TotalAcres += p.Acres()
		if c := models.NormalizeCategory(p.Category); c != "" {
			h.Categories[c] = struct{}{}
		}
	}
	return h
}

// Match evaluates every rule against the aggregated holdings. facts carries
// citizen-attested answers for a rule's other conditions; a condition missing
// from facts is unmatched. Rules with no matched condition are dropped.
func Match(parcels []models.Parcel, rules []models.SchemeRule, facts map[string]bool) models.Result {
	holdings := Aggregate(parcels)
	var result models.Result
	for _, rule := range rules {
		m, total := evaluate(holdings, rule, facts)
		switch {
		case len(m.MatchedConditions) == total:
			m.Score = 1
			result.Eligible = append(result.Eligible, m)
		case len(m.MatchedConditions) > 0:
			m.Score = float64(len(m.MatchedConditions)) / float64(total)
			result.NearMiss = append(result.NearMiss, m)
		}
	}

	sort.SliceStable(result.Eligible, func(i, j int) bool {
		a, b := result.Eligible[i].Scheme, result.Eligible[j].Scheme
		if a.BenefitAmount != b.BenefitAmount {
			return a.BenefitAmount > b.BenefitAmount
		}
		return a.ID < b.ID
	})
	sort.SliceStable(result.NearMiss, func(i, j int) bool {
		a, b := result.NearMiss[i], result.NearMiss[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Scheme.BenefitAmount != b.Scheme.BenefitAmount {
			return a.Scheme.BenefitAmount > b.Scheme.BenefitAmount
		}
		return a.Scheme.ID < b.Scheme.ID
	})
	return result
}

func evaluate(h models.Holdings, rule models.SchemeRule, facts map[string]bool) (models.Match, int) {
	m := models.Match{
		Scheme:              rule,
		MatchedConditions:   []string{},
		UnmatchedConditions: []string{},
	}
	record := func(name string, ok bool) {
		if ok {
			m.MatchedConditions = append(m.MatchedConditions, name)
		} else {
			m.UnmatchedConditions = append(m.UnmatchedConditions, name)
		}
	}

	if rule.MinArea != nil {
		record(models.ConditionMinArea, h.TotalAcres+areaEpsilon >= *rule.MinArea)
	}
	if rule.MaxArea != nil {
		record(models.ConditionMaxArea, h.TotalAcres-areaEpsilon <= *rule.MaxArea)
	}
	if len(rule.AllowedCategories) > 0 {
		record(models.ConditionCategory, holdsAny(h, rule.AllowedCategories))
	}
	for _, cond := range rule.OtherConditions {
		record(cond, facts[cond])
	}
	return m, len(m.MatchedConditions) + len(m.UnmatchedConditions)
}

func holdsAny(h models.Holdings, allowed []string) bool {
	for _, c := range allowed {
		if _, ok := h.Categories[models.NormalizeCategory(c)]; ok {
			return true
		}
	}
	return false
}
