package collaborator

import (
	"context"
	"fmt"

	eligibilitycatalog "sahayak/internal/eligibility/catalog"
	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

// CatalogRetriever serves rules from local reference data when no remote
// retrieval service is configured. Timeline rules come from a fixed set
// (typically the timeline YAML file); the latest rule per key is returned.
type CatalogRetriever struct {
	timelines map[timeline.Key]timeline.Rule
	schemes   *eligibilitycatalog.Catalog
}

func NewCatalogRetriever(rules []timeline.Rule, schemes *eligibilitycatalog.Catalog) *CatalogRetriever {
	latest := make(map[timeline.Key]timeline.Rule, len(rules))
	for _, r := range rules {
		cur, ok := latest[r.Key()]
		if !ok || !r.EffectiveFrom.Before(cur.EffectiveFrom) {
			latest[r.Key()] = r
		}
	}
	return &CatalogRetriever{timelines: latest, schemes: schemes}
}

func (c *CatalogRetriever) RetrieveTimelineRule(_ context.Context, key timeline.Key) (timeline.Rule, error) {
	rule, ok := c.timelines[key]
	if !ok {
		return timeline.Rule{}, NewError(ErrorNotFound, "catalog", fmt.Sprintf("no timeline rule for %s", key), nil)
	}
	return rule, nil
}

func (c *CatalogRetriever) RetrieveSchemeRules(_ context.Context, jurisdiction domain.Jurisdiction) ([]eligibility.SchemeRule, error) {
	if c.schemes == nil {
		return nil, NewError(ErrorNotFound, "catalog", "no scheme catalog loaded", nil)
	}
	rules := c.schemes.Snapshot().ForJurisdiction(jurisdiction)
	if len(rules) == 0 {
		return nil, NewError(ErrorNotFound, "catalog", fmt.Sprintf("no schemes for %s", jurisdiction), nil)
	}
	return rules, nil
}

// Unconfigured stands in for a collaborator with no endpoint configured.
// Every call fails as a non-retryable outage, which steers sessions to
// manual input.
type Unconfigured struct {
	Name string
}

func (u Unconfigured) err() error {
	e := NewError(ErrorOutage, u.Name, "not configured", nil)
	e.Retryable = false
	return e
}

func (u Unconfigured) Extract(context.Context, DocumentRef) (Extraction, error) {
	return Extraction{}, u.err()
}

func (u Unconfigured) Transcribe(context.Context, Audio) (Transcript, error) {
	return Transcript{}, u.err()
}

func (u Unconfigured) Synthesize(context.Context, string, string) (Audio, error) {
	return Audio{}, u.err()
}

func (u Unconfigured) Generate(context.Context, GenerationRequest) (Generation, error) {
	return Generation{}, u.err()
}
