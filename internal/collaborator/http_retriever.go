package collaborator

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

// HTTPRetriever queries a retrieval service over JSON:
//
//	GET {base}/v1/timeline-rules?service=..&jurisdiction=..
//	GET {base}/v1/schemes?jurisdiction=..
type HTTPRetriever struct {
	api jsonClient
}

func NewHTTPRetriever(baseURL string, client *http.Client) *HTTPRetriever {
	return &HTTPRetriever{api: newJSONClient("retrieval", baseURL, client)}
}

type timelineRuleResponse struct {
	DurationUnits int    `json:"duration_units"`
	Unit          string `json:"unit"`
	EffectiveFrom string `json:"effective_from"`
	SourceVersion string `json:"source_version"`
}

type schemesResponse struct {
	Schemes []eligibility.SchemeRule `json:"schemes"`
}

func (r *HTTPRetriever) RetrieveTimelineRule(ctx context.Context, key timeline.Key) (timeline.Rule, error) {
	q := url.Values{}
	q.Set("service", string(key.Service))
	q.Set("jurisdiction", string(key.Jurisdiction))

	var body timelineRuleResponse
	if err := r.api.get(ctx, "/v1/timeline-rules", q, &body); err != nil {
		return timeline.Rule{}, err
	}
	from, err := domain.ParseDate(body.EffectiveFrom)
	if err != nil {
		return timeline.Rule{}, NewError(ErrorBadData, "retrieval", "invalid effective_from", err)
	}
	rule := timeline.Rule{
		Service:       key.Service,
		Jurisdiction:  key.Jurisdiction,
		DurationUnits: body.DurationUnits,
		Unit:          timeline.Unit(body.Unit),
		EffectiveFrom: from,
		SourceVersion: body.SourceVersion,
	}
	if err := rule.ValidateForCatalog(); err != nil {
		return timeline.Rule{}, NewError(ErrorBadData, "retrieval", "invalid timeline rule", err)
	}
	return rule, nil
}

func (r *HTTPRetriever) RetrieveSchemeRules(ctx context.Context, jurisdiction domain.Jurisdiction) ([]eligibility.SchemeRule, error) {
	q := url.Values{}
	q.Set("jurisdiction", string(jurisdiction))

	var body schemesResponse
	if err := r.api.get(ctx, "/v1/schemes", q, &body); err != nil {
		return nil, err
	}
	for i := range body.Schemes {
		if err := body.Schemes[i].Validate(); err != nil {
			return nil, NewError(ErrorBadData, "retrieval", fmt.Sprintf("invalid scheme at index %d", i), err)
		}
		for k, c := range body.Schemes[i].AllowedCategories {
			body.Schemes[i].AllowedCategories[k] = eligibility.NormalizeCategory(c)
		}
	}
	return body.Schemes, nil
}
