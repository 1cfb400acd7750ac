// Package collaborator defines the ports through which the core consumes
// external capabilities (document extraction, speech, retrieval, text
// generation) and the resilience policy every call goes through.
package collaborator

import (
	"context"

	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Extractor,Speech,Retriever,Generator

// DocumentRef points at an uploaded document. The core never reads its bytes.
type DocumentRef struct {
	ID        string `json:"id"`
	MediaType string `json:"media_type,omitempty"`
}

type ExtractedField struct {
	Name       string  `json:"name"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
}

type Extraction struct {
	Fields []ExtractedField `json:"fields"`
}

// Confident splits fields at threshold. Fields below it are returned by name
// so they can be requested from the citizen instead.
func (e Extraction) Confident(threshold float64) (map[string]string, []string) {
	kept := make(map[string]string, len(e.Fields))
	var dropped []string
	for _, f := range e.Fields {
		if f.Confidence < threshold || f.Value == "" {
			dropped = append(dropped, f.Name)
			continue
		}
		kept[f.Name] = f.Value
	}
	return kept, dropped
}

type Audio struct {
	Data      []byte `json:"-"`
	MediaType string `json:"media_type"`
	Language  string `json:"language,omitempty"`
}

type Transcript struct {
	Text       string  `json:"text"`
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Clear reports whether the transcript can be acted on.
func (t Transcript) Clear(threshold float64) bool {
	return t.Text != "" && t.Confidence >= threshold
}

type GenerationKind string

const (
	GenerationExplanation   GenerationKind = "explanation"
	GenerationBreachSummary GenerationKind = "breach_summary"
	GenerationEligibility   GenerationKind = "eligibility_summary"
	GenerationGrievance     GenerationKind = "grievance_draft"
)

// GenerationRequest carries structured facts only. The returned text is
// shown to the citizen and never interpreted further.
type GenerationRequest struct {
	Kind     GenerationKind    `json:"kind"`
	Language string            `json:"language"`
	Facts    map[string]string `json:"facts"`
}

type Generation struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

type Extractor interface {
	Extract(ctx context.Context, doc DocumentRef) (Extraction, error)
}

type Speech interface {
	Transcribe(ctx context.Context, audio Audio) (Transcript, error)
	Synthesize(ctx context.Context, text, language string) (Audio, error)
}

// Retriever looks up published rules. Both methods return an error wrapping
// sentinel.ErrNotFound when nothing is published for the key.
type Retriever interface {
	RetrieveTimelineRule(ctx context.Context, key timeline.Key) (timeline.Rule, error)
	RetrieveSchemeRules(ctx context.Context, jurisdiction domain.Jurisdiction) ([]eligibility.SchemeRule, error)
}

type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (Generation, error)
}
