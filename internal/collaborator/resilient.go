package collaborator

import (
	"context"

	eligibility "sahayak/internal/eligibility/models"
	timeline "sahayak/internal/timeline/models"
	"sahayak/pkg/domain"
)

// The Guarded* adapters run every port call through an Invoker.

type GuardedExtractor struct {
	next Extractor
	inv  *Invoker
}

func GuardExtractor(next Extractor, inv *Invoker) *GuardedExtractor {
	return &GuardedExtractor{next: next, inv: inv}
}

func (g *GuardedExtractor) Extract(ctx context.Context, doc DocumentRef) (Extraction, error) {
	return Call(ctx, g.inv, "extract", func(ctx context.Context) (Extraction, error) {
		return g.next.Extract(ctx, doc)
	})
}

type GuardedSpeech struct {
	next Speech
	inv  *Invoker
}

func GuardSpeech(next Speech, inv *Invoker) *GuardedSpeech {
	return &GuardedSpeech{next: next, inv: inv}
}

func (g *GuardedSpeech) Transcribe(ctx context.Context, audio Audio) (Transcript, error) {
	return Call(ctx, g.inv, "transcribe", func(ctx context.Context) (Transcript, error) {
		return g.next.Transcribe(ctx, audio)
	})
}

func (g *GuardedSpeech) Synthesize(ctx context.Context, text, language string) (Audio, error) {
	return Call(ctx, g.inv, "synthesize", func(ctx context.Context) (Audio, error) {
		return g.next.Synthesize(ctx, text, language)
	})
}

type GuardedRetriever struct {
	next Retriever
	inv  *Invoker
}

func GuardRetriever(next Retriever, inv *Invoker) *GuardedRetriever {
	return &GuardedRetriever{next: next, inv: inv}
}

func (g *GuardedRetriever) RetrieveTimelineRule(ctx context.Context, key timeline.Key) (timeline.Rule, error) {
	return Call(ctx, g.inv, "retrieve_timeline_rule", func(ctx context.Context) (timeline.Rule, error) {
		return g.next.RetrieveTimelineRule(ctx, key)
	})
}

func (g *GuardedRetriever) RetrieveSchemeRules(ctx context.Context, jurisdiction domain.Jurisdiction) ([]eligibility.SchemeRule, error) {
	return Call(ctx, g.inv, "retrieve_scheme_rules", func(ctx context.Context) ([]eligibility.SchemeRule, error) {
		return g.next.RetrieveSchemeRules(ctx, jurisdiction)
	})
}

type GuardedGenerator struct {
	next Generator
	inv  *Invoker
}

func GuardGenerator(next Generator, inv *Invoker) *GuardedGenerator {
	return &GuardedGenerator{next: next, inv: inv}
}

func (g *GuardedGenerator) Generate(ctx context.Context, req GenerationRequest) (Generation, error) {
	return Call(ctx, g.inv, "generate", func(ctx context.Context) (Generation, error) {
		return g.next.Generate(ctx, req)
	})
}
