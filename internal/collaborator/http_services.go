package collaborator

import (
	"context"
	"fmt"
	"net/http"
)

// HTTPExtractor asks an extraction service for a document's fields:
//
//	POST {base}/v1/extractions {"id":..,"media_type":..}
type HTTPExtractor struct {
	api jsonClient
}

func NewHTTPExtractor(baseURL string, client *http.Client) *HTTPExtractor {
	return &HTTPExtractor{api: newJSONClient("extraction", baseURL, client)}
}

func (e *HTTPExtractor) Extract(ctx context.Context, doc DocumentRef) (Extraction, error) {
	var out Extraction
	if err := e.api.post(ctx, "/v1/extractions", doc, &out); err != nil {
		return Extraction{}, err
	}
	for i, f := range out.Fields {
		if f.Name == "" || f.Confidence < 0 || f.Confidence > 1 {
			return Extraction{}, NewError(ErrorBadData, "extraction", fmt.Sprintf("invalid field at index %d", i), nil)
		}
	}
	return out, nil
}

// HTTPSpeech talks to a speech service. Audio travels base64 encoded:
//
//	POST {base}/v1/transcriptions {"audio":..,"media_type":..,"language":..}
//	POST {base}/v1/syntheses      {"text":..,"language":..}
type HTTPSpeech struct {
	api jsonClient
}

func NewHTTPSpeech(baseURL string, client *http.Client) *HTTPSpeech {
	return &HTTPSpeech{api: newJSONClient("speech", baseURL, client)}
}

type audioBody struct {
	Audio     []byte `json:"audio"`
	MediaType string `json:"media_type"`
	Language  string `json:"language,omitempty"`
}

type synthesisRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
}

func (s *HTTPSpeech) Transcribe(ctx context.Context, audio Audio) (Transcript, error) {
	var out Transcript
	in := audioBody{Audio: audio.Data, MediaType: audio.MediaType, Language: audio.Language}
	if err := s.api.post(ctx, "/v1/transcriptions", in, &out); err != nil {
		return Transcript{}, err
	}
	if out.Confidence < 0 || out.Confidence > 1 {
		return Transcript{}, NewError(ErrorBadData, "speech", "confidence out of range", nil)
	}
	return out, nil
}

func (s *HTTPSpeech) Synthesize(ctx context.Context, text, language string) (Audio, error) {
	var out audioBody
	if err := s.api.post(ctx, "/v1/syntheses", synthesisRequest{Text: text, Language: language}, &out); err != nil {
		return Audio{}, err
	}
	if len(out.Audio) == 0 || out.MediaType == "" {
		return Audio{}, NewError(ErrorBadData, "speech", "empty audio", nil)
	}
	if out.Language == "" {
		out.Language = language
	}
	return Audio{Data: out.Audio, MediaType: out.MediaType, Language: out.Language}, nil
}

// HTTPGenerator asks a text generation service for citizen-facing text:
//
//	POST {base}/v1/generations {"kind":..,"language":..,"facts":{..}}
type HTTPGenerator struct {
	api jsonClient
}

func NewHTTPGenerator(baseURL string, client *http.Client) *HTTPGenerator {
	return &HTTPGenerator{api: newJSONClient("generation", baseURL, client)}
}

func (g *HTTPGenerator) Generate(ctx context.Context, req GenerationRequest) (Generation, error) {
	var out Generation
	if err := g.api.post(ctx, "/v1/generations", req, &out); err != nil {
		return Generation{}, err
	}
	if out.Text == "" {
		return Generation{}, NewError(ErrorBadData, "generation", "empty text", nil)
	}
	if out.Language == "" {
		out.Language = req.Language
	}
	return out, nil
}
