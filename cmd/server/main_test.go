package main

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"sahayak/internal/collaborator"
	"sahayak/internal/platform/config"

	"github.com/stretchr/testify/assert"
)

func TestCollaboratorDepsGuardsConfiguredServices(t *testing.T) {
	var named []string
	invoker := func(name string) *collaborator.Invoker {
		named = append(named, name)
		return collaborator.NewInvoker(name, collaborator.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	}

	deps := collaboratorDeps(config.CollaboratorConfig{}, http.DefaultClient, invoker)
	assert.Nil(t, deps.Extractor)
	assert.Nil(t, deps.Speech)
	assert.Nil(t, deps.Generator)
	assert.Empty(t, named)

	deps = collaboratorDeps(config.CollaboratorConfig{
		ExtractionURL: "http://extraction",
		SpeechURL:     "http://speech",
		GenerationURL: "http://generation",
	}, http.DefaultClient, invoker)
	assert.IsType(t, &collaborator.GuardedExtractor{}, deps.Extractor)
	assert.IsType(t, &collaborator.GuardedSpeech{}, deps.Speech)
	assert.IsType(t, &collaborator.GuardedGenerator{}, deps.Generator)
	assert.Equal(t, []string{"extraction", "speech", "generation"}, named)
}
