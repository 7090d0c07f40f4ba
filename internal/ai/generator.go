// Package ai produces assistance text for a document. The Generator
// interface hides whether text comes from a deterministic template or from a
// model behind an OpenAI-compatible HTTP API, so the context assembly and
// persistence logic in services can be tested without any provider.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/tbourn/go-documind-backend/internal/config"
)

// Request is everything a generator may draw on for one assistance call.
type Request struct {
	// Prompt is the caller's instruction, verbatim.
	Prompt string
	// Context is the assembled blob of document and source text.
	Context string
	// AssistanceType is one of domain.AssistanceTypes.
	AssistanceType string
	// Title of the document the request targets.
	Title string
	// PlainText is the document content with markup removed.
	PlainText string
}

// Generator turns a Request into response text.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// New selects a generator from configuration. "template" (or empty) yields
// the deterministic TemplateGenerator.
func New(cfg config.AIConfig) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "template":
		return NewTemplateGenerator(), nil
	case "openai":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, fmt.Errorf("ai: api key is required for provider openai")
		}
		return NewOpenAICompatibleGenerator(cfg), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}
