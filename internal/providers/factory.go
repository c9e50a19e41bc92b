package providers

import (
	"fmt"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// Params are the raw values needed to construct any schema.LLMProvider.
// Extracted from config.Config by the caller to avoid an import cycle.
type Params struct {
	ProviderName   string // registry name: "gpt", "google" or "ollama"
	APIKey         string
	APIBase        string
	DefaultModel   string
	EmbeddingModel string
}

// New creates the adapter for p.ProviderName.
func New(p Params) (schema.LLMProvider, error) {
	spec := FindByName(p.ProviderName)
	if spec == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrUnknownAgent, p.ProviderName)
	}
	if spec.NeedsAPIKey && p.APIKey == "" {
		return nil, fmt.Errorf("%w: %s has no API key", schema.ErrProviderNotConfigured, spec.Label())
	}

	switch spec.Name {
	case schema.ProviderGPT:
		return NewOpenAIProvider(p.APIKey, p.APIBase, p.DefaultModel, p.EmbeddingModel), nil
	case schema.ProviderGoogle:
		return NewGeminiProvider(p.APIKey, p.APIBase, p.DefaultModel), nil
	case schema.ProviderOllama:
		return NewOllamaProvider(p.APIBase, p.DefaultModel)
	}
	return nil, fmt.Errorf("%w: %s", schema.ErrUnknownAgent, p.ProviderName)
}
