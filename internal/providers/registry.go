package providers

import (
	"strings"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// ProviderSpec is the metadata record for one LLM provider.
type ProviderSpec struct {
	// Identity
	Name        string // agent-id prefix and config field name, e.g. "gpt"
	EnvKey      string // env var holding the API key
	DisplayName string // shown in `pantrychef status`

	// Endpoints
	DefaultAPIBase string
	NeedsAPIKey    bool

	// ModelPrefix is re-attached to the model half of an agent id when the
	// vendor's own model names carry it ("gpt-" + "4o-mini").
	ModelPrefix string

	DefaultModel          string
	DefaultEmbeddingModel string // empty when the provider is not used for embeddings
}

// Label returns the display name, defaulting to Title-cased Name.
func (s ProviderSpec) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return strings.ToTitle(s.Name[:1]) + s.Name[1:]
}

// WireModel maps the model half of an agent id onto the vendor's model name.
func (s ProviderSpec) WireModel(model string) string {
	if model == "" {
		return s.DefaultModel
	}
	if s.ModelPrefix != "" && !strings.HasPrefix(model, s.ModelPrefix) {
		return s.ModelPrefix + model
	}
	return model
}

// PROVIDERS is the registry. Order is display order.
var PROVIDERS = []ProviderSpec{
	{
		Name:                  schema.ProviderGPT,
		EnvKey:                "OPENAI_API_KEY",
		DisplayName:           "OpenAI",
		DefaultAPIBase:        "https://api.openai.com/v1",
		NeedsAPIKey:           true,
		ModelPrefix:           "gpt-",
		DefaultModel:          "gpt-4o-mini",
		DefaultEmbeddingModel: "text-embedding-3-small",
	},
	{
		Name:           schema.ProviderGoogle,
		EnvKey:         "GEMINI_API_KEY",
		DisplayName:    "Gemini",
		DefaultAPIBase: "https://generativelanguage.googleapis.com",
		NeedsAPIKey:    true,
		DefaultModel:   "gemini-2.0-flash",
	},
	{
		Name:           schema.ProviderOllama,
		EnvKey:         "OLLAMA_HOST",
		DisplayName:    "Ollama",
		DefaultAPIBase: "http://localhost:11434",
		DefaultModel:   "llama3.1",
	},
}

// FindByName returns the spec for a registry name, or nil.
func FindByName(name string) *ProviderSpec {
	for i := range PROVIDERS {
		if PROVIDERS[i].Name == name {
			return &PROVIDERS[i]
		}
	}
	return nil
}
