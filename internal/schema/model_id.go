package schema

import (
	"fmt"
	"strings"
)

// Known provider prefixes.
const (
	ProviderGPT    = "gpt"
	ProviderGoogle = "google"
	ProviderOllama = "ollama"
)

// ModelID is a parsed "<provider>-<model>" identifier.
type ModelID struct {
	Provider string
	Model    string
}

func (m ModelID) String() string {
	return m.Provider + "-" + m.Model
}

// ParseModelID splits s at its first hyphen. Everything after that hyphen is
// the model, so "ollama-llama3.1-8b" is provider "ollama", model "llama3.1-8b".
func ParseModelID(s string) (ModelID, error) {
	provider, model, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return ModelID{}, fmt.Errorf("%w: %q", ErrUnknownAgent, s)
	}
	switch provider {
	case ProviderGPT, ProviderGoogle, ProviderOllama:
	default:
		return ModelID{}, fmt.Errorf("%w: %q", ErrUnknownAgent, s)
	}
	return ModelID{Provider: provider, Model: model}, nil
}
