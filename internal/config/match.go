package config

import (
	"os"

	"github.com/crystaldolphin/pantrychef/internal/providers"
	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// applyVendorEnv fills missing provider credentials from the vendors' own
// variables (OPENAI_API_KEY, GEMINI_API_KEY, OLLAMA_HOST).
func (c *Config) applyVendorEnv() {
	for _, spec := range providers.PROVIDERS {
		p := c.Providers.ByName(spec.Name)
		if p == nil || spec.EnvKey == "" {
			continue
		}
		v := os.Getenv(spec.EnvKey)
		if v == "" {
			continue
		}
		if spec.NeedsAPIKey {
			if p.APIKey == "" {
				p.APIKey = v
			}
		} else if p.APIBase == "" {
			p.APIBase = v
		}
	}
}

// ProviderParams returns the constructor parameters for one registry entry.
// The default model comes from agent.defaultModel when it names this
// provider, otherwise from the registry.
func (c *Config) ProviderParams(spec providers.ProviderSpec) providers.Params {
	p := c.Providers.ByName(spec.Name)
	params := providers.Params{
		ProviderName:   spec.Name,
		DefaultModel:   spec.DefaultModel,
		EmbeddingModel: spec.DefaultEmbeddingModel,
	}
	if p != nil {
		params.APIKey = p.APIKey
		params.APIBase = p.APIBase
		if p.EmbeddingModel != "" {
			params.EmbeddingModel = p.EmbeddingModel
		}
	}
	if id, err := schema.ParseModelID(c.Agent.DefaultModel); err == nil && id.Provider == spec.Name && id.Model != "" {
		params.DefaultModel = spec.WireModel(id.Model)
	}
	return params
}

// Configured reports whether spec has what it needs to be constructed.
func (c *Config) Configured(spec providers.ProviderSpec) bool {
	if !spec.NeedsAPIKey {
		return true
	}
	p := c.Providers.ByName(spec.Name)
	return p != nil && p.APIKey != ""
}

// AgentSettings converts the agent section into loop settings.
func (c *Config) AgentSettings() schema.AgentSettings {
	s := schema.NewAgentSettings(c.Agent.MaxToolIter, c.Agent.Temperature, c.Agent.MaxTokens, c.Agent.ContextWindow)
	s.MaxContextTokens = c.Agent.MaxContextTokens
	return s
}
