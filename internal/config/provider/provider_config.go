package provider

// ProviderConfig holds credentials for one LLM provider.
type ProviderConfig struct {
	APIKey         string `json:"apiKey" env:"API_KEY"`
	APIBase        string `json:"apiBase,omitempty" env:"API_BASE"`
	EmbeddingModel string `json:"embeddingModel,omitempty" env:"EMBEDDING_MODEL"`
}

// ProvidersConfig holds one entry per agent-id prefix.
type ProvidersConfig struct {
	GPT    ProviderConfig `json:"gpt" env-prefix:"PANTRYCHEF_GPT_"`
	Google ProviderConfig `json:"google" env-prefix:"PANTRYCHEF_GOOGLE_"`
	Ollama ProviderConfig `json:"ollama" env-prefix:"PANTRYCHEF_OLLAMA_"`
}

// ByName returns the entry for a registry name, or nil.
func (p *ProvidersConfig) ByName(name string) *ProviderConfig {
	switch name {
	case "gpt":
		return &p.GPT
	case "google":
		return &p.Google
	case "ollama":
		return &p.Ollama
	}
	return nil
}
