package agent

type AgentConfig struct {
	ChefName         string  `json:"chefName" env:"PANTRYCHEF_CHEF_NAME"`
	DefaultModel     string  `json:"defaultModel" env:"PANTRYCHEF_MODEL"`
	MaxTokens        int     `json:"maxTokens" env:"PANTRYCHEF_MAX_TOKENS"`
	Temperature      float64 `json:"temperature" env:"PANTRYCHEF_TEMPERATURE"`
	MaxToolIter      int     `json:"maxToolIterations" env:"PANTRYCHEF_MAX_TOOL_ITERATIONS"`
	ContextWindow    int     `json:"contextWindow" env:"PANTRYCHEF_CONTEXT_WINDOW"`
	MaxContextTokens int     `json:"maxContextTokens" env:"PANTRYCHEF_MAX_CONTEXT_TOKENS"`
}

func DefaultAgentConfig() AgentConfig {
	return AgentConfig{
		ChefName:      "Chef",
		DefaultModel:  "gpt-4o-mini",
		MaxTokens:     1024,
		Temperature:   0.7,
		MaxToolIter:   5,
		ContextWindow: 10,
	}
}
