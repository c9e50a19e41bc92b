package schema

// AgentSettings bounds one Chef turn.
type AgentSettings struct {
	MaxIter          int
	Temperature      float64
	MaxTokens        int
	ContextWindow    int
	MaxContextTokens int
}

const (
	DefaultMaxIter       = 5
	DefaultContextWindow = 10
)

func NewAgentSettings(maxIter int, temperature float64, maxTokens int, contextWindow int) AgentSettings {
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	if contextWindow <= 0 {
		contextWindow = DefaultContextWindow
	}
	return AgentSettings{
		MaxIter:       maxIter,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
		ContextWindow: contextWindow,
	}
}
