package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/tidwall/gjson"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// OllamaProvider calls a local Ollama server, non-streamed.
type OllamaProvider struct {
	client       *api.Client
	defaultModel string
}

func NewOllamaProvider(apiBase, defaultModel string) (*OllamaProvider, error) {
	spec := FindByName(schema.ProviderOllama)
	if apiBase == "" {
		apiBase = spec.DefaultAPIBase
	}
	if defaultModel == "" {
		defaultModel = spec.DefaultModel
	}
	base, err := url.Parse(strings.TrimRight(apiBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL %q: %w", apiBase, err)
	}
	httpClient := &http.Client{Timeout: 5 * time.Minute}
	return &OllamaProvider{
		client:       api.NewClient(base, httpClient),
		defaultModel: defaultModel,
	}, nil
}

func (p *OllamaProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *OllamaProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	msgs, err := toOllamaMessages(messages)
	if err != nil {
		return schema.LLMResponse{}, err
	}
	apiTools, err := toOllamaTools(tools)
	if err != nil {
		return schema.LLMResponse{}, err
	}

	stream := false
	req := &api.ChatRequest{
		Model:    model,
		Messages: msgs,
		Tools:    apiTools,
		Stream:   &stream,
		Options:  map[string]any{},
	}
	if opts.Temperature > 0 {
		req.Options["temperature"] = opts.Temperature
	}
	if opts.MaxTokens > 0 {
		req.Options["num_predict"] = opts.MaxTokens
	}
	if opts.JSONMode {
		req.Format = json.RawMessage(`"json"`)
	}

	var final api.ChatResponse
	err = p.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("ollama chat: %w", err)
	}

	raw, err := json.Marshal(final)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("encode ollama response: %w", err)
	}
	return parseOllamaResponse(raw), nil
}

func parseOllamaResponse(raw []byte) schema.LLMResponse {
	body := gjson.ParseBytes(raw)
	calls := MatchToolCalls(raw, ollamaShapes)
	prompt := int(body.Get("prompt_eval_count").Int())
	completion := int(body.Get("eval_count").Int())
	return schema.LLMResponse{
		Content:      body.Get("message.content").String(),
		ToolCalls:    calls,
		FinishReason: finishReason(len(calls), body.Get("done_reason").String()),
		Usage: map[string]int{
			"prompt_tokens":     prompt,
			"completion_tokens": completion,
			"total_tokens":      prompt + completion,
		},
	}
}

// ollamaWireMessage mirrors the /api/chat message JSON. Messages are built
// in wire form and decoded into api.Message so argument map types follow
// whichever client version is linked.
type ollamaWireMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaWireCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaWireCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

func toOllamaMessages(messages schema.Messages) ([]api.Message, error) {
	wire := make([]ollamaWireMessage, 0, messages.Len())
	for _, m := range messages.Messages {
		w := ollamaWireMessage{Role: string(m.Role), Content: m.Content}
		if m.Role == schema.RoleTool {
			w.ToolName = m.Name
		}
		for _, tc := range m.ToolCalls {
			var c ollamaWireCall
			c.Function.Name = tc.Name
			c.Function.Arguments = tc.Arguments
			if c.Function.Arguments == nil {
				c.Function.Arguments = map[string]any{}
			}
			w.ToolCalls = append(w.ToolCalls, c)
		}
		wire = append(wire, w)
	}

	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("encode ollama messages: %w", err)
	}
	var out []api.Message
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ollama messages: %w", err)
	}
	return out, nil
}

func toOllamaTools(tools []map[string]any) ([]api.Tool, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(tools)
	if err != nil {
		return nil, fmt.Errorf("encode ollama tools: %w", err)
	}
	var out []api.Tool
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode ollama tools: %w", err)
	}
	return out, nil
}
