package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/tidwall/gjson"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// OpenAIProvider talks to the OpenAI chat completions and embeddings APIs
// through the official SDK.
type OpenAIProvider struct {
	client         openai.Client
	spec           *ProviderSpec
	defaultModel   string
	embeddingModel string
}

// NewOpenAIProvider constructs a provider from raw config values.
func NewOpenAIProvider(apiKey, apiBase, defaultModel, embeddingModel string) *OpenAIProvider {
	spec := FindByName(schema.ProviderGPT)
	if apiBase == "" {
		apiBase = spec.DefaultAPIBase
	}
	if defaultModel == "" {
		defaultModel = spec.DefaultModel
	}
	if embeddingModel == "" {
		embeddingModel = spec.DefaultEmbeddingModel
	}

	client := openai.NewClient(
		option.WithBaseURL(strings.TrimRight(apiBase, "/")+"/"),
		option.WithAPIKey(apiKey),
	)
	return &OpenAIProvider{
		client:         client,
		spec:           spec,
		defaultModel:   defaultModel,
		embeddingModel: embeddingModel,
	}
}

func (p *OpenAIProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *OpenAIProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := p.spec.WireModel(opts.Model)
	if opts.Model == "" {
		model = p.defaultModel
	}

	params := openai.ChatCompletionNewParams{
		Messages: toOpenAIMessages(messages),
		Model:    openai.ChatModel(model),
	}
	if opts.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
	}
	if opts.Temperature > 0 {
		params.Temperature = openai.Float(opts.Temperature)
	}
	if len(tools) > 0 {
		params.Tools = toOpenAITools(tools)
	}
	if opts.JSONMode {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return schema.LLMResponse{}, fmt.Errorf("openai HTTP %d: %s", apiErr.StatusCode, friendlyHTTPError(apiErr.StatusCode, []byte(apiErr.Message)))
		}
		return schema.LLMResponse{}, fmt.Errorf("openai chat: %w", err)
	}
	return parseOpenAIResponse([]byte(resp.RawJSON()))
}

// Embed implements schema.Embedder.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(p.embeddingModel),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai embeddings: empty response")
	}
	src := resp.Data[0].Embedding
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32(v)
	}
	return out, nil
}

func parseOpenAIResponse(raw []byte) (schema.LLMResponse, error) {
	if !gjson.ValidBytes(raw) {
		return schema.LLMResponse{}, errors.New("parse OpenAI response: invalid JSON")
	}
	body := gjson.ParseBytes(raw)
	if !body.Get("choices.0").Exists() {
		return schema.LLMResponse{}, errors.New("empty choices in response")
	}

	calls := MatchToolCalls(raw, openAIShapes)
	if len(calls) > 0 {
		slog.Debug("openai requested tools", "count", len(calls))
	}
	return schema.LLMResponse{
		Content:      body.Get("choices.0.message.content").String(),
		ToolCalls:    calls,
		FinishReason: finishReason(len(calls), body.Get("choices.0.finish_reason").String()),
		Usage: map[string]int{
			"prompt_tokens":     int(body.Get("usage.prompt_tokens").Int()),
			"completion_tokens": int(body.Get("usage.completion_tokens").Int()),
			"total_tokens":      int(body.Get("usage.total_tokens").Int()),
		},
	}, nil
}

func toOpenAIMessages(messages schema.Messages) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, messages.Len())
	for _, m := range messages.Messages {
		switch m.Role {
		case schema.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case schema.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case schema.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			asst := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.ArgumentsJSON(),
						},
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst})
		case schema.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

func toOpenAITools(tools []map[string]any) []openai.ChatCompletionToolUnionParam {
	defs := functionDefs(tools)
	out := make([]openai.ChatCompletionToolUnionParam, 0, len(defs))
	for _, d := range defs {
		params := openai.FunctionParameters{"type": "object", "properties": map[string]any{}}
		if d.Parameters != nil {
			params = openai.FunctionParameters(d.Parameters)
		}
		out = append(out, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        d.Name,
			Description: openai.String(d.Description),
			Parameters:  params,
		}))
	}
	return out
}
