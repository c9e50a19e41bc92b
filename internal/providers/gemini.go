package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// geminiRequest is the body for POST /v1beta/models/{model}:generateContent.
type geminiRequest struct {
	Contents          []geminiContent   `json:"contents"`
	SystemInstruction *geminiContent    `json:"systemInstruction,omitempty"`
	Tools             []geminiTool      `json:"tools,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

// geminiContent is one turn. Gemini only knows "user" and "model"; tool
// results travel as functionResponse parts on a "user" turn.
type geminiContent struct {
	Role  string  `json:"role"`
	Parts []gPart `json:"parts"`
}

type gPart struct {
	Text             string             `json:"text,omitempty"`
	FunctionCall     *gFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *gFunctionResponse `json:"functionResponse,omitempty"`
}

type gFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// gFunctionResponse wraps a tool result; Response must be an object.
type gFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
	ID       string         `json:"id,omitempty"`
}

type geminiTool struct {
	FunctionDeclarations []functionDef `json:"functionDeclarations"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

// GeminiProvider calls the Gemini generateContent REST endpoint.
type GeminiProvider struct {
	apiKey       string
	apiBase      string
	defaultModel string
	httpClient   *http.Client
}

func NewGeminiProvider(apiKey, apiBase, defaultModel string) *GeminiProvider {
	spec := FindByName(schema.ProviderGoogle)
	if apiBase == "" {
		apiBase = spec.DefaultAPIBase
	}
	if defaultModel == "" {
		defaultModel = spec.DefaultModel
	}
	return &GeminiProvider{
		apiKey:       apiKey,
		apiBase:      strings.TrimRight(apiBase, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
}

func (p *GeminiProvider) DefaultModel() string { return p.defaultModel }

// Chat implements schema.LLMProvider.
func (p *GeminiProvider) Chat(
	ctx context.Context,
	messages schema.Messages,
	tools []map[string]any,
	opts schema.ChatOptions,
) (schema.LLMResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	data, err := json.Marshal(mapGeminiRequest(messages, tools, opts))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("marshal gemini request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", p.apiBase, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("build gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("gemini HTTP request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return schema.LLMResponse{}, fmt.Errorf("read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return schema.LLMResponse{}, fmt.Errorf("gemini HTTP %d: %s", resp.StatusCode, friendlyHTTPError(resp.StatusCode, raw))
	}
	return parseGeminiResponse(raw)
}

func mapGeminiRequest(messages schema.Messages, tools []map[string]any, opts schema.ChatOptions) geminiRequest {
	var req geminiRequest

	for _, m := range messages.Messages {
		switch m.Role {
		case schema.RoleSystem:
			if req.SystemInstruction == nil {
				req.SystemInstruction = &geminiContent{Role: "user"}
			}
			req.SystemInstruction.Parts = append(req.SystemInstruction.Parts, gPart{Text: m.Content})

		case schema.RoleUser:
			if m.Content == "" {
				continue
			}
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []gPart{{Text: m.Content}}})

		case schema.RoleAssistant:
			var parts []gPart
			if m.Content != "" {
				parts = append(parts, gPart{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if args == nil {
					args = map[string]any{}
				}
				parts = append(parts, gPart{FunctionCall: &gFunctionCall{Name: tc.Name, Args: args}})
			}
			// Gemini rejects parts without data.
			if len(parts) == 0 {
				continue
			}
			req.Contents = append(req.Contents, geminiContent{Role: "model", Parts: parts})

		case schema.RoleTool:
			part := gPart{FunctionResponse: &gFunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"return_value": m.Content},
				ID:       m.ToolCallID,
			}}
			// Consecutive tool results share one user turn.
			if n := len(req.Contents); n > 0 && req.Contents[n-1].Role == "user" &&
				req.Contents[n-1].Parts[0].FunctionResponse != nil {
				req.Contents[n-1].Parts = append(req.Contents[n-1].Parts, part)
				continue
			}
			req.Contents = append(req.Contents, geminiContent{Role: "user", Parts: []gPart{part}})
		}
	}

	if defs := functionDefs(tools); len(defs) > 0 {
		req.Tools = []geminiTool{{FunctionDeclarations: defs}}
	}

	if opts.Temperature != 0 || opts.MaxTokens != 0 || opts.JSONMode {
		req.GenerationConfig = &generationConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		}
		if opts.JSONMode {
			req.GenerationConfig.ResponseMimeType = "application/json"
		}
	}
	return req
}

// parseGeminiResponse reads text from every candidate part and tool calls
// from the first matching shape. finishReason is "STOP" even for tool
// calls, so tool use is detected from the parts.
func parseGeminiResponse(raw []byte) (schema.LLMResponse, error) {
	if !gjson.ValidBytes(raw) {
		return schema.LLMResponse{}, fmt.Errorf("parse gemini response: invalid JSON")
	}
	body := gjson.ParseBytes(raw)

	var text strings.Builder
	for _, t := range body.Get("candidates.0.content.parts.#.text").Array() {
		text.WriteString(t.String())
	}
	content := text.String()
	if content == "" {
		// Chat-style wrappers put the reply elsewhere.
		content = body.Get("choices.0.message.content").String()
	}

	calls := MatchToolCalls(raw, geminiShapes)
	return schema.LLMResponse{
		Content:      content,
		ToolCalls:    calls,
		FinishReason: finishReason(len(calls), body.Get("candidates.0.finishReason").String()),
		Usage: map[string]int{
			"prompt_tokens":     int(body.Get("usageMetadata.promptTokenCount").Int()),
			"completion_tokens": int(body.Get("usageMetadata.candidatesTokenCount").Int() + body.Get("usageMetadata.thoughtsTokenCount").Int()),
			"total_tokens":      int(body.Get("usageMetadata.totalTokenCount").Int()),
		},
	}, nil
}
