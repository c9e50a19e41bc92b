package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

var findRecipesDef = []map[string]any{{
	"type": "function",
	"function": map[string]any{
		"name":        "find_recipes",
		"description": "Find recipes",
		"parameters": map[string]any{
			"type":       "object",
			"properties": map[string]any{"ingredients": map[string]any{"type": "array"}},
		},
	},
}}

func history() schema.Messages {
	h := schema.NewMessages(schema.NewSystemMessage("You are a chef."))
	h.AddUser("I have eggs")
	h.AddAssistant("", []schema.ToolCall{{ID: "call_1", Name: "find_recipes", Arguments: map[string]any{"ingredients": []any{"egg"}}}})
	h.AddToolResult("call_1", "find_recipes", `[{"slug":"omelette"}]`)
	h.AddUser("thanks")
	return h
}

func TestGeminiProvider_Chat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1beta/models/gemini-pro:generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		_, _ = w.Write([]byte(`{
			"candidates":[{"content":{"role":"model","parts":[
				{"functionCall":{"name":"find_recipes","args":{"ingredients":["egg","flour"]}}}
			]},"finishReason":"STOP"}],
			"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5,"totalTokenCount":15}
		}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("key", srv.URL, "")
	resp, err := p.Chat(context.Background(), history(), findRecipesDef, schema.ChatOptions{Model: "gemini-pro", Temperature: 0.2})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if !resp.HasToolCalls() || resp.ToolCalls[0].Name != "find_recipes" {
		t.Fatalf("expected find_recipes call, got %+v", resp)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if resp.Usage["total_tokens"] != 15 {
		t.Errorf("Usage = %v", resp.Usage)
	}

	if _, ok := captured["systemInstruction"]; !ok {
		t.Error("system message not sent as systemInstruction")
	}
	contents, _ := captured["contents"].([]any)
	if len(contents) != 4 {
		t.Fatalf("expected 4 contents (user, model, tool, user), got %d", len(contents))
	}
	model := contents[1].(map[string]any)
	if model["role"] != "model" {
		t.Errorf("assistant role = %v", model["role"])
	}
	toolTurn := contents[2].(map[string]any)
	part := toolTurn["parts"].([]any)[0].(map[string]any)
	fr, ok := part["functionResponse"].(map[string]any)
	if !ok || fr["name"] != "find_recipes" {
		t.Errorf("tool result not mapped to functionResponse: %v", part)
	}
	tools, _ := captured["tools"].([]any)
	if len(tools) != 1 {
		t.Errorf("tools = %v", captured["tools"])
	}
}

func TestGeminiProvider_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewGeminiProvider("key", srv.URL, "m").Chat(context.Background(), history(), nil, schema.ChatOptions{})
	if err == nil || !strings.Contains(err.Error(), "rate limit") {
		t.Fatalf("expected rate limit error, got %v", err)
	}
}

func TestMapGeminiRequest_SkipsEmptyParts(t *testing.T) {
	h := schema.NewMessages(schema.NewSystemMessage("You are a chef."))
	h.AddUser("I have eggs")
	h.AddAssistant("", nil)
	h.AddUser("")
	h.AddUser("anything quick?")

	req := mapGeminiRequest(h, nil, schema.ChatOptions{})
	if len(req.Contents) != 2 {
		t.Fatalf("expected 2 turns, got %d: %+v", len(req.Contents), req.Contents)
	}
	for _, c := range req.Contents {
		if c.Role != "user" {
			t.Errorf("unexpected %q turn", c.Role)
		}
	}
	body, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(body), "{}") {
		t.Errorf("request carries an empty part: %s", body)
	}
}

func TestOpenAIProvider_Chat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o-mini",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Try an omelette."}}],
			"usage":{"prompt_tokens":3,"completion_tokens":4,"total_tokens":7}
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("sk-test", srv.URL, "", "")
	resp, err := p.Chat(context.Background(), history(), findRecipesDef, schema.ChatOptions{Model: "4o-mini"})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if resp.Content != "Try an omelette." || resp.HasToolCalls() {
		t.Errorf("resp = %+v", resp)
	}
	if captured["model"] != "gpt-4o-mini" {
		t.Errorf("model = %v, want gpt-4o-mini", captured["model"])
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	tool := msgs[3].(map[string]any)
	if tool["role"] != "tool" || tool["tool_call_id"] != "call_1" {
		t.Errorf("tool message = %v", tool)
	}
	asst := msgs[2].(map[string]any)
	if calls, _ := asst["tool_calls"].([]any); len(calls) != 1 {
		t.Errorf("assistant tool calls not replayed: %v", asst)
	}
}

func TestOpenAIProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":0,"embedding":[0.5,0.25]}],
			"usage":{"prompt_tokens":1,"total_tokens":1}}`))
	}))
	defer srv.Close()

	vec, err := NewOpenAIProvider("sk-test", srv.URL, "", "").Embed(context.Background(), "eggs")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vec) != 2 || vec[0] != 0.5 {
		t.Errorf("vec = %v", vec)
	}
}

func TestOllamaProvider_Chat(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &captured)
		w.Header().Set("Content-Type", "application/json")
		// The client decodes the stream one line at a time.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":      "llama3.1",
			"created_at": "2024-01-01T00:00:00Z",
			"message": map[string]any{
				"role":    "assistant",
				"content": "",
				"tool_calls": []any{map[string]any{
					"function": map[string]any{"name": "find_recipes", "arguments": map[string]any{"ingredients": []string{"egg"}}},
				}},
			},
			"done":              true,
			"done_reason":       "stop",
			"prompt_eval_count": 4,
			"eval_count":        2,
		})
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(srv.URL, "llama3.1")
	if err != nil {
		t.Fatalf("NewOllamaProvider: %v", err)
	}
	resp, err := p.Chat(context.Background(), history(), findRecipesDef, schema.ChatOptions{})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Id == "" {
		t.Fatalf("expected one call with generated id, got %+v", resp.ToolCalls)
	}
	if resp.Usage["total_tokens"] != 6 {
		t.Errorf("Usage = %v", resp.Usage)
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	if tool := msgs[3].(map[string]any); tool["tool_name"] != "find_recipes" {
		t.Errorf("tool message = %v", tool)
	}
	if captured["stream"] != false {
		t.Errorf("stream = %v", captured["stream"])
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Params{ProviderName: "claude"}); !errors.Is(err, schema.ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
	if _, err := New(Params{ProviderName: "gpt"}); !errors.Is(err, schema.ErrProviderNotConfigured) {
		t.Errorf("expected ErrProviderNotConfigured, got %v", err)
	}
	p, err := New(Params{ProviderName: "ollama"})
	if err != nil {
		t.Fatalf("New(ollama): %v", err)
	}
	if _, ok := p.(*OllamaProvider); !ok {
		t.Errorf("got %T", p)
	}
	p, err = New(Params{ProviderName: "gpt", APIKey: "sk"})
	if err != nil {
		t.Fatalf("New(gpt): %v", err)
	}
	if _, ok := p.(schema.Embedder); !ok {
		t.Error("gpt provider should embed")
	}
}
