package providers

import (
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// ShapeMatcher recognises one vendor encoding of tool calls in a raw
// response body. Path selects either an array of calls or, when Single is
// set, one call object. The remaining paths are relative to a call.
type ShapeMatcher struct {
	Name      string
	Path      string
	Single    bool
	NamePath  string
	ArgsPaths []string // first existing path wins
	IDPath    string
}

var (
	openAIShapes = []ShapeMatcher{
		{
			Name:      "openai.tool_calls",
			Path:      "choices.0.message.tool_calls",
			NamePath:  "function.name",
			ArgsPaths: []string{"function.arguments"},
			IDPath:    "id",
		},
		{
			Name:      "openai.function_call",
			Path:      "choices.0.message.function_call",
			Single:    true,
			NamePath:  "name",
			ArgsPaths: []string{"arguments"},
		},
	}

	geminiShapes = []ShapeMatcher{
		{
			Name:      "gemini.parts",
			Path:      "candidates.0.content.parts.#.functionCall",
			NamePath:  "name",
			ArgsPaths: []string{"args", "arguments"},
			IDPath:    "id",
		},
		{
			Name:      "gemini.functionCalls",
			Path:      "functionCalls",
			NamePath:  "name",
			ArgsPaths: []string{"args", "arguments"},
			IDPath:    "id",
		},
		{
			Name:      "chat.output.function_calls",
			Path:      "output.function_calls",
			NamePath:  "name",
			ArgsPaths: []string{"arguments", "args"},
			IDPath:    "id",
		},
		{
			Name:      "chat.function_call",
			Path:      "choices.0.message.function_call",
			Single:    true,
			NamePath:  "name",
			ArgsPaths: []string{"arguments", "args"},
		},
	}

	ollamaShapes = []ShapeMatcher{
		{
			Name:      "ollama.tool_calls",
			Path:      "message.tool_calls",
			NamePath:  "function.name",
			ArgsPaths: []string{"function.arguments"},
			IDPath:    "id",
		},
	}
)

// match returns the calls found at m.Path, or nil if the shape is absent.
func (m ShapeMatcher) match(body gjson.Result) []schema.ToolCallRequest {
	at := body.Get(m.Path)
	if !at.Exists() {
		return nil
	}
	var items []gjson.Result
	if m.Single {
		if !at.IsObject() {
			return nil
		}
		items = []gjson.Result{at}
	} else {
		if !at.IsArray() {
			return nil
		}
		items = at.Array()
	}

	out := make([]schema.ToolCallRequest, 0, len(items))
	for _, item := range items {
		name := item.Get(m.NamePath).String()
		if name == "" {
			continue
		}
		var args gjson.Result
		for _, p := range m.ArgsPaths {
			if args = item.Get(p); args.Exists() {
				break
			}
		}
		id := ""
		if m.IDPath != "" {
			id = item.Get(m.IDPath).String()
		}
		if id == "" {
			id = "call_" + uuid.NewString()
		}
		out = append(out, schema.ToolCallRequest{
			Id:        id,
			Name:      name,
			Arguments: argumentsFromResult(args),
		})
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// MatchToolCalls runs matchers over raw in order. The first matcher that
// yields at least one call wins; no match means no tool calls.
func MatchToolCalls(raw []byte, matchers []ShapeMatcher) []schema.ToolCallRequest {
	if !gjson.ValidBytes(raw) {
		return nil
	}
	body := gjson.ParseBytes(raw)
	for _, m := range matchers {
		if calls := m.match(body); calls != nil {
			return calls
		}
	}
	return nil
}
