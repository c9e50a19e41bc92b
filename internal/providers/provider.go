// Package providers holds the LLM vendor adapters. Each adapter maps the
// canonical history onto its vendor's wire format and normalises the reply
// into a schema.LLMResponse.
package providers

import (
	"encoding/json"
	"strings"
)

// functionDef is one tool definition unwrapped from the OpenAI
// {"type":"function","function":{...}} envelope.
type functionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

func functionDefs(tools []map[string]any) []functionDef {
	out := make([]functionDef, 0, len(tools))
	for _, t := range tools {
		fn, _ := t["function"].(map[string]any)
		if fn == nil {
			continue
		}
		def := functionDef{}
		def.Name, _ = fn["name"].(string)
		def.Description, _ = fn["description"].(string)
		switch p := fn["parameters"].(type) {
		case map[string]any:
			def.Parameters = p
		case json.RawMessage:
			_ = json.Unmarshal(p, &def.Parameters)
		}
		if def.Name != "" {
			out = append(out, def)
		}
	}
	return out
}

func friendlyHTTPError(code int, body []byte) string {
	if code == 429 {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

func finishReason(toolCalls int, vendor string) string {
	if toolCalls > 0 {
		return "tool_calls"
	}
	switch strings.ToUpper(vendor) {
	case "", "STOP", "END_TURN":
		return "stop"
	case "MAX_TOKENS", "LENGTH":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "CONTENT_FILTER":
		return "content_filter"
	}
	return strings.ToLower(vendor)
}
