package providers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tidwall/gjson"
)

// ParseArguments turns whatever a vendor put in a tool call's arguments slot
// into an argument map. JSON strings are decoded (with repair for truncated
// output), decoded objects are used as-is, and anything else becomes {}.
func ParseArguments(v any) map[string]any {
	switch a := v.(type) {
	case nil:
		return map[string]any{}
	case map[string]any:
		return a
	case string:
		out, err := repairJSON(a)
		if err != nil {
			slog.Warn("failed to parse tool arguments", "err", err)
		}
		return out
	case []byte:
		return ParseArguments(string(a))
	case json.RawMessage:
		return ParseArguments(string(a))
	}

	// Typed maps (e.g. an SDK's named map type) decode through JSON.
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}

// argumentsFromResult is ParseArguments for a gjson value.
func argumentsFromResult(r gjson.Result) map[string]any {
	switch {
	case !r.Exists():
		return map[string]any{}
	case r.Type == gjson.String:
		return ParseArguments(r.String())
	case r.IsObject():
		return ParseArguments(r.Raw)
	}
	return map[string]any{}
}

// repairJSON attempts to unmarshal JSON, retrying after stripping trailing
// garbage characters. Some models emit truncated tool arguments.
func repairJSON(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil && out != nil {
		return out, nil
	}

	// Attempt 1: close an unterminated object.
	stripped := strings.TrimRight(raw, " \t\n\r,}")
	if strings.Count(stripped, "[") > strings.Count(stripped, "]") {
		stripped += "]"
	}
	stripped += "}"
	out = nil
	if err := json.Unmarshal([]byte(stripped), &out); err == nil && out != nil {
		return out, nil
	}

	// Attempt 2: cut at the last complete object.
	if i := strings.LastIndex(raw, "}"); i >= 0 {
		out = nil
		if err := json.Unmarshal([]byte(raw[:i+1]), &out); err == nil && out != nil {
			return out, nil
		}
	}

	return map[string]any{}, fmt.Errorf("cannot repair JSON: %s", raw)
}
