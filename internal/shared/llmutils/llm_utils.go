package llmutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

var (
	reThink = regexp.MustCompile(`(?s)<think>.*?</think>`)
	reFence = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")
)

// Truncate shortens a string to at most n characters, adding "..." if it was truncated.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// StripThink removes <think>…</think> blocks that some models embed.
func StripThink(s string) string {
	return strings.TrimSpace(reThink.ReplaceAllString(s, ""))
}

// ExtractJSONObject pulls the outermost JSON object out of model text,
// tolerating code fences and surrounding prose. ok is false when no
// brace-delimited span exists.
func ExtractJSONObject(s string) (string, bool) {
	s = StripThink(s)
	if m := reFence.FindStringSubmatch(s); m != nil {
		s = m[1]
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}

// ToolHint generates a short hint string for a list of tool calls, e.g. `find_recipes("egg")`.
func ToolHint(tcs []schema.ToolCallResponse) string {
	parts := make([]string, 0, len(tcs))
	for _, tc := range tcs {
		var firstVal string
		for _, v := range tc.Arguments {
			switch x := v.(type) {
			case string:
				firstVal = x
			case []any:
				if len(x) > 0 {
					firstVal = fmt.Sprint(x[0])
				}
			}
			break
		}
		if firstVal == "" {
			parts = append(parts, tc.Name)
			continue
		}
		if len(firstVal) > 40 {
			firstVal = firstVal[:40] + "…"
		}
		parts = append(parts, fmt.Sprintf("%s(%q)", tc.Name, firstVal))
	}
	return strings.Join(parts, ", ")
}
