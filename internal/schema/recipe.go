package schema

import (
	"fmt"
	"strings"
)

// Recipe is an opaque recipe document. The agent only reads a handful of
// well-known fields and passes everything else through unchanged.
type Recipe map[string]any

func (r Recipe) ID() string   { return r.str("id") }
func (r Recipe) Slug() string { return r.str("slug") }
func (r Recipe) Name() string { return r.str("name") }

func (r Recipe) Description() string { return r.str("description") }

// IngredientList returns the flattened ingredient keywords used for
// exact-membership queries.
func (r Recipe) IngredientList() []string { return r.strings("ingredientList") }

func (r Recipe) Tags() []string { return r.strings("tags") }

// HasAllTags reports whether r carries every tag in want (case-insensitive).
func (r Recipe) HasAllTags(want []string) bool {
	have := make(map[string]bool)
	for _, t := range r.Tags() {
		have[strings.ToLower(t)] = true
	}
	for _, t := range want {
		if !have[strings.ToLower(t)] {
			return false
		}
	}
	return true
}

// Key returns the identifier a store should index r under: slug, then id.
func (r Recipe) Key() string {
	if s := r.Slug(); s != "" {
		return s
	}
	return r.ID()
}

// EmbeddingText is the text a vector index embeds for r.
func (r Recipe) EmbeddingText() string {
	parts := []string{r.Name()}
	if d := r.Description(); d != "" {
		parts = append(parts, d)
	}
	if ing := r.IngredientList(); len(ing) > 0 {
		parts = append(parts, "Ingredients: "+strings.Join(ing, ", "))
	}
	return strings.Join(parts, "\n")
}

func (r Recipe) str(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

func (r Recipe) strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// RecipesFromAny converts a decoded JSON array into recipes, dropping
// entries that are not objects.
func RecipesFromAny(v any) ([]Recipe, bool) {
	items, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]map[string]any); ok {
			out := make([]Recipe, 0, len(typed))
			for _, m := range typed {
				out = append(out, Recipe(m))
			}
			return out, true
		}
		return nil, false
	}
	out := make([]Recipe, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Recipe(m))
		}
	}
	return out, true
}
