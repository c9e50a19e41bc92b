package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// RecipeSearcher finds recipes by embedding similarity.
type RecipeSearcher interface {
	SearchForMatchingRecipes(ctx context.Context, ingredients []string) ([]schema.Recipe, error)
}

// FindRecipesTool looks up recipes by ingredient. With a searcher it runs a
// vector similarity search; otherwise it falls back to exact membership
// matching against the recipe store.
type FindRecipesTool struct {
	store    schema.RecipeStore
	searcher RecipeSearcher
}

// NewFindRecipesTool creates a FindRecipesTool. searcher may be nil.
func NewFindRecipesTool(store schema.RecipeStore, searcher RecipeSearcher) *FindRecipesTool {
	return &FindRecipesTool{store: store, searcher: searcher}
}

func (t *FindRecipesTool) Name() string { return string(ToolFindRecipes) }
func (t *FindRecipesTool) Description() string {
	return "Find recipes that use any of the given ingredients. Call this whenever the user asks what they can cook or names ingredients they have."
}

func (t *FindRecipesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"ingredients": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Singular, lowercase ingredient names, e.g. [\"egg\", \"flour\"]."
			}
		},
		"required": ["ingredients"]
	}`)
}

// VectorSearch reports whether the tool is backed by similarity search.
func (t *FindRecipesTool) VectorSearch() bool { return t.searcher != nil }

func (t *FindRecipesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	ingredients := StringList(args["ingredients"])
	if len(ingredients) == 0 {
		return "", errors.New("ingredients must be a non-empty list of strings")
	}

	recipes, err := t.Find(ctx, ingredients)
	if err != nil {
		return "", err
	}

	state := TurnFrom(ctx)
	state.SetRecommendations(recipes, false)
	state.SetIngredients(ingredients)

	slog.Info("find_recipes", "ingredients", ingredients, "found", len(recipes), "vector", t.VectorSearch())

	data, err := json.Marshal(recipes)
	if err != nil {
		return "", fmt.Errorf("encode recipes: %w", err)
	}
	return string(data), nil
}

// Find runs the lookup without touching turn state.
func (t *FindRecipesTool) Find(ctx context.Context, ingredients []string) ([]schema.Recipe, error) {
	var (
		recipes []schema.Recipe
		err     error
	)
	if t.searcher != nil {
		recipes, err = t.searcher.SearchForMatchingRecipes(ctx, ingredients)
	} else {
		recipes, err = t.store.QueryByIngredients(ctx, ingredients)
	}
	if err != nil {
		return nil, fmt.Errorf("find recipes: %w", err)
	}
	if recipes == nil {
		recipes = []schema.Recipe{}
	}
	return recipes, nil
}

// StringList coerces a decoded JSON value into a list of trimmed, non-empty
// strings. A bare string is split on commas.
func StringList(v any) []string {
	var raw []string
	switch x := v.(type) {
	case []string:
		raw = x
	case []any:
		for _, item := range x {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(x, ",")
	}
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
