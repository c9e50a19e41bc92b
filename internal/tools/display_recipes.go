package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// DisplayRecipesTool records the recipes the model wants shown to the user.
type DisplayRecipesTool struct{}

func NewDisplayRecipesTool() *DisplayRecipesTool { return &DisplayRecipesTool{} }

func (t *DisplayRecipesTool) Name() string { return string(ToolDisplayRecipes) }
func (t *DisplayRecipesTool) Description() string {
	return "Show a list of recipes to the user. Pass the full recipe objects previously returned by find_recipes that best match the request."
}

func (t *DisplayRecipesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"recipes": {
				"type": "array",
				"items": {"type": "object"},
				"description": "Recipe objects to display."
			}
		},
		"required": ["recipes"]
	}`)
}

func (t *DisplayRecipesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	recipes, ok := schema.RecipesFromAny(args["recipes"])
	if !ok {
		return "", errors.New("recipes must be an array of objects")
	}
	TurnFrom(ctx).SetRecommendations(recipes, true)
	return fmt.Sprintf("Displaying %d recipe(s) to the user.", len(recipes)), nil
}
