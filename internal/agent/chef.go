// Package agent holds the Chef: a conversational agent that owns one
// conversation's history and runs the model ↔ tool loop over any provider.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/shared/llmutils"
	"github.com/crystaldolphin/pantrychef/internal/tools"
)

const DefaultChefName = "Chef"

// Chef is one conversation turn's agent. It is built per request by the
// Factory and must not be shared between requests.
type Chef struct {
	LoopRunner

	name     string
	model    schema.ModelID
	tools    *tools.ToolList
	verifier schema.AuthVerifier
	prompts  *Prompts
	system   SystemPrompt

	history     schema.Messages
	latestStart int
	turn        *tools.TurnState

	identityResolved bool
	slots            PromptSlots
}

// NewChef builds a Chef over provider. System messages in history are
// dropped; the rendered system prompt always sits at index 0.
func NewChef(
	name string,
	model schema.ModelID,
	provider schema.LLMProvider,
	settings schema.AgentSettings,
	tls *tools.ToolList,
	verifier schema.AuthVerifier,
	prompts *Prompts,
	history []schema.Message,
) (*Chef, error) {
	if name == "" {
		name = DefaultChefName
	}
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if tls == nil {
		tls = tools.NewToolList()
	}
	system, err := NewSystemPrompt(prompts.Chef.System)
	if err != nil {
		return nil, err
	}

	c := &Chef{
		LoopRunner: newLoopRunner(provider, model.Model, settings),
		name:       name,
		model:      model,
		tools:      tls,
		verifier:   verifier,
		prompts:    prompts,
		system:     system,
		turn:       tools.NewTurnState(),
		slots:      PromptSlots{ChefName: name},
	}
	c.history = schema.NewMessages(schema.NewSystemMessage(system.Render(c.slots)))
	c.history.Messages = append(c.history.Messages, schema.WithoutSystem(history)...)
	c.latestStart = c.history.Len()
	return c, nil
}

// GetResponse appends prompt (when non-empty), runs the tool loop and
// returns the final assistant text, which may be empty. Failures inside the
// turn are logged and never returned: an invalid token downgrades the user to
// anonymous, tool errors become tool messages, and a provider error ends the
// loop with the best text seen.
func (c *Chef) GetResponse(ctx context.Context, prompt, authorizationToken string) string {
	c.resolveIdentity(ctx, authorizationToken)
	c.history.Messages[0] = schema.NewSystemMessage(c.system.Render(c.slots))

	c.latestStart = c.history.Len()
	if prompt != "" {
		c.history.AddUser(prompt)
	}

	ctx = tools.WithTurn(ctx, c.turn)
	content := c.run(ctx, &c.history, c.tools)

	slog.Info("chef turn complete",
		"chef", c.name,
		"model", c.model.String(),
		"messages", c.history.Len()-c.latestStart,
		"recommendations", len(c.turn.Recommendations()),
	)
	return content
}

// resolveIdentity fills the user slots on the first call only.
func (c *Chef) resolveIdentity(ctx context.Context, token string) {
	if c.identityResolved {
		return
	}
	c.setIdentity(identify(ctx, c.verifier, token))
}

// setIdentity fills the user slots so later turns skip token verification.
func (c *Chef) setIdentity(id schema.Identity) {
	c.identityResolved = true
	c.slots.UserDescription, c.slots.UserName = c.prompts.describe(id.DisplayName)
}

// identify verifies token. A missing verifier or a rejected token yields the
// anonymous identity.
func identify(ctx context.Context, verifier schema.AuthVerifier, token string) schema.Identity {
	if token == "" || verifier == nil {
		return schema.Identity{}
	}
	id, err := verifier.VerifyToken(ctx, token)
	if err != nil {
		slog.Warn("token verification failed, continuing as anonymous", "err", err)
		return schema.Identity{}
	}
	return id
}

// GetIngredientNames asks the model to canonicalise raw ingredient strings.
// Output that is not a JSON object of IngredientName values yields
// schema.ErrMalformedOutput and no data.
func (c *Chef) GetIngredientNames(ctx context.Context, ingredients []string) (map[string]schema.IngredientName, error) {
	if len(ingredients) == 0 {
		return map[string]schema.IngredientName{}, nil
	}

	msgs := schema.NewMessages(
		schema.NewSystemMessage(c.prompts.Ingredients.System),
		schema.NewUserMessage(c.prompts.ingredientsPrompt(ingredients)),
	)
	opts := schema.NewChatOptions(c.model.Model, c.settings.MaxTokens, 0)
	opts.JSONMode = true

	resp, err := c.provider.Chat(ctx, msgs, nil, opts)
	if err != nil {
		return nil, fmt.Errorf("ingredient names: %w", err)
	}

	raw, ok := llmutils.ExtractJSONObject(resp.Content)
	if !ok {
		return nil, fmt.Errorf("%w: no JSON object in reply", schema.ErrMalformedOutput)
	}
	var out map[string]schema.IngredientName
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", schema.ErrMalformedOutput, err)
	}
	for k, v := range out {
		if v.Word == "" {
			delete(out, k)
		}
	}
	return out, nil
}

func (c *Chef) Name() string          { return c.name }
func (c *Chef) Model() schema.ModelID { return c.model }

// History returns the full conversation, system message first.
func (c *Chef) History() []schema.Message { return c.history.Since(0) }

// LatestHistory returns the messages appended by the last GetResponse call.
func (c *Chef) LatestHistory() []schema.Message { return c.history.Since(c.latestStart) }

func (c *Chef) Recommendations() []schema.Recipe { return c.turn.Recommendations() }
func (c *Chef) Ingredients() []string            { return c.turn.Ingredients() }

func (c *Chef) HasRecipeRecommendations() bool { return c.turn.HasRecommendations() }

// Tools exposes the Chef's tool list.
func (c *Chef) Tools() *tools.ToolList { return c.tools }
