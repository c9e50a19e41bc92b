package cmd

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/crystaldolphin/pantrychef/internal/agent"
	"github.com/crystaldolphin/pantrychef/internal/recipes"
	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/session"
	"github.com/crystaldolphin/pantrychef/internal/storage"
)

// displayOnEggs displays the omelette when the user mentions eggs and
// otherwise just answers.
type displayOnEggs struct {
	mu   sync.Mutex
	seen []schema.Messages
}

func (p *displayOnEggs) Chat(_ context.Context, msgs schema.Messages, _ []map[string]any, _ schema.ChatOptions) (schema.LLMResponse, error) {
	p.mu.Lock()
	p.seen = append(p.seen, msgs.Clone())
	p.mu.Unlock()

	last := msgs.Messages[msgs.Len()-1]
	switch {
	case last.Role == schema.RoleUser && strings.Contains(last.Content, "eggs"):
		return schema.LLMResponse{ToolCalls: []schema.ToolCallRequest{{
			Id: "d1", Name: "display_recipes", Arguments: map[string]any{"recipes": []any{map[string]any{"slug": "omelette"}}},
		}}}, nil
	case last.Role == schema.RoleTool:
		return schema.LLMResponse{Content: "Enjoy the omelette."}, nil
	default:
		return schema.LLMResponse{Content: "Happy cooking."}, nil
	}
}

func (p *displayOnEggs) DefaultModel() string { return "stub" }

func newConversation(t *testing.T, contextWindow int) (*conversation, *displayOnEggs) {
	t.Helper()
	p := &displayOnEggs{}
	f := agent.NewFactory(
		map[string]schema.LLMProvider{schema.ProviderGPT: p},
		storage.NewMemory(),
		nil, nil,
		schema.NewAgentSettings(0, 0, 0, contextWindow),
		recipes.IndexOptions{},
	)
	mgr, err := session.NewManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return &conversation{
		factory:  f,
		sessions: mgr,
		sess:     mgr.GetOrCreate("cli:test"),
		name:     "Remy",
		model:    "gpt-4o-mini",
		identity: schema.Identity{DisplayName: "Ada"},
	}, p
}

func TestConversation_FreshChefPerTurn(t *testing.T) {
	conv, _ := newConversation(t, 10)
	ctx := context.Background()

	chef1, reply, err := conv.turn(ctx, "I have eggs")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if reply != "Enjoy the omelette." || !chef1.HasRecipeRecommendations() {
		t.Fatalf("turn 1: reply %q, has=%v", reply, chef1.HasRecipeRecommendations())
	}

	chef2, reply, err := conv.turn(ctx, "thanks")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if chef2 == chef1 {
		t.Fatal("turn 2 reused the Chef from turn 1")
	}
	if reply != "Happy cooking." {
		t.Errorf("turn 2 reply = %q", reply)
	}
	if chef2.HasRecipeRecommendations() || len(chef2.Recommendations()) != 0 {
		t.Errorf("turn 2 still reports recommendations: %v", chef2.Recommendations())
	}
	// user, assistant(call), tool, assistant, then user, assistant.
	if n := conv.sess.Len(); n != 6 {
		t.Errorf("session has %d messages, want 6", n)
	}
}

func TestConversation_WindowsHistoryAndKeepsIdentity(t *testing.T) {
	conv, p := newConversation(t, 2)
	ctx := context.Background()

	for _, line := range []string{"hello", "what's for dinner", "anything quick", "ok"} {
		if _, _, err := conv.turn(ctx, line); err != nil {
			t.Fatalf("turn %q: %v", line, err)
		}
	}
	if n := conv.sess.Len(); n != 8 {
		t.Errorf("session has %d messages, want all 8 saved", n)
	}

	last := p.seen[len(p.seen)-1]
	// system + 2 windowed messages + the new prompt.
	if last.Len() != 4 {
		t.Fatalf("model saw %d messages, want 4: %+v", last.Len(), last.Messages)
	}
	if last.Messages[0].Role != schema.RoleSystem || !strings.Contains(last.Messages[0].Content, "The user's name is Ada.") {
		t.Errorf("system prompt = %q", last.Messages[0].Content)
	}
	if got := last.Messages[last.Len()-1].Content; got != "ok" {
		t.Errorf("last message = %q, want the new prompt", got)
	}
}

func TestConversation_UnknownModel(t *testing.T) {
	conv, _ := newConversation(t, 10)
	conv.model = "claude-3"
	if _, _, err := conv.turn(context.Background(), "hi"); err == nil {
		t.Fatal("expected an error for an unknown provider")
	}
	if conv.sess.Len() != 0 {
		t.Error("failed turn should not touch the session")
	}
}
