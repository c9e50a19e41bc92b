package tools

import (
	"context"
	"sync"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// TurnState is the per-Chef result accumulator that recipe tools write into.
// It is attached to the context by the agent before the tool loop runs and
// read back once the turn finishes.
type TurnState struct {
	mu                 sync.Mutex
	recommendations    []schema.Recipe
	ingredients        []string
	hasRecommendations bool
}

func NewTurnState() *TurnState {
	return &TurnState{}
}

// SetRecommendations replaces the current recommendations. display marks them
// as explicitly shown to the user.
func (s *TurnState) SetRecommendations(recipes []schema.Recipe, display bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recommendations = recipes
	if display {
		s.hasRecommendations = true
	}
}

func (s *TurnState) SetIngredients(ingredients []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingredients = ingredients
}

func (s *TurnState) Recommendations() []schema.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]schema.Recipe, len(s.recommendations))
	copy(out, s.recommendations)
	return out
}

func (s *TurnState) Ingredients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ingredients))
	copy(out, s.ingredients)
	return out
}

func (s *TurnState) HasRecommendations() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasRecommendations
}

type turnKey struct{}

// WithTurn returns a child context that carries state.
func WithTurn(ctx context.Context, state *TurnState) context.Context {
	return context.WithValue(ctx, turnKey{}, state)
}

// TurnFrom extracts the TurnState from ctx.
// A fresh, unattached state is returned if none was set.
func TurnFrom(ctx context.Context) *TurnState {
	if s, ok := ctx.Value(turnKey{}).(*TurnState); ok && s != nil {
		return s
	}
	return NewTurnState()
}
