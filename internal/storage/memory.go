// Package storage holds the recipe store and word dictionary backends.
package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// Memory is an in-process recipe store and word dictionary. It is used when
// no external store is configured and as the test double for everything
// that reads recipes.
type Memory struct {
	mu      sync.RWMutex
	order   []string
	recipes map[string]schema.Recipe
	words   map[string]int64
	lastID  int64
}

// NewMemory returns a Memory store seeded with recipes.
func NewMemory(recipes ...schema.Recipe) *Memory {
	m := &Memory{
		recipes: make(map[string]schema.Recipe),
		words:   make(map[string]int64),
	}
	_ = m.BatchWrite(context.Background(), recipes)
	return m
}

func (m *Memory) QueryByIngredients(_ context.Context, ingredients []string) ([]schema.Recipe, error) {
	want := make(map[string]bool, len(ingredients))
	for _, i := range ingredients {
		want[i] = true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.Recipe, 0)
	for _, key := range m.order {
		r := m.recipes[key]
		for _, ing := range r.IngredientList() {
			if want[ing] {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) QueryBySlugs(_ context.Context, slugs []string) ([]schema.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.Recipe, 0, len(slugs))
	for _, s := range slugs {
		if r, ok := m.recipes[s]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Memory) BatchWrite(_ context.Context, recipes []schema.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range recipes {
		key := r.Key()
		if key == "" {
			return errors.New("recipe has neither slug nor id")
		}
		if _, exists := m.recipes[key]; !exists {
			m.order = append(m.order, key)
		}
		m.recipes[key] = r
	}
	return nil
}

func (m *Memory) All(_ context.Context) ([]schema.Recipe, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schema.Recipe, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.recipes[key])
	}
	return out, nil
}

func (m *Memory) IDs(_ context.Context, words []string) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]int64, len(words))
	for _, w := range words {
		id, ok := m.words[w]
		if !ok {
			m.lastID++
			id = m.lastID
			m.words[w] = id
		}
		out[w] = id
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
