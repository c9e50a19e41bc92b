package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

type recipeStore interface {
	schema.RecipeStore
	schema.WordDictionary
}

func fixtures() []schema.Recipe {
	return []schema.Recipe{
		{"slug": "omelette", "name": "Omelette", "ingredientList": []any{"egg", "milk"}},
		{"slug": "shortbread", "name": "Shortbread", "ingredientList": []any{"flour", "sugar"}},
		{"slug": "salad", "name": "Salad", "ingredientList": []any{"lettuce"}},
	}
}

func backends(t *testing.T) map[string]recipeStore {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]recipeStore{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestStore_QueryByIngredients_Union(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.BatchWrite(ctx, fixtures()); err != nil {
				t.Fatalf("BatchWrite: %v", err)
			}
			got, err := s.QueryByIngredients(ctx, []string{"egg", "flour"})
			if err != nil {
				t.Fatalf("QueryByIngredients: %v", err)
			}
			if len(got) != 2 {
				t.Fatalf("expected 2 recipes, got %d", len(got))
			}
			if got[0].Slug() != "omelette" || got[1].Slug() != "shortbread" {
				t.Errorf("got %s, %s", got[0].Slug(), got[1].Slug())
			}

			none, err := s.QueryByIngredients(ctx, []string{"eggs"})
			if err != nil {
				t.Fatalf("QueryByIngredients: %v", err)
			}
			if len(none) != 0 {
				t.Errorf("membership must be exact, got %d results", len(none))
			}
		})
	}
}

func TestStore_QueryBySlugs_KeepsRequestOrder(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.BatchWrite(ctx, fixtures()); err != nil {
				t.Fatalf("BatchWrite: %v", err)
			}
			got, err := s.QueryBySlugs(ctx, []string{"salad", "missing", "omelette"})
			if err != nil {
				t.Fatalf("QueryBySlugs: %v", err)
			}
			if len(got) != 2 || got[0].Slug() != "salad" || got[1].Slug() != "omelette" {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestStore_BatchWrite_ReplacesIngredients(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.BatchWrite(ctx, fixtures()); err != nil {
				t.Fatalf("BatchWrite: %v", err)
			}
			updated := schema.Recipe{"slug": "omelette", "name": "Omelette", "ingredientList": []any{"egg", "cheese"}}
			if err := s.BatchWrite(ctx, []schema.Recipe{updated}); err != nil {
				t.Fatalf("BatchWrite: %v", err)
			}
			got, _ := s.QueryByIngredients(ctx, []string{"milk"})
			if len(got) != 0 {
				t.Errorf("stale ingredient still matches: %v", got)
			}
			got, _ = s.QueryByIngredients(ctx, []string{"cheese"})
			if len(got) != 1 {
				t.Errorf("expected updated ingredient to match, got %v", got)
			}
			all, _ := s.All(ctx)
			if len(all) != 3 {
				t.Errorf("expected 3 recipes after update, got %d", len(all))
			}
		})
	}
}

func TestStore_BatchWrite_RequiresKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if err := s.BatchWrite(ctx, []schema.Recipe{{"name": "nameless"}}); err == nil {
				t.Fatal("expected error for recipe without slug or id")
			}
		})
	}
}

func TestWordDictionary_Monotonic(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first, err := s.IDs(ctx, []string{"egg", "flour"})
			if err != nil {
				t.Fatalf("IDs: %v", err)
			}
			if first["egg"] != 1 || first["flour"] != 2 {
				t.Errorf("first = %v", first)
			}
			second, err := s.IDs(ctx, []string{"flour", "sugar"})
			if err != nil {
				t.Fatalf("IDs: %v", err)
			}
			if second["flour"] != 2 {
				t.Errorf("flour id changed: %d", second["flour"])
			}
			if second["sugar"] != 3 {
				t.Errorf("sugar id = %d, want 3", second["sugar"])
			}
		})
	}
}

func TestSQLite_WordIDsNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "recipes.db"))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	defer s.Close()

	if _, err := s.IDs(ctx, []string{"egg", "flour"}); err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM words WHERE word = ?`, "flour"); err != nil {
		t.Fatal(err)
	}
	got, err := s.IDs(ctx, []string{"sugar"})
	if err != nil {
		t.Fatalf("IDs: %v", err)
	}
	if got["sugar"] != 3 {
		t.Errorf("sugar id = %d, want 3 (flour's 2 must not be reused)", got["sugar"])
	}
}
