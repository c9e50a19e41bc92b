package dependency

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crystaldolphin/pantrychef/internal/agent"
	"github.com/crystaldolphin/pantrychef/internal/config"
	"github.com/crystaldolphin/pantrychef/internal/config/store"
	"github.com/crystaldolphin/pantrychef/internal/schema"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg := config.DefaultConfig()
	return &cfg
}

func TestNew_MemoryStoreWithSeed(t *testing.T) {
	cfg := testConfig(t)
	seed := filepath.Join(t.TempDir(), "recipes.json")
	if err := os.WriteFile(seed, []byte(`[
		{"slug":"omelette","name":"Omelette","ingredientList":["egg"]},
		{"slug":"pancakes","name":"Pancakes","ingredientList":["egg","flour"]}
	]`), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg.Store.Seed = seed
	cfg.Providers.GPT.APIKey = "sk-test"

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	all, err := c.Store().All(context.Background())
	if err != nil || len(all) != 2 {
		t.Fatalf("All() = %d recipes, err %v", len(all), err)
	}
	ids, err := c.Dictionary().IDs(context.Background(), []string{"egg", "flour"})
	if err != nil || ids["egg"] == ids["flour"] {
		t.Errorf("IDs() = %v, %v", ids, err)
	}

	if _, ok := c.Providers()[schema.ProviderGPT]; !ok {
		t.Error("gpt provider should be configured")
	}
	if _, ok := c.Providers()[schema.ProviderGoogle]; ok {
		t.Error("google provider has no key and should be absent")
	}
	if c.VectorsEnabled() {
		t.Error("vectors should be disabled without vector.host")
	}
	if c.Server() == nil || c.Sessions() == nil || c.Scheduler() == nil {
		t.Error("container left a service unresolved")
	}

	chef, err := c.Factory().GetChef(agent.ChefOptions{SpecifiedModel: "gpt-4o-mini"})
	if err != nil {
		t.Fatalf("GetChef: %v", err)
	}
	if chef.Model().Model != "4o-mini" {
		t.Errorf("model = %q", chef.Model().Model)
	}
}

func TestNew_SQLite(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = store.DriverSQLite
	cfg.Store.Path = filepath.Join(t.TempDir(), "recipes.db")

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Store().BatchWrite(ctx, []schema.Recipe{{"slug": "soup", "ingredientList": []any{"leek"}}}); err != nil {
		t.Fatalf("BatchWrite: %v", err)
	}
	got, err := c.Store().QueryByIngredients(ctx, []string{"leek"})
	if err != nil || len(got) != 1 || got[0].Slug() != "soup" {
		t.Errorf("QueryByIngredients = %v, %v", got, err)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"unknown driver", func(c *config.Config) { c.Store.Driver = "mongo" }, `unknown store driver "mongo"`},
		{"firestore without firebase", func(c *config.Config) { c.Store.Driver = store.DriverFirestore }, "firebase.projectId"},
		{"missing seed", func(c *config.Config) { c.Store.Seed = "/nonexistent/seed.json" }, "read recipe seed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			tt.mutate(cfg)
			_, err := New(context.Background(), cfg)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestReindex_NeedsVectors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.GPT.APIKey = "sk-test"
	cfg.Indexer.Schedule = "@every 1h"

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if _, err := c.Reindex(context.Background()); err == nil {
		t.Error("Reindex without a vector index should fail")
	}
	if jobs := c.Scheduler().ListJobs(); len(jobs) != 0 {
		t.Errorf("reindex job scheduled without vectors: %+v", jobs)
	}
}

func TestNew_InProcessVectors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Providers.GPT.APIKey = "sk-test"
	cfg.Vector.Host = store.VectorHostMemory
	cfg.Indexer.Schedule = "@every 1h"

	c, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if !c.VectorsEnabled() {
		t.Fatal("vector.host=memory should enable vectors")
	}
	n, err := c.Reindex(context.Background())
	if err != nil || n != 0 {
		t.Errorf("Reindex on an empty store = %d, %v", n, err)
	}
	if jobs := c.Scheduler().ListJobs(); len(jobs) != 1 {
		t.Errorf("jobs = %+v, want the reindex job", jobs)
	}
}

func TestNewVerifier(t *testing.T) {
	tests := []struct {
		name   string
		fc     store.FirebaseConfig
		wantOK bool
	}{
		{"no firebase, no tokens", store.FirebaseConfig{}, false},
		{"static tokens", store.FirebaseConfig{StaticTokens: map[string]string{"dev": "Ada"}}, true},
		{"auth disabled", store.FirebaseConfig{AuthDisabled: true, StaticTokens: map[string]string{"dev": "Ada"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Firebase = tt.fc
			v, err := newVerifier(context.Background(), cfg, firebaseApp{})
			if err != nil {
				t.Fatalf("newVerifier: %v", err)
			}
			if (v != nil) != tt.wantOK {
				t.Fatalf("verifier = %v, want present=%v", v, tt.wantOK)
			}
			if v == nil {
				return
			}
			id, err := v.VerifyToken(context.Background(), "Bearer dev")
			if err != nil || id.DisplayName != "Ada" {
				t.Errorf("VerifyToken = %+v, %v", id, err)
			}
			if _, err := v.VerifyToken(context.Background(), "other"); err == nil {
				t.Error("unknown token should be rejected")
			}
		})
	}
}
