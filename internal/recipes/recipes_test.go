package recipes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/storage"
	"github.com/crystaldolphin/pantrychef/internal/vector"
)

// keywordEmbedder maps text onto a fixed keyword axis so similarity is
// predictable.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	fail  string
}

var axis = []string{"egg", "flour", "sugar", "lettuce"}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.fail != "" && strings.Contains(text, e.fail) {
		return nil, errors.New("embedding backend down")
	}
	vec := make([]float32, len(axis))
	for i, k := range axis {
		if strings.Contains(strings.ToLower(text), k) {
			vec[i] = 1
		}
	}
	return vec, nil
}

func fixtures() []schema.Recipe {
	return []schema.Recipe{
		{"slug": "omelette", "name": "Omelette", "ingredientList": []any{"egg"}},
		{"slug": "shortbread", "name": "Shortbread", "ingredientList": []any{"flour", "sugar"}},
		{"slug": "salad", "name": "Salad", "ingredientList": []any{"lettuce"}},
	}
}

func TestIndex_StoreEmbeddingsAndSearch(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemory(fixtures()...)
	vectors := vector.NewMemory()
	emb := &keywordEmbedder{}
	idx := NewIndex(emb, vectors, store, IndexOptions{TopK: 1, Concurrency: 2})

	stored, err := idx.StoreEmbeddings(ctx, fixtures())
	if err != nil {
		t.Fatalf("StoreEmbeddings: %v", err)
	}
	if len(stored) != 3 || vectors.Len() != 3 {
		t.Fatalf("stored %d, indexed %d", len(stored), vectors.Len())
	}
	for i, r := range stored {
		if r["embeddingId"] != fixtures()[i].Slug() {
			t.Errorf("recipe %d not annotated in order: %v", i, r)
		}
	}

	got, err := idx.SearchForMatchingRecipes(ctx, []string{"flour", "sugar"})
	if err != nil {
		t.Fatalf("SearchForMatchingRecipes: %v", err)
	}
	if len(got) != 1 || got[0].Slug() != "shortbread" {
		t.Errorf("got %v", got)
	}
}

func TestIndex_StoreEmbeddingsFails(t *testing.T) {
	idx := NewIndex(&keywordEmbedder{fail: "Salad"}, vector.NewMemory(), storage.NewMemory(), IndexOptions{})
	if _, err := idx.StoreEmbeddings(context.Background(), fixtures()); err == nil {
		t.Fatal("expected error when an embedding fails")
	}
}

func TestIndex_Reindex(t *testing.T) {
	vectors := vector.NewMemory()
	idx := NewIndex(&keywordEmbedder{}, vectors, storage.NewMemory(fixtures()...), IndexOptions{})
	n, err := idx.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 3 || vectors.Len() != 3 {
		t.Errorf("reindexed %d, vectors %d", n, vectors.Len())
	}
}

type stubNamer struct {
	replies []map[string]schema.IngredientName
	errs    []error
	calls   int
}

func (s *stubNamer) GetIngredientNames(_ context.Context, _ []string) (map[string]schema.IngredientName, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.replies[i], nil
}

func TestTagger_Tag(t *testing.T) {
	namer := &stubNamer{replies: []map[string]schema.IngredientName{{
		"2 Eggs":        {Word: "egg", Plural: "eggs"},
		"1 egg, beaten": {Word: "egg", Plural: "eggs"},
		"200g flour":    {Word: "flour", Plural: "flours"},
	}}}
	dict := storage.NewMemory()
	tags, err := NewTagger(namer, dict).Tag(context.Background(), []string{"2 Eggs", "1 egg, beaten", "200g flour", "2 Eggs"})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(tags) != 3 {
		t.Fatalf("expected 3 tags, got %d", len(tags))
	}
	if tags[0].ID != tags[1].ID {
		t.Errorf("same word must share an id: %d vs %d", tags[0].ID, tags[1].ID)
	}
	if tags[0].ID == tags[2].ID {
		t.Error("distinct words must get distinct ids")
	}
}

func TestTagger_SkipsMalformedBatch(t *testing.T) {
	namer := &stubNamer{
		errs:    []error{schema.ErrMalformedOutput},
		replies: []map[string]schema.IngredientName{nil},
	}
	tags, err := NewTagger(namer, storage.NewMemory()).Tag(context.Background(), []string{"salt"})
	if err != nil {
		t.Fatalf("Tag: %v", err)
	}
	if len(tags) != 0 {
		t.Errorf("expected no tags, got %v", tags)
	}
}

func TestTagger_PropagatesProviderError(t *testing.T) {
	namer := &stubNamer{errs: []error{errors.New("timeout")}, replies: []map[string]schema.IngredientName{nil}}
	if _, err := NewTagger(namer, storage.NewMemory()).Tag(context.Background(), []string{"salt"}); err == nil {
		t.Fatal("expected error")
	}
}
