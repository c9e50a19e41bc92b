// Package recipes holds the recipe-level services built on the stores: the
// embedding index and the ingredient tagger.
package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/sourcegraph/conc/pool"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

const (
	DefaultTopK        = 10
	DefaultConcurrency = 4
)

// Index embeds recipes into a vector store and answers ingredient queries by
// similarity.
type Index struct {
	embedder    schema.Embedder
	vectors     schema.VectorStore
	store       schema.RecipeStore
	topK        int
	concurrency int
}

type IndexOptions struct {
	TopK        int
	Concurrency int
}

func NewIndex(embedder schema.Embedder, vectors schema.VectorStore, store schema.RecipeStore, opts IndexOptions) *Index {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Index{
		embedder:    embedder,
		vectors:     vectors,
		store:       store,
		topK:        opts.TopK,
		concurrency: opts.Concurrency,
	}
}

// StoreEmbeddings embeds and upserts every recipe, at most Concurrency at a
// time. It returns copies of the recipes annotated with embeddingId, in input
// order. The first failure cancels the remaining work.
func (i *Index) StoreEmbeddings(ctx context.Context, recipes []schema.Recipe) ([]schema.Recipe, error) {
	out := make([]schema.Recipe, len(recipes))
	var done atomic.Int64

	p := pool.New().WithMaxGoroutines(i.concurrency).WithContext(ctx).WithCancelOnError().WithFirstError()
	for n, r := range recipes {
		p.Go(func(ctx context.Context) error {
			key := r.Key()
			if key == "" {
				return errors.New("recipe has neither slug nor id")
			}
			vec, err := i.embedder.Embed(ctx, r.EmbeddingText())
			if err != nil {
				return fmt.Errorf("embed %s: %w", key, err)
			}
			meta := map[string]string{"slug": key, "name": r.Name()}
			if err := i.vectors.Upsert(ctx, key, vec, meta); err != nil {
				return fmt.Errorf("upsert %s: %w", key, err)
			}

			annotated := make(schema.Recipe, len(r)+1)
			for k, v := range r {
				annotated[k] = v
			}
			annotated["embeddingId"] = key
			out[n] = annotated
			done.Add(1)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		slog.Error("store embeddings failed", "done", done.Load(), "total", len(recipes), "err", err)
		return nil, err
	}
	slog.Info("stored embeddings", "count", len(out))
	return out, nil
}

// Reindex embeds every recipe in the store.
func (i *Index) Reindex(ctx context.Context) (int, error) {
	all, err := i.store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recipes: %w", err)
	}
	stored, err := i.StoreEmbeddings(ctx, all)
	return len(stored), err
}

// SearchForMatchingRecipes embeds the ingredient query, finds the topK
// nearest recipes and loads them from the store in score order.
func (i *Index) SearchForMatchingRecipes(ctx context.Context, ingredients []string) ([]schema.Recipe, error) {
	if len(ingredients) == 0 {
		return []schema.Recipe{}, nil
	}
	vec, err := i.embedder.Embed(ctx, "Ingredients: "+strings.Join(ingredients, ", "))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := i.vectors.SearchByVector(ctx, vec, i.topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	slugs := make([]string, 0, len(matches))
	for _, m := range matches {
		slug := m.Metadata["slug"]
		if slug == "" {
			slug = m.ID
		}
		if slug != "" {
			slugs = append(slugs, slug)
		}
	}
	slog.Debug("vector search", "ingredients", ingredients, "matches", len(slugs))
	return i.store.QueryBySlugs(ctx, slugs)
}
