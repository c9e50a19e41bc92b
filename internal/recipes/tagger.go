package recipes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

const defaultTagBatch = 25

// IngredientNamer canonicalises raw ingredient strings. *agent.Chef
// implements it.
type IngredientNamer interface {
	GetIngredientNames(ctx context.Context, ingredients []string) (map[string]schema.IngredientName, error)
}

// Tag is one raw ingredient string resolved to its canonical word and that
// word's dictionary id.
type Tag struct {
	Raw  string                `json:"raw"`
	Name schema.IngredientName `json:"name"`
	ID   int64                 `json:"id"`
}

// Tagger assigns stable integer ids to ingredient strings.
type Tagger struct {
	namer     IngredientNamer
	dict      schema.WordDictionary
	batchSize int
}

func NewTagger(namer IngredientNamer, dict schema.WordDictionary) *Tagger {
	return &Tagger{namer: namer, dict: dict, batchSize: defaultTagBatch}
}

// Tag resolves raw strings batch by batch. A batch the model answers with
// malformed output is skipped, so its strings are absent from the result.
func (t *Tagger) Tag(ctx context.Context, raw []string) ([]Tag, error) {
	raw = dedupe(raw)
	out := make([]Tag, 0, len(raw))

	for start := 0; start < len(raw); start += t.batchSize {
		end := min(start+t.batchSize, len(raw))
		batch := raw[start:end]

		names, err := t.namer.GetIngredientNames(ctx, batch)
		if errors.Is(err, schema.ErrMalformedOutput) {
			slog.Warn("skipping ingredient batch", "size", len(batch), "err", err)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("name ingredients: %w", err)
		}

		words := make([]string, 0, len(names))
		for _, n := range names {
			words = append(words, n.Word)
		}
		sort.Strings(words)
		ids, err := t.dict.IDs(ctx, dedupe(words))
		if err != nil {
			return nil, fmt.Errorf("assign word ids: %w", err)
		}

		for _, r := range batch {
			n, ok := names[r]
			if !ok {
				continue
			}
			out = append(out, Tag{Raw: r, Name: n, ID: ids[n.Word]})
		}
	}
	return out, nil
}

func dedupe(ss []string) []string {
	seen := make(map[string]bool, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
