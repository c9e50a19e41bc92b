package storage

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// Firestore caps the value list of "array-contains-any" filters.
const firestoreInLimit = 30

// Firestore reads recipes from a Firestore collection keyed by Recipe.Key().
// Ingredient queries use array-contains-any on ingredientList.
type Firestore struct {
	client     *firestore.Client
	collection string
}

func NewFirestore(client *firestore.Client, collection string) *Firestore {
	if collection == "" {
		collection = "recipes"
	}
	return &Firestore{client: client, collection: collection}
}

func (f *Firestore) QueryByIngredients(ctx context.Context, ingredients []string) ([]schema.Recipe, error) {
	seen := make(map[string]bool)
	out := make([]schema.Recipe, 0)
	for _, chunk := range chunkStrings(ingredients, firestoreInLimit) {
		docs, err := f.client.Collection(f.collection).
			Where("ingredientList", "array-contains-any", chunk).
			Documents(ctx).GetAll()
		if err != nil {
			return nil, fmt.Errorf("query recipes by ingredients: %w", err)
		}
		for _, d := range docs {
			if seen[d.Ref.ID] {
				continue
			}
			seen[d.Ref.ID] = true
			out = append(out, schema.Recipe(d.Data()))
		}
	}
	return out, nil
}

// QueryBySlugs loads documents by their ID, which BatchWrite sets to
// Recipe.Key(), so recipes without a slug are found by their id.
func (f *Firestore) QueryBySlugs(ctx context.Context, slugs []string) ([]schema.Recipe, error) {
	if len(slugs) == 0 {
		return []schema.Recipe{}, nil
	}
	col := f.client.Collection(f.collection)
	refs := make([]*firestore.DocumentRef, 0, len(slugs))
	for _, s := range slugs {
		if s != "" {
			refs = append(refs, col.Doc(s))
		}
	}
	snaps, err := f.client.GetAll(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("query recipes by slugs: %w", err)
	}
	// GetAll returns snapshots in ref order; missing documents do not exist.
	out := make([]schema.Recipe, 0, len(snaps))
	for _, d := range snaps {
		if d.Exists() {
			out = append(out, schema.Recipe(d.Data()))
		}
	}
	return out, nil
}

func (f *Firestore) All(ctx context.Context) ([]schema.Recipe, error) {
	docs, err := f.client.Collection(f.collection).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	out := make([]schema.Recipe, 0, len(docs))
	for _, d := range docs {
		out = append(out, schema.Recipe(d.Data()))
	}
	return out, nil
}

func (f *Firestore) BatchWrite(ctx context.Context, recipes []schema.Recipe) error {
	bw := f.client.BulkWriter(ctx)
	jobs := make([]*firestore.BulkWriterJob, 0, len(recipes))
	for _, r := range recipes {
		key := r.Key()
		if key == "" {
			bw.End()
			return errors.New("recipe has neither slug nor id")
		}
		job, err := bw.Set(f.client.Collection(f.collection).Doc(key), map[string]any(r))
		if err != nil {
			bw.End()
			return fmt.Errorf("queue recipe %s: %w", key, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for _, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("write recipe: %w", err)
		}
	}
	return nil
}

// IDs allocates word ids inside one transaction. Word documents live in the
// "words" collection; the last allocated id lives in counters/words.
func (f *Firestore) IDs(ctx context.Context, words []string) (map[string]int64, error) {
	out := make(map[string]int64, len(words))
	counter := f.client.Collection("counters").Doc("words")

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		clear(out)
		var missing []string
		for _, w := range words {
			snap, err := tx.Get(f.client.Collection("words").Doc(w))
			if status.Code(err) == codes.NotFound {
				missing = append(missing, w)
				continue
			}
			if err != nil {
				return fmt.Errorf("read word %q: %w", w, err)
			}
			id, err := int64Field(snap, "id")
			if err != nil {
				return err
			}
			out[w] = id
		}
		if len(missing) == 0 {
			return nil
		}

		var last int64
		snap, err := tx.Get(counter)
		switch {
		case status.Code(err) == codes.NotFound:
		case err != nil:
			return fmt.Errorf("read word counter: %w", err)
		default:
			if last, err = int64Field(snap, "last"); err != nil {
				return err
			}
		}

		for _, w := range missing {
			if _, dup := out[w]; dup {
				continue
			}
			last++
			out[w] = last
			if err := tx.Set(f.client.Collection("words").Doc(w), map[string]any{"id": last}); err != nil {
				return err
			}
		}
		return tx.Set(counter, map[string]any{"last": last})
	})
	if err != nil {
		return nil, fmt.Errorf("allocate word ids: %w", err)
	}
	return out, nil
}

func (f *Firestore) Close() error { return f.client.Close() }

func int64Field(snap *firestore.DocumentSnapshot, field string) (int64, error) {
	v, err := snap.DataAt(field)
	if err != nil {
		return 0, fmt.Errorf("read %s.%s: %w", snap.Ref.ID, field, err)
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	}
	return 0, fmt.Errorf("%s.%s is %T, not a number", snap.Ref.ID, field, v)
}

func chunkStrings(ss []string, n int) [][]string {
	var out [][]string
	for len(ss) > n {
		out = append(out, ss[:n])
		ss = ss[n:]
	}
	if len(ss) > 0 {
		out = append(out, ss)
	}
	return out
}
