package schema

import "context"

// RecipeStore is the document store holding recipes.
type RecipeStore interface {
	// QueryByIngredients returns recipes whose ingredientList contains any of
	// the given ingredients (exact membership, union semantics).
	QueryByIngredients(ctx context.Context, ingredients []string) ([]Recipe, error)
	// QueryBySlugs returns the recipes with the given slugs in the order given.
	// Unknown slugs are skipped.
	QueryBySlugs(ctx context.Context, slugs []string) ([]Recipe, error)
	BatchWrite(ctx context.Context, recipes []Recipe) error
	All(ctx context.Context) ([]Recipe, error)
}

// WordDictionary assigns stable, monotonically increasing ids to words.
type WordDictionary interface {
	// IDs returns the id of every word, allocating new ids for unseen words.
	IDs(ctx context.Context, words []string) (map[string]int64, error)
}

// VectorMatch is one similarity-search hit.
type VectorMatch struct {
	ID       string
	Score    float32
	Metadata map[string]string
}

// VectorStore is the similarity index over recipe embeddings.
type VectorStore interface {
	Upsert(ctx context.Context, id string, vector []float32, metadata map[string]string) error
	SearchByVector(ctx context.Context, vector []float32, k int) ([]VectorMatch, error)
}

// Identity is the verified caller.
type Identity struct {
	UID         string
	DisplayName string
}

// AuthVerifier verifies a bearer token. It fails with ErrInvalidToken for
// tokens it rejects.
type AuthVerifier interface {
	VerifyToken(ctx context.Context, token string) (Identity, error)
}
