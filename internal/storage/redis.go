package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

const (
	redisRecipeIndex = "pantrychef:recipes"
	redisRecipeSeq   = "pantrychef:recipes:seq"
	redisWords       = "pantrychef:words"
	redisWordSeq     = "pantrychef:words:seq"
)

// Redis keeps each recipe as a JSON string, a sorted set of slugs in
// insertion order, and one set of slugs per ingredient.
type Redis struct {
	rdb *redis.Client
}

func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) QueryByIngredients(ctx context.Context, ingredients []string) ([]schema.Recipe, error) {
	if len(ingredients) == 0 {
		return []schema.Recipe{}, nil
	}
	keys := make([]string, len(ingredients))
	for i, ing := range ingredients {
		keys[i] = getIngredientKey(ing)
	}
	matched, err := r.rdb.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to union ingredient sets: %w", err)
	}
	if len(matched) == 0 {
		return []schema.Recipe{}, nil
	}

	hit := make(map[string]bool, len(matched))
	for _, s := range matched {
		hit[s] = true
	}
	ordered, err := r.rdb.ZRange(ctx, redisRecipeIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe index: %w", err)
	}
	slugs := make([]string, 0, len(matched))
	for _, s := range ordered {
		if hit[s] {
			slugs = append(slugs, s)
		}
	}
	return r.QueryBySlugs(ctx, slugs)
}

func (r *Redis) QueryBySlugs(ctx context.Context, slugs []string) ([]schema.Recipe, error) {
	if len(slugs) == 0 {
		return []schema.Recipe{}, nil
	}
	keys := make([]string, len(slugs))
	for i, s := range slugs {
		keys[i] = getRecipeKey(s)
	}
	raws, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recipes: %w", err)
	}
	out := make([]schema.Recipe, 0, len(raws))
	for i, raw := range raws {
		s, ok := raw.(string)
		if !ok {
			continue
		}
		var rec schema.Recipe
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal recipe %s: %w", slugs[i], err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (r *Redis) All(ctx context.Context) ([]schema.Recipe, error) {
	slugs, err := r.rdb.ZRange(ctx, redisRecipeIndex, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe index: %w", err)
	}
	return r.QueryBySlugs(ctx, slugs)
}

func (r *Redis) BatchWrite(ctx context.Context, recipes []schema.Recipe) error {
	for _, rec := range recipes {
		if err := r.write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (r *Redis) write(ctx context.Context, rec schema.Recipe) error {
	key := rec.Key()
	if key == "" {
		return errors.New("recipe has neither slug nor id")
	}
	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe %s: %w", key, err)
	}

	var previous schema.Recipe
	prevRaw, err := r.rdb.Get(ctx, getRecipeKey(key)).Result()
	switch {
	case errors.Is(err, redis.Nil):
	case err != nil:
		return fmt.Errorf("failed to get recipe %s: %w", key, err)
	default:
		_ = json.Unmarshal([]byte(prevRaw), &previous)
	}

	seq, err := r.rdb.Incr(ctx, redisRecipeSeq).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate recipe seq: %w", err)
	}

	pipe := r.rdb.TxPipeline()
	pipe.Set(ctx, getRecipeKey(key), doc, 0)
	pipe.ZAddNX(ctx, redisRecipeIndex, redis.Z{Score: float64(seq), Member: key})
	for _, ing := range previous.IngredientList() {
		pipe.SRem(ctx, getIngredientKey(ing), key)
	}
	for _, ing := range rec.IngredientList() {
		pipe.SAdd(ctx, getIngredientKey(ing), key)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", key, err)
	}
	return nil
}

func (r *Redis) IDs(ctx context.Context, words []string) (map[string]int64, error) {
	out := make(map[string]int64, len(words))
	for _, w := range words {
		id, err := r.wordID(ctx, w)
		if err != nil {
			return nil, err
		}
		out[w] = id
	}
	return out, nil
}

func (r *Redis) wordID(ctx context.Context, word string) (int64, error) {
	id, err := r.rdb.HGet(ctx, redisWords, word).Int64()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, redis.Nil) {
		return 0, fmt.Errorf("failed to get word %q: %w", word, err)
	}

	next, err := r.rdb.Incr(ctx, redisWordSeq).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to allocate word id: %w", err)
	}
	set, err := r.rdb.HSetNX(ctx, redisWords, word, strconv.FormatInt(next, 10)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to save word %q: %w", word, err)
	}
	if set {
		return next, nil
	}
	// Another writer won the race; use its id.
	return r.rdb.HGet(ctx, redisWords, word).Int64()
}

func (r *Redis) Close() error { return r.rdb.Close() }

func getRecipeKey(slug string) string {
	return fmt.Sprintf("pantrychef:recipe:%s", slug)
}

func getIngredientKey(ingredient string) string {
	return fmt.Sprintf("pantrychef:ingredient:%s", ingredient)
}
