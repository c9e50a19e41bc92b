package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/crystaldolphin/pantrychef/internal/schema"
)

// SQLite stores recipes as JSON documents with a side table indexing each
// entry of ingredientList for membership queries.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if needed) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer keeps word-id allocation serial.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

func (s *SQLite) initialize() error {
	ddl := `
	CREATE TABLE IF NOT EXISTS recipes (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		slug TEXT NOT NULL UNIQUE,
		doc TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS recipe_ingredients (
		slug TEXT NOT NULL,
		ingredient TEXT NOT NULL,
		PRIMARY KEY (slug, ingredient)
	);
	CREATE INDEX IF NOT EXISTS idx_recipe_ingredients_ingredient ON recipe_ingredients(ingredient);
	CREATE TABLE IF NOT EXISTS words (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		word TEXT NOT NULL UNIQUE
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

func (s *SQLite) QueryByIngredients(ctx context.Context, ingredients []string) ([]schema.Recipe, error) {
	if len(ingredients) == 0 {
		return []schema.Recipe{}, nil
	}
	query := `
	SELECT r.doc FROM recipes r
	WHERE r.slug IN (SELECT slug FROM recipe_ingredients WHERE ingredient IN (` + placeholders(len(ingredients)) + `))
	ORDER BY r.seq
	`
	return s.queryDocs(ctx, query, toArgs(ingredients)...)
}

func (s *SQLite) QueryBySlugs(ctx context.Context, slugs []string) ([]schema.Recipe, error) {
	if len(slugs) == 0 {
		return []schema.Recipe{}, nil
	}
	query := `SELECT doc FROM recipes WHERE slug IN (` + placeholders(len(slugs)) + `)`
	found, err := s.queryDocs(ctx, query, toArgs(slugs)...)
	if err != nil {
		return nil, err
	}
	return orderBySlugs(found, slugs), nil
}

func (s *SQLite) All(ctx context.Context) ([]schema.Recipe, error) {
	return s.queryDocs(ctx, `SELECT doc FROM recipes ORDER BY seq`)
}

func (s *SQLite) BatchWrite(ctx context.Context, recipes []schema.Recipe) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range recipes {
		key := r.Key()
		if key == "" {
			return errors.New("recipe has neither slug nor id")
		}
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("marshal recipe %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipes (slug, doc) VALUES (?, ?) ON CONFLICT(slug) DO UPDATE SET doc = excluded.doc`,
			key, string(doc),
		); err != nil {
			return fmt.Errorf("write recipe %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM recipe_ingredients WHERE slug = ?`, key); err != nil {
			return fmt.Errorf("clear ingredients %s: %w", key, err)
		}
		for _, ing := range r.IngredientList() {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO recipe_ingredients (slug, ingredient) VALUES (?, ?)`, key, ing,
			); err != nil {
				return fmt.Errorf("index ingredient %s: %w", key, err)
			}
		}
	}
	return tx.Commit()
}

func (s *SQLite) IDs(ctx context.Context, words []string) (map[string]int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	out := make(map[string]int64, len(words))
	for _, w := range words {
		var id int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM words WHERE word = ?`, w).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			// AUTOINCREMENT never hands out an id again, even after deletes.
			res, err := tx.ExecContext(ctx, `INSERT INTO words (word) VALUES (?)`, w)
			if err != nil {
				return nil, fmt.Errorf("insert word %q: %w", w, err)
			}
			if id, err = res.LastInsertId(); err != nil {
				return nil, fmt.Errorf("word id for %q: %w", w, err)
			}
		} else if err != nil {
			return nil, fmt.Errorf("lookup word %q: %w", w, err)
		}
		out[w] = id
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) queryDocs(ctx context.Context, query string, args ...any) ([]schema.Recipe, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recipes: %w", err)
	}
	defer rows.Close()

	out := make([]schema.Recipe, 0)
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan recipe: %w", err)
		}
		var r schema.Recipe
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode recipe: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// orderBySlugs returns found reordered to follow slugs, skipping misses.
func orderBySlugs(found []schema.Recipe, slugs []string) []schema.Recipe {
	byKey := make(map[string]schema.Recipe, len(found))
	for _, r := range found {
		byKey[r.Key()] = r
	}
	out := make([]schema.Recipe, 0, len(slugs))
	for _, s := range slugs {
		if r, ok := byKey[s]; ok {
			out = append(out, r)
		}
	}
	return out
}
