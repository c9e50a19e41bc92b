// Package dependency wires pantrychef services using go.uber.org/dig.
package dependency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"google.golang.org/api/option"

	"github.com/crystaldolphin/pantrychef/internal/agent"
	"github.com/crystaldolphin/pantrychef/internal/auth"
	"github.com/crystaldolphin/pantrychef/internal/config"
	"github.com/crystaldolphin/pantrychef/internal/config/store"
	"github.com/crystaldolphin/pantrychef/internal/cron"
	"github.com/crystaldolphin/pantrychef/internal/providers"
	"github.com/crystaldolphin/pantrychef/internal/recipes"
	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/server"
	"github.com/crystaldolphin/pantrychef/internal/session"
	"github.com/crystaldolphin/pantrychef/internal/storage"
	"github.com/crystaldolphin/pantrychef/internal/vector"
)

// ReindexJob is the scheduler job name for the embedding refresh.
const ReindexJob = "reindex"

const connectTimeout = 5 * time.Second

// Backend is a recipe store that also hands out word ids.
type Backend interface {
	schema.RecipeStore
	schema.WordDictionary
	io.Closer
}

// Container holds the resolved service singletons.
// Callers use the typed getter methods; they never need to import dig directly.
type Container struct {
	cfg       *config.Config
	backend   Backend
	vectors   schema.VectorStore
	providers Providers
	factory   *agent.Factory
	scheduler *cron.Service
	sessions  *session.Manager
	counter   agent.TokenCounter
	server    *server.Server
}

func (c *Container) Config() *config.Config            { return c.cfg }
func (c *Container) Store() Backend                    { return c.backend }
func (c *Container) Dictionary() schema.WordDictionary { return c.backend }
func (c *Container) Providers() Providers              { return c.providers }
func (c *Container) Factory() *agent.Factory           { return c.factory }
func (c *Container) Scheduler() *cron.Service          { return c.scheduler }
func (c *Container) Sessions() *session.Manager        { return c.sessions }
func (c *Container) Server() *server.Server            { return c.server }
func (c *Container) TokenCounter() agent.TokenCounter  { return c.counter }
func (c *Container) VectorsEnabled() bool              { return c.vectors != nil }

// Providers is keyed by registry name. Unconfigured providers are absent.
type Providers map[string]schema.LLMProvider

// firebaseApp is nil when no Firebase project is configured.
type firebaseApp struct{ *firebase.App }

// New builds and wires every service from cfg. ctx bounds the startup
// connections only.
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	d := dig.New()

	constructors := []any{
		func() context.Context { return ctx },
		func() *config.Config { return cfg },
		newFirebaseApp,
		newBackend,
		newVectorStore,
		newVerifier,
		newProviders,
		newFactory,
		newScheduler,
		newSessionManager,
		newTokenCounter,
		newServer,
	}
	for _, c := range constructors {
		if err := d.Provide(c); err != nil {
			return nil, err
		}
	}

	var result *Container
	err := d.Invoke(func(
		backend Backend,
		vectors schema.VectorStore,
		ps Providers,
		factory *agent.Factory,
		scheduler *cron.Service,
		sessions *session.Manager,
		counter agent.TokenCounter,
		srv *server.Server,
	) {
		result = &Container{
			cfg:       cfg,
			backend:   backend,
			vectors:   vectors,
			providers: ps,
			factory:   factory,
			scheduler: scheduler,
			sessions:  sessions,
			counter:   counter,
			server:    srv,
		}
	})
	if err != nil {
		return nil, dig.RootCause(err)
	}
	return result, nil
}

// Close releases the store and vector connections.
func (c *Container) Close() error {
	var errs []error
	if c.backend != nil {
		errs = append(errs, c.backend.Close())
	}
	if closer, ok := c.vectors.(io.Closer); ok {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}

// Reindex embeds every stored recipe into the vector index.
func (c *Container) Reindex(ctx context.Context) (int, error) {
	return reindex(ctx, c.factory, c.vectors)
}

func reindex(ctx context.Context, factory *agent.Factory, vectors schema.VectorStore) (int, error) {
	idx := factory.Index()
	if idx == nil {
		return 0, errors.New("vector search is not configured: set vector.host and an embedding-capable provider")
	}
	if q, ok := vectors.(*vector.Qdrant); ok {
		if err := q.EnsureCollection(ctx); err != nil {
			return 0, err
		}
	}
	return idx.Reindex(ctx)
}

func newFirebaseApp(ctx context.Context, cfg *config.Config) (firebaseApp, error) {
	if !cfg.Firebase.Enabled() {
		return firebaseApp{}, nil
	}
	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.Firebase.ProjectID}, opts...)
	if err != nil {
		return firebaseApp{}, fmt.Errorf("init firebase app: %w", err)
	}
	return firebaseApp{app}, nil
}

func newBackend(ctx context.Context, cfg *config.Config, app firebaseApp) (Backend, error) {
	sc := cfg.Store
	switch sc.Driver {
	case "", store.DriverMemory:
		seed, err := loadSeed(sc.Seed)
		if err != nil {
			return nil, err
		}
		return storage.NewMemory(seed...), nil

	case store.DriverSQLite:
		return storage.NewSQLite(cfg.SQLitePath())

	case store.DriverRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     sc.Addr,
			Password: sc.Password,
			DB:       sc.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, fmt.Errorf("connect to redis at %s: %w", sc.Addr, err)
		}
		return storage.NewRedis(rdb), nil

	case store.DriverFirestore:
		if app.App == nil {
			return nil, errors.New("store driver firestore needs firebase.projectId")
		}
		client, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		return storage.NewFirestore(client, sc.Collection), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", sc.Driver)
}

func loadSeed(path string) ([]schema.Recipe, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read recipe seed: %w", err)
	}
	var out []schema.Recipe
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse recipe seed %s: %w", path, err)
	}
	slog.Info("seeded memory store", "path", path, "recipes", len(out))
	return out, nil
}

func newVectorStore(cfg *config.Config) (schema.VectorStore, error) {
	vc := cfg.Vector
	if !vc.Enabled() {
		return nil, nil
	}
	if vc.InProcess() {
		return vector.NewMemory(), nil
	}
	q, err := vector.NewQdrant(vector.QdrantOptions{
		Addr:       net.JoinHostPort(vc.Host, strconv.Itoa(vc.Port)),
		APIKey:     vc.APIKey,
		Collection: vc.Collection,
		Dimension:  vc.Dimension,
	})
	if err != nil {
		return nil, err
	}
	return q, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, app firebaseApp) (schema.AuthVerifier, error) {
	fc := cfg.Firebase
	if fc.AuthDisabled {
		return nil, nil
	}
	if app.App == nil {
		if len(fc.StaticTokens) == 0 {
			return nil, nil
		}
		tokens := make(map[string]schema.Identity, len(fc.StaticTokens))
		for tok, name := range fc.StaticTokens {
			tokens[tok] = schema.Identity{UID: tok, DisplayName: name}
		}
		return auth.NewStatic(tokens), nil
	}
	v, err := auth.NewFirebase(ctx, app.App)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func newProviders(cfg *config.Config) (Providers, error) {
	out := make(Providers)
	for _, spec := range providers.PROVIDERS {
		if !cfg.Configured(spec) {
			continue
		}
		p, err := providers.New(cfg.ProviderParams(spec))
		if err != nil {
			return nil, fmt.Errorf("create %s provider: %w", spec.Label(), err)
		}
		out[spec.Name] = p
	}
	return out, nil
}

func newFactory(cfg *config.Config, ps Providers, backend Backend, vectors schema.VectorStore, verifier schema.AuthVerifier) *agent.Factory {
	return agent.NewFactory(ps, backend, vectors, verifier, cfg.AgentSettings(), recipes.IndexOptions{
		TopK:        cfg.Vector.TopK,
		Concurrency: cfg.Indexer.Concurrency,
	})
}

// newScheduler registers the reindex job when a schedule is configured and
// an index can be built.
func newScheduler(cfg *config.Config, factory *agent.Factory, vectors schema.VectorStore) (*cron.Service, error) {
	svc := cron.NewService(cfg.JobsPath())
	if cfg.Indexer.Schedule == "" {
		return svc, nil
	}
	if factory.Index() == nil {
		slog.Warn("indexer.schedule is set but vector search is not configured; not scheduling reindex")
		return svc, nil
	}

	_, err := svc.AddJob(ReindexJob, cfg.Indexer.Schedule, cfg.Indexer.TZ, func(ctx context.Context) error {
		n, err := reindex(ctx, factory, vectors)
		if err != nil {
			return err
		}
		slog.Info("scheduled reindex complete", "recipes", n)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reindex: %w", err)
	}
	return svc, nil
}

func newSessionManager(cfg *config.Config) (*session.Manager, error) {
	return session.NewManager(cfg.SessionsDir())
}

// newTokenCounter returns nil when no token budget is configured, so the
// tiktoken encoding is only loaded when it is used.
func newTokenCounter(cfg *config.Config) agent.TokenCounter {
	if cfg.Agent.MaxContextTokens <= 0 {
		return nil
	}
	model := cfg.Agent.DefaultModel
	if id, err := schema.ParseModelID(model); err == nil {
		if spec := providers.FindByName(id.Provider); spec != nil {
			model = spec.WireModel(id.Model)
		}
	}
	count, err := agent.NewTiktokenCounter(model)
	if err != nil {
		slog.Warn("token budget disabled", "err", err)
		return nil
	}
	return count
}

func newServer(cfg *config.Config, factory *agent.Factory, backend Backend, counter agent.TokenCounter) *server.Server {
	return server.New(server.Options{
		Config:   cfg.Server,
		ChefName: cfg.Agent.ChefName,
		Factory:  factory,
		Store:    backend,
		Counter:  counter,
	})
}
