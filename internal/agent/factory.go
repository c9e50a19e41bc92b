package agent

import (
	"context"
	"fmt"

	"github.com/crystaldolphin/pantrychef/internal/recipes"
	"github.com/crystaldolphin/pantrychef/internal/schema"
	"github.com/crystaldolphin/pantrychef/internal/tools"
)

// ChefOptions selects and seeds one Chef.
type ChefOptions struct {
	Name           string
	SpecifiedModel string // "<provider>-<model>", e.g. "gpt-4o-mini"
	History        []schema.Message

	// Identity, when set, is used instead of verifying a token on the
	// first turn.
	Identity *schema.Identity
}

// Factory creates per-request Chefs. It holds the adapters and stores built
// at startup; created Chefs own only their conversation.
type Factory struct {
	providers map[string]schema.LLMProvider
	store     schema.RecipeStore
	vectors   schema.VectorStore // nil when no vector index is configured
	verifier  schema.AuthVerifier
	settings  schema.AgentSettings
	prompts   *Prompts
	indexOpts recipes.IndexOptions
}

// NewFactory constructs a Factory. providers is keyed by registry name
// ("gpt", "google", "ollama"); providers that are not configured are simply
// absent. vectors and verifier may be nil.
func NewFactory(
	providers map[string]schema.LLMProvider,
	store schema.RecipeStore,
	vectors schema.VectorStore,
	verifier schema.AuthVerifier,
	settings schema.AgentSettings,
	indexOpts recipes.IndexOptions,
) *Factory {
	return &Factory{
		providers: providers,
		store:     store,
		vectors:   vectors,
		verifier:  verifier,
		settings:  settings,
		prompts:   DefaultPrompts(),
		indexOpts: indexOpts,
	}
}

// Settings returns the settings every Chef is built with.
func (f *Factory) Settings() schema.AgentSettings { return f.settings }

// Provider returns the adapter for a parsed model id.
func (f *Factory) Provider(id schema.ModelID) (schema.LLMProvider, error) {
	p, ok := f.providers[id.Provider]
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", schema.ErrProviderNotConfigured, id.Provider)
	}
	return p, nil
}

// GetChef parses opts.SpecifiedModel and returns a fresh Chef over that
// provider.
func (f *Factory) GetChef(opts ChefOptions) (*Chef, error) {
	id, err := schema.ParseModelID(opts.SpecifiedModel)
	if err != nil {
		return nil, err
	}
	provider, err := f.Provider(id)
	if err != nil {
		return nil, err
	}

	tls := tools.NewRegistryBuilder().
		WithTool(tools.NewFindRecipesTool(f.store, f.searcher(provider))).
		WithTool(tools.NewDisplayRecipesTool()).
		Build().
		AllTools()

	chef, err := NewChef(opts.Name, id, provider, f.settings, tls, f.verifier, f.prompts, opts.History)
	if err != nil {
		return nil, err
	}
	if opts.Identity != nil {
		chef.setIdentity(*opts.Identity)
	}
	return chef, nil
}

// Identify verifies token once for callers that build several Chefs for the
// same user. Rejected tokens give the anonymous identity.
func (f *Factory) Identify(ctx context.Context, token string) schema.Identity {
	return identify(ctx, f.verifier, token)
}

// Searcher returns the vector searcher for the provider named by
// specifiedModel, or nil when that provider cannot embed or no vector index
// is configured. An empty specifiedModel means no searcher.
func (f *Factory) Searcher(specifiedModel string) (tools.RecipeSearcher, error) {
	if specifiedModel == "" {
		return nil, nil
	}
	id, err := schema.ParseModelID(specifiedModel)
	if err != nil {
		return nil, err
	}
	provider, err := f.Provider(id)
	if err != nil {
		return nil, err
	}
	return f.searcher(provider), nil
}

// Index returns the embedding index over the first embedding-capable
// provider, or nil.
func (f *Factory) Index() *recipes.Index {
	if f.vectors == nil {
		return nil
	}
	for _, name := range []string{schema.ProviderGPT, schema.ProviderGoogle, schema.ProviderOllama} {
		if e, ok := f.providers[name].(schema.Embedder); ok {
			return recipes.NewIndex(e, f.vectors, f.store, f.indexOpts)
		}
	}
	return nil
}

func (f *Factory) searcher(provider schema.LLMProvider) tools.RecipeSearcher {
	if f.vectors == nil {
		return nil
	}
	e, ok := provider.(schema.Embedder)
	if !ok {
		return nil
	}
	return recipes.NewIndex(e, f.vectors, f.store, f.indexOpts)
}
