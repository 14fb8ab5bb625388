// Package resource owns the process-wide backends: one vector client,
// one embedder, the LLMs, one cache, the prompt library, and the config
// snapshot. Everything else borrows from here; nothing instantiates a
// backend directly.
package resource

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/graphstore"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/prompts"
	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/vectorstore"
)

// Registry is the shared resource container. Accessors return the same
// instance for the process lifetime; after Close they fail with
// ErrShutdown.
type Registry struct {
	cfg     *config.Config
	log     *zap.Logger
	vector  vectorstore.Client
	embed   embedding.Model
	models  map[llm.Kind]llm.Model
	cache   *cache.Cache
	prompts *prompts.Library
	graphs  *graphstore.Manager

	mu     sync.Mutex
	closed bool
}

// Option overrides a backend, mainly for tests and offline mode.
type Option func(*Registry)

// WithVectorClient injects a vector client instead of dialing Qdrant.
func WithVectorClient(client vectorstore.Client) Option {
	return func(r *Registry) { r.vector = client }
}

// WithEmbedder injects an embedding model.
func WithEmbedder(m embedding.Model) Option {
	return func(r *Registry) { r.embed = m }
}

// WithModel injects one LLM kind.
func WithModel(kind llm.Kind, m llm.Model) Option {
	return func(r *Registry) { r.models[kind] = m }
}

// WithCache injects the cache.
func WithCache(c *cache.Cache) Option {
	return func(r *Registry) { r.cache = c }
}

// WithLogger sets the registry logger.
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// NewRegistry builds every backend from the config. Construction order:
// vector client, embedder, LLMs, cache, prompts, graph manager.
func NewRegistry(ctx context.Context, cfg *config.Config, opts ...Option) (*Registry, error) {
	r := &Registry{
		cfg:    cfg,
		log:    zap.NewNop(),
		models: make(map[llm.Kind]llm.Model),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.vector == nil {
		client, err := vectorstore.NewQdrantClient(cfg.QdrantURL)
		if err != nil {
			return nil, err
		}
		r.vector = client
	}

	if r.embed == nil {
		switch cfg.EmbedProvider {
		case config.ProviderOllama:
			r.embed = embedding.NewOllamaEmbedding(cfg.OllamaBaseURL, cfg.OllamaEmbedModel, 0)
		default:
			r.embed = embedding.NewOpenAIEmbedding(cfg.OpenAIAPIKey, "", cfg.OpenAIEmbedModel)
		}
	}

	for kind, name := range map[llm.Kind]string{
		llm.KindFast:       cfg.FastModel,
		llm.KindComplex:    cfg.ComplexModel,
		llm.KindComplexAlt: cfg.ComplexAltModel,
	} {
		if _, ok := r.models[kind]; ok {
			continue
		}
		model, err := buildModel(cfg, name)
		if err != nil {
			return nil, err
		}
		r.models[kind] = llm.WithTimeout(model, kind.Timeout())
	}

	if r.cache == nil {
		if cfg.RedisEnabled {
			r.cache = cache.New(ctx, cfg.RedisAddr(),
				cache.WithTTL(cfg.CacheTTL()),
				cache.WithLogger(r.log))
		} else {
			r.cache = cache.Disabled()
		}
	}

	if r.prompts == nil {
		r.prompts = prompts.NewLibrary()
	}
	r.graphs = graphstore.NewManager(cfg.GraphPersistDir())
	return r, nil
}

func buildModel(cfg *config.Config, name string) (llm.Model, error) {
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		return llm.NewOllamaModel(cfg.OllamaBaseURL, name), nil
	case config.ProviderElectronHub:
		return llm.NewOpenAIModel(cfg.ElectronHubAPIKey, cfg.ElectronHubBaseURL, name), nil
	default:
		return llm.NewOpenAIModel(cfg.OpenAIAPIKey, "", name), nil
	}
}

func (r *Registry) guard() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return schema.ErrShutdown
	}
	return nil
}

// Config returns the immutable configuration snapshot.
func (r *Registry) Config() *config.Config { return r.cfg }

// Logger returns the shared logger.
func (r *Registry) Logger() *zap.Logger { return r.log }

// VectorClient returns the shared vector store client.
func (r *Registry) VectorClient() (vectorstore.Client, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	return r.vector, nil
}

// Embedder returns the shared embedding model.
func (r *Registry) Embedder() (embedding.Model, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	return r.embed, nil
}

// LLM returns the model for the kind. Unknown kinds get the fast model.
func (r *Registry) LLM(kind llm.Kind) (llm.Model, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	if m, ok := r.models[kind]; ok {
		return m, nil
	}
	return r.models[llm.KindFast], nil
}

// SmartLLM classifies the task description by keywords and returns the
// fast or complex model accordingly.
func (r *Registry) SmartLLM(task string) (llm.Model, error) {
	return r.LLM(ClassifyTask(task))
}

// Cache returns the shared cache.
func (r *Registry) Cache() (*cache.Cache, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	return r.cache, nil
}

// Prompts returns the shared prompt library.
func (r *Registry) Prompts() (*prompts.Library, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	return r.prompts, nil
}

// Graphs returns the shared graph-store manager.
func (r *Registry) Graphs() (*graphstore.Manager, error) {
	if err := r.guard(); err != nil {
		return nil, err
	}
	return r.graphs, nil
}

// Close tears the backends down. Idempotent; accessors fail afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	var firstErr error
	if err := r.cache.Close(); err != nil {
		firstErr = err
	}
	if err := r.vector.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// complexKeywords route a task to the complex model.
var complexKeywords = []string{
	"analyze", "reasoning", "planning", "workflow", "business logic",
	"architecture", "design patterns", "violations", "entity extraction",
	"relationships", "graph", "property graph", "code analysis",
}

// fastKeywords route a task to the fast model and win on conflict.
var fastKeywords = []string{
	"search", "find", "get", "list", "health", "status", "exists",
	"simple", "basic", "quick", "fast", "documentation", "function signatures",
}

// ClassifyTask picks the LLM kind for a task description. Fast keywords
// win over complex ones; with no match the fast model is used.
func ClassifyTask(task string) llm.Kind {
	lower := strings.ToLower(task)
	for _, kw := range fastKeywords {
		if strings.Contains(lower, kw) {
			return llm.KindFast
		}
	}
	for _, kw := range complexKeywords {
		if strings.Contains(lower, kw) {
			return llm.KindComplex
		}
	}
	return llm.KindFast
}
