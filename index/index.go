// Package index implements the collection store: create, write, open,
// refresh, delete and stats over the shared vector client, with graph
// extraction for graph and hybrid collections.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/graphstore"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/splitter"
	"github.com/aqua777/codelens/vectorstore"
)

// Store creates and maintains collections. One Store serves the whole
// process; it borrows every backend from the resource registry.
type Store struct {
	vector    vectorstore.Client
	embed     embedding.Model
	graphs    *graphstore.Manager
	extract   llm.Model
	cache     *cache.Cache
	splitter  *splitter.DocumentSplitter
	manifests *manifestStore
	workers   int
	log       *zap.Logger
}

// NewStore wires a Store from the registry.
func NewStore(reg *resource.Registry) (*Store, error) {
	vector, err := reg.VectorClient()
	if err != nil {
		return nil, err
	}
	embed, err := reg.Embedder()
	if err != nil {
		return nil, err
	}
	graphs, err := reg.Graphs()
	if err != nil {
		return nil, err
	}
	extract, err := reg.LLM(llm.KindComplex)
	if err != nil {
		return nil, err
	}
	c, err := reg.Cache()
	if err != nil {
		return nil, err
	}

	cfg := reg.Config()
	return &Store{
		vector:    vector,
		embed:     embed,
		graphs:    graphs,
		extract:   extract,
		cache:     c,
		splitter:  splitter.NewDocumentSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		manifests: &manifestStore{dir: cfg.ManifestDir()},
		workers:   cfg.NumWorkers,
		log:       reg.Logger(),
	}, nil
}

// Handle is a read view on one collection.
type Handle struct {
	Manifest schema.CollectionManifest
	store    vectorstore.Store
	embed    embedding.Model
}

// Query embeds the query text and returns the topK nodes, ordered by
// descending score with ties broken by ascending node id.
func (h *Handle) Query(ctx context.Context, query string, topK int) ([]schema.NodeWithScore, error) {
	vec, err := h.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := h.store.Query(ctx, vec, topK)
	if err != nil {
		return nil, err
	}
	schema.SortByScore(results)
	return results, nil
}

// Create makes the collection in the requested mode and persists its
// manifest. Re-creating with the same mode is a no-op; a different mode
// fails with ErrConflict. Auto resolves to graph for a new collection and
// vector for an existing one without a graph store; the resolved mode is
// what gets persisted.
func (s *Store) Create(ctx context.Context, name string, mode schema.IndexMode) (schema.CollectionManifest, error) {
	if !mode.Valid() {
		return schema.CollectionManifest{}, &schema.ConfigError{Key: "index_mode", Reason: fmt.Sprintf("unknown mode %q", mode)}
	}

	existing, found, err := s.manifests.load(name)
	if err != nil {
		return schema.CollectionManifest{}, err
	}
	if found {
		if mode != schema.ModeAuto && mode != existing.Mode {
			return schema.CollectionManifest{}, fmt.Errorf(
				"collection %s is %s, requested %s: %w", name, existing.Mode, mode, schema.ErrConflict)
		}
		return existing, nil
	}

	if mode == schema.ModeAuto {
		mode = s.resolveAuto(ctx, name)
	}

	exists, err := s.vector.CollectionExists(ctx, name)
	if err != nil {
		return schema.CollectionManifest{}, err
	}
	if !exists {
		if err := s.vector.CreateCollection(ctx, name, s.embed.Dimensions()); err != nil {
			return schema.CollectionManifest{}, err
		}
	}
	if mode.HasGraph() {
		if _, err := s.graphs.Get(name); err != nil {
			return schema.CollectionManifest{}, err
		}
	}

	manifest := newManifest(name, mode, s.embed.Dimensions())
	if err := s.manifests.save(manifest); err != nil {
		return schema.CollectionManifest{}, err
	}
	s.log.Info("created collection",
		zap.String("collection", name), zap.String("mode", string(mode)))
	return manifest, nil
}

// resolveAuto picks graph for brand-new collections, vector for existing
// ones that never had a graph store.
func (s *Store) resolveAuto(ctx context.Context, name string) schema.IndexMode {
	exists, err := s.vector.CollectionExists(ctx, name)
	if err == nil && exists && !s.graphs.Has(name) {
		return schema.ModeVector
	}
	return schema.ModeGraph
}

// Open returns a read handle, or ErrNotFound when the collection has no
// manifest.
func (s *Store) Open(ctx context.Context, name string) (*Handle, error) {
	manifest, found, err := s.manifests.load(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("collection %s: %w", name, schema.ErrNotFound)
	}
	return &Handle{
		Manifest: manifest,
		store:    s.vector.Collection(name),
		embed:    s.embed,
	}, nil
}

// Exists reports whether the collection has been created.
func (s *Store) Exists(ctx context.Context, name string) bool {
	_, found, err := s.manifests.load(name)
	return err == nil && found
}

// List returns all collection names with manifests, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return s.manifests.list()
}

// Delete removes the collection's points, triplets, manifest and cache
// namespace. Deleting an absent collection is a no-op.
func (s *Store) Delete(ctx context.Context, name string) error {
	exists, err := s.vector.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		if err := s.vector.DeleteCollection(ctx, name); err != nil {
			return err
		}
	}
	if err := s.graphs.Drop(name); err != nil {
		return err
	}
	if err := s.cache.ClearNamespace(ctx, name); err != nil {
		s.log.Warn("failed to clear cache namespace", zap.String("collection", name), zap.Error(err))
	}
	return s.manifests.remove(name)
}

// Stats returns the collection's mode, vector width and point count.
func (s *Store) Stats(ctx context.Context, name string) (schema.CollectionStats, error) {
	manifest, found, err := s.manifests.load(name)
	if err != nil {
		return schema.CollectionStats{}, err
	}
	if !found {
		return schema.CollectionStats{}, fmt.Errorf("collection %s: %w", name, schema.ErrNotFound)
	}
	count, err := s.vector.Count(ctx, name)
	if err != nil {
		return schema.CollectionStats{}, err
	}
	return schema.CollectionStats{
		Name:       manifest.Name,
		Mode:       manifest.Mode,
		VectorDim:  manifest.VectorDim,
		PointCount: count,
	}, nil
}

// Graph returns the graph store behind a graph or hybrid collection.
func (s *Store) Graph(name string) (*graphstore.SimpleStore, error) {
	manifest, found, err := s.manifests.load(name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("collection %s: %w", name, schema.ErrNotFound)
	}
	if !manifest.Mode.HasGraph() {
		return nil, fmt.Errorf("collection %s has no graph store: %w", name, schema.ErrNotFound)
	}
	return s.graphs.Get(name)
}
