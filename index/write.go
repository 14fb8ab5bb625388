package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aqua777/codelens/graphstore"
	"github.com/aqua777/codelens/schema"
)

// Write embeds and upserts nodes into the collection. For graph and
// hybrid collections the extractor runs afterwards; extraction failures
// are logged, never fatal. Embedding parallelises up to the configured
// worker count; writes for a single node id serialize through the upsert.
func (s *Store) Write(ctx context.Context, name string, nodes []schema.Node) error {
	manifest, found, err := s.manifests.load(name)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("collection %s: %w", name, schema.ErrNotFound)
	}
	if len(nodes) == 0 {
		return nil
	}

	if err := s.embedNodes(ctx, nodes); err != nil {
		return err
	}

	store := s.vector.Collection(name)
	if _, err := store.Add(ctx, nodes); err != nil {
		return err
	}

	ing := s.cache.Ingestion(name)
	for _, n := range nodes {
		ing.PutHash(ctx, n.ID, n.Hash)
	}

	if manifest.Mode.HasGraph() {
		s.extractTriplets(ctx, name, nodes)
	}
	return nil
}

// embedNodes fills missing embeddings in place, num_workers at a time.
func (s *Store) embedNodes(ctx context.Context, nodes []schema.Node) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range nodes {
		if len(nodes[i].Embedding) > 0 {
			continue
		}
		i := i
		g.Go(func() error {
			vec, err := s.embed.EmbedText(ctx, nodes[i].Text)
			if err != nil {
				return err
			}
			nodes[i].Embedding = vec
			return nil
		})
	}
	return g.Wait()
}

// extractTriplets runs the schema-constrained extractor over the nodes
// and upserts what survives validation. Never fails the write.
func (s *Store) extractTriplets(ctx context.Context, name string, nodes []schema.Node) {
	store, err := s.graphs.Get(name)
	if err != nil {
		s.log.Warn("graph store unavailable", zap.String("collection", name), zap.Error(err))
		return
	}

	contentType := graphstore.ContentCode
	if len(nodes) > 0 {
		if src, _ := nodes[0].Metadata["source"].(string); src != "directory" && src != "" {
			contentType = graphstore.ContentBusiness
		}
	}
	extractor := graphstore.NewExtractor(s.extract, contentType,
		graphstore.WithExtractorLogger(s.log))

	for _, node := range nodes {
		triplets, err := extractor.Extract(ctx, node)
		if err != nil {
			s.log.Warn("triplet extraction failed",
				zap.String("collection", name), zap.String("node", node.ID), zap.Error(err))
			continue
		}
		if len(triplets) == 0 {
			continue
		}
		if err := store.UpsertTriplets(ctx, triplets); err != nil {
			s.log.Warn("triplet upsert failed",
				zap.String("collection", name), zap.Error(err))
		}
	}
}

// Refresh reconciles the collection against freshly loaded documents.
// Documents whose every chunk already exists with an identical hash are
// left untouched; new and changed documents are re-embedded and
// upserted. Documents absent from the input are never deleted.
func (s *Store) Refresh(ctx context.Context, name string, docs []schema.Document) (schema.RefreshResult, error) {
	if _, found, err := s.manifests.load(name); err != nil {
		return schema.RefreshResult{}, err
	} else if !found {
		return schema.RefreshResult{}, fmt.Errorf("collection %s: %w", name, schema.ErrNotFound)
	}

	store := s.vector.Collection(name)
	ing := s.cache.Ingestion(name)
	result := schema.RefreshResult{Total: len(docs)}

	var pending []schema.Node
	for _, doc := range docs {
		nodes := s.splitter.SplitDocuments([]schema.Document{doc})
		changed := false
		for _, n := range nodes {
			if hash, ok := ing.GetHash(ctx, n.ID); ok && hash == n.Hash {
				continue
			}
			stored, ok, err := store.Get(ctx, n.ID)
			if err != nil {
				return schema.RefreshResult{}, err
			}
			if ok && stored.Hash == n.Hash {
				ing.PutHash(ctx, n.ID, n.Hash)
				continue
			}
			changed = true
		}
		if changed {
			result.Refreshed++
			pending = append(pending, nodes...)
		} else {
			result.Unchanged++
		}
	}

	if len(pending) > 0 {
		if err := s.Write(ctx, name, pending); err != nil {
			return schema.RefreshResult{}, err
		}
	}
	return result, nil
}
