// Package vectorstore provides the vector backends behind collections.
// Qdrant is the production backend; chromem backs offline and test use.
package vectorstore

import (
	"context"

	"github.com/aqua777/codelens/schema"
)

// Store is a read/write handle on one collection.
type Store interface {
	// Add upserts nodes; nodes must carry embeddings. Idempotent by id.
	Add(ctx context.Context, nodes []schema.Node) ([]string, error)
	// Query returns the topK most similar nodes to the embedding.
	Query(ctx context.Context, embedding []float64, topK int) ([]schema.NodeWithScore, error)
	// Get fetches one node by id; the bool reports presence.
	Get(ctx context.Context, nodeID string) (schema.Node, bool, error)
	// Delete removes one node by id. Deleting an absent id is a no-op.
	Delete(ctx context.Context, nodeID string) error
}

// Client manages collections on one vector backend. Collection creation
// serializes through the backend; reads are safe for concurrent use.
type Client interface {
	CreateCollection(ctx context.Context, name string, dim int) error
	CollectionExists(ctx context.Context, name string) (bool, error)
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context) ([]string, error)
	// Count returns the number of points in the collection.
	Count(ctx context.Context, name string) (int, error)
	// Collection returns a handle; the collection need not exist yet.
	Collection(name string) Store
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}
