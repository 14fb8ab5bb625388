package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/aqua777/codelens/schema"
)

// ChromemClient is an embedded vector backend built on chromem-go. With a
// persist path it survives restarts; without one it is memory-only. It
// needs no running service, which makes it the offline and test backend.
type ChromemClient struct {
	mu sync.Mutex
	db *chromem.DB
}

// NewChromemClient creates a client. persistPath may be empty for a
// memory-only store.
func NewChromemClient(persistPath string) (*ChromemClient, error) {
	var db *chromem.DB
	if persistPath != "" {
		var err error
		db, err = chromem.NewPersistentDB(persistPath, false)
		if err != nil {
			return nil, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("open chromem db: %w", err)}
		}
	} else {
		db = chromem.NewDB()
	}
	return &ChromemClient{db: db}, nil
}

// CreateCollection creates the collection. chromem does not pin vector
// width; the dimension lives in the collection manifest instead.
func (c *ChromemClient) CreateCollection(ctx context.Context, name string, dim int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.GetOrCreateCollection(name, nil, nil)
	if err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("create collection %s: %w", name, err)}
	}
	return nil
}

func (c *ChromemClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.GetCollection(name, nil) != nil, nil
}

func (c *ChromemClient) DeleteCollection(ctx context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.db.DeleteCollection(name); err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("delete collection %s: %w", name, err)}
	}
	return nil
}

func (c *ChromemClient) ListCollections(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cols := c.db.ListCollections()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	return names, nil
}

func (c *ChromemClient) Count(ctx context.Context, name string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col := c.db.GetCollection(name, nil)
	if col == nil {
		return 0, schema.ErrNotFound
	}
	return col.Count(), nil
}

func (c *ChromemClient) Collection(name string) Store {
	return &chromemStore{client: c, name: name}
}

// Ping always succeeds; the store is in-process.
func (c *ChromemClient) Ping(ctx context.Context) error { return nil }

func (c *ChromemClient) Close() error { return nil }

type chromemStore struct {
	client *ChromemClient
	name   string
}

func (s *chromemStore) collection() (*chromem.Collection, error) {
	s.client.mu.Lock()
	defer s.client.mu.Unlock()
	col, err := s.client.db.GetOrCreateCollection(s.name, nil, nil)
	if err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: err}
	}
	return col, nil
}

func (s *chromemStore) Add(ctx context.Context, nodes []schema.Node) ([]string, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}

	docs := make([]chromem.Document, 0, len(nodes))
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		if len(node.Embedding) == 0 {
			return nil, fmt.Errorf("node %s has no embedding", node.ID)
		}
		vec := make([]float32, len(node.Embedding))
		for i, v := range node.Embedding {
			vec[i] = float32(v)
		}
		metaJSON, err := json.Marshal(node.Metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata for node %s: %w", node.ID, err)
		}
		docs = append(docs, chromem.Document{
			ID:      node.ID,
			Content: node.Text,
			Metadata: map[string]string{
				"doc_id":   node.DocID,
				"hash":     node.Hash,
				"metadata": string(metaJSON),
			},
			Embedding: vec,
		})
		ids = append(ids, node.ID)
	}

	if err := col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("add documents to %s: %w", s.name, err)}
	}
	return ids, nil
}

func (s *chromemStore) Query(ctx context.Context, embedding []float64, topK int) ([]schema.NodeWithScore, error) {
	col, err := s.collection()
	if err != nil {
		return nil, err
	}
	// chromem rejects nResults above the point count.
	if n := col.Count(); topK > n {
		topK = n
	}
	if topK == 0 {
		return nil, nil
	}

	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}
	res, err := col.QueryEmbedding(ctx, vec, topK, nil, nil)
	if err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("query %s: %w", s.name, err)}
	}

	results := make([]schema.NodeWithScore, 0, len(res))
	for _, r := range res {
		results = append(results, schema.NodeWithScore{
			Node:  nodeFromChromem(r.ID, r.Content, r.Metadata),
			Score: float64(r.Similarity),
		})
	}
	return results, nil
}

func (s *chromemStore) Get(ctx context.Context, nodeID string) (schema.Node, bool, error) {
	col, err := s.collection()
	if err != nil {
		return schema.Node{}, false, err
	}
	doc, err := col.GetByID(ctx, nodeID)
	if err != nil {
		return schema.Node{}, false, nil // chromem reports absence as an error
	}
	return nodeFromChromem(doc.ID, doc.Content, doc.Metadata), true, nil
}

func (s *chromemStore) Delete(ctx context.Context, nodeID string) error {
	col, err := s.collection()
	if err != nil {
		return err
	}
	if err := col.Delete(ctx, nil, nil, nodeID); err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("delete from %s: %w", s.name, err)}
	}
	return nil
}

func nodeFromChromem(id, content string, meta map[string]string) schema.Node {
	node := schema.Node{
		ID:    id,
		DocID: meta["doc_id"],
		Text:  content,
		Hash:  meta["hash"],
	}
	if raw := meta["metadata"]; raw != "" {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			node.Metadata = m
		}
	}
	return node
}

var (
	_ Client = (*ChromemClient)(nil)
	_ Store  = (*chromemStore)(nil)
)
