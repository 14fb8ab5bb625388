package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/aqua777/codelens/schema"
)

// QdrantClient talks to a Qdrant server over gRPC.
type QdrantClient struct {
	client *qdrant.Client
}

// NewQdrantClient connects to the Qdrant server at rawURL
// (e.g. "http://localhost:6334" or "https://host:6334" for TLS).
func NewQdrantClient(rawURL string) (*QdrantClient, error) {
	host, port, useTLS, err := parseQdrantURL(rawURL)
	if err != nil {
		return nil, &schema.ConfigError{Key: "qdrant_url", Reason: err.Error()}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: err}
	}
	return &QdrantClient{client: client}, nil
}

func parseQdrantURL(rawURL string) (host string, port int, useTLS bool, err error) {
	if !strings.Contains(rawURL, "://") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", 0, false, err
	}
	host = u.Hostname()
	if host == "" {
		return "", 0, false, fmt.Errorf("missing host in %q", rawURL)
	}
	port = 6334
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, false, err
		}
	}
	return host, port, u.Scheme == "https", nil
}

func (c *QdrantClient) CreateCollection(ctx context.Context, name string, dim int) error {
	err := c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("create collection %s: %w", name, err)}
	}
	return nil
}

func (c *QdrantClient) CollectionExists(ctx context.Context, name string) (bool, error) {
	exists, err := c.client.CollectionExists(ctx, name)
	if err != nil {
		return false, &schema.BackendError{Backend: "vector_store", Err: err}
	}
	return exists, nil
}

func (c *QdrantClient) DeleteCollection(ctx context.Context, name string) error {
	if err := c.client.DeleteCollection(ctx, name); err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("delete collection %s: %w", name, err)}
	}
	return nil
}

func (c *QdrantClient) ListCollections(ctx context.Context) ([]string, error) {
	names, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: err}
	}
	return names, nil
}

func (c *QdrantClient) Count(ctx context.Context, name string) (int, error) {
	count, err := c.client.Count(ctx, &qdrant.CountPoints{CollectionName: name})
	if err != nil {
		return 0, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("count %s: %w", name, err)}
	}
	return int(count), nil
}

func (c *QdrantClient) Collection(name string) Store {
	return &qdrantStore{client: c.client, collection: name}
}

func (c *QdrantClient) Ping(ctx context.Context) error {
	if _, err := c.client.HealthCheck(ctx); err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: err}
	}
	return nil
}

func (c *QdrantClient) Close() error {
	return c.client.Close()
}

// qdrantStore is the per-collection handle.
type qdrantStore struct {
	client     *qdrant.Client
	collection string
}

// pointID derives a stable UUID for a node id; Qdrant point ids must be
// integers or UUIDs, so the original id travels in the payload.
func pointID(nodeID string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(nodeID)).String()
}

func (s *qdrantStore) Add(ctx context.Context, nodes []schema.Node) ([]string, error) {
	points := make([]*qdrant.PointStruct, 0, len(nodes))
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
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(node.ID)),
			Vectors: qdrant.NewVectors(vec...),
			Payload: qdrant.NewValueMap(map[string]any{
				"node_id":  node.ID,
				"doc_id":   node.DocID,
				"text":     node.Text,
				"hash":     node.Hash,
				"metadata": string(metaJSON),
			}),
		})
		ids = append(ids, node.ID)
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("upsert %s: %w", s.collection, err)}
	}
	return ids, nil
}

func (s *qdrantStore) Query(ctx context.Context, embedding []float64, topK int) ([]schema.NodeWithScore, error) {
	vec := make([]float32, len(embedding))
	for i, v := range embedding {
		vec[i] = float32(v)
	}

	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vec...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("query %s: %w", s.collection, err)}
	}

	results := make([]schema.NodeWithScore, 0, len(points))
	for _, p := range points {
		results = append(results, schema.NodeWithScore{
			Node:  nodeFromPayload(p.Payload),
			Score: float64(p.Score),
		})
	}
	return results, nil
}

func (s *qdrantStore) Get(ctx context.Context, nodeID string) (schema.Node, bool, error) {
	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.collection,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(nodeID))},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return schema.Node{}, false, &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("get %s: %w", s.collection, err)}
	}
	if len(points) == 0 {
		return schema.Node{}, false, nil
	}
	return nodeFromPayload(points[0].Payload), true, nil
}

func (s *qdrantStore) Delete(ctx context.Context, nodeID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: qdrant.NewPointsSelector(
			qdrant.NewIDUUID(pointID(nodeID)),
		),
	})
	if err != nil {
		return &schema.BackendError{Backend: "vector_store", Err: fmt.Errorf("delete point in %s: %w", s.collection, err)}
	}
	return nil
}

func nodeFromPayload(payload map[string]*qdrant.Value) schema.Node {
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	node := schema.Node{
		ID:    str("node_id"),
		DocID: str("doc_id"),
		Text:  str("text"),
		Hash:  str("hash"),
	}
	if raw := str("metadata"); raw != "" {
		var meta map[string]interface{}
		if err := json.Unmarshal([]byte(raw), &meta); err == nil {
			node.Metadata = meta
		}
	}
	return node
}

var (
	_ Client = (*QdrantClient)(nil)
	_ Store  = (*qdrantStore)(nil)
)
