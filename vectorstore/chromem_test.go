package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/schema"
)

func testNode(id, docID, text string, vec []float64) schema.Node {
	n := schema.Node{ID: id, DocID: docID, Text: text, Embedding: vec,
		Metadata: map[string]interface{}{"file_name": docID}}
	n.GenerateHash()
	return n
}

func TestChromemCollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	client, err := NewChromemClient("")
	require.NoError(t, err)

	exists, err := client.CollectionExists(ctx, "proj")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, client.CreateCollection(ctx, "proj", 3))
	exists, err = client.CollectionExists(ctx, "proj")
	require.NoError(t, err)
	assert.True(t, exists)

	names, err := client.ListCollections(ctx)
	require.NoError(t, err)
	assert.Contains(t, names, "proj")

	require.NoError(t, client.DeleteCollection(ctx, "proj"))
	exists, err = client.CollectionExists(ctx, "proj")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestChromemAddQueryGet(t *testing.T) {
	ctx := context.Background()
	client, err := NewChromemClient("")
	require.NoError(t, err)
	require.NoError(t, client.CreateCollection(ctx, "proj", 3))

	store := client.Collection("proj")
	ids, err := store.Add(ctx, []schema.Node{
		testNode("a.py-chunk-0", "a.py", "def auth(): pass", []float64{1, 0, 0}),
		testNode("b.py-chunk-0", "b.py", "def billing(): pass", []float64{0, 1, 0}),
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	count, err := client.Count(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	results, err := store.Query(ctx, []float64{0.9, 0.1, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.py-chunk-0", results[0].Node.ID)
	assert.Equal(t, "a.py", results[0].Node.DocID)
	assert.Equal(t, "a.py", results[0].Node.Metadata["file_name"])
	assert.Greater(t, results[0].Score, 0.0)

	node, ok, err := store.Get(ctx, "b.py-chunk-0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "def billing(): pass", node.Text)
	assert.NotEmpty(t, node.Hash)

	_, ok, err = store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestChromemUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	client, err := NewChromemClient("")
	require.NoError(t, err)
	store := client.Collection("proj")

	n := testNode("a-chunk-0", "a", "v1", []float64{1, 0})
	_, err = store.Add(ctx, []schema.Node{n})
	require.NoError(t, err)

	n.Text = "v2"
	n.GenerateHash()
	_, err = store.Add(ctx, []schema.Node{n})
	require.NoError(t, err)

	count, err := client.Count(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	node, ok, err := store.Get(ctx, "a-chunk-0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v2", node.Text)
}

func TestChromemQueryClampsTopK(t *testing.T) {
	ctx := context.Background()
	client, err := NewChromemClient("")
	require.NoError(t, err)
	store := client.Collection("proj")

	_, err = store.Add(ctx, []schema.Node{testNode("only", "d", "text", []float64{1, 1})})
	require.NoError(t, err)

	results, err := store.Query(ctx, []float64{1, 1}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)

	empty := client.Collection("empty")
	results, err = empty.Query(ctx, []float64{1, 1}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	client, err := NewChromemClient(dir)
	require.NoError(t, err)
	_, err = client.Collection("proj").Add(ctx, []schema.Node{
		testNode("a-chunk-0", "a", "persisted text", []float64{0.1, 0.2, 0.3}),
	})
	require.NoError(t, err)

	reopened, err := NewChromemClient(dir)
	require.NoError(t, err)
	results, err := reopened.Collection("proj").Query(ctx, []float64{0.1, 0.2, 0.3}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "persisted text", results[0].Node.Text)
}

func TestChromemDeletePoint(t *testing.T) {
	ctx := context.Background()
	client, err := NewChromemClient("")
	require.NoError(t, err)
	store := client.Collection("proj")

	_, err = store.Add(ctx, []schema.Node{testNode("a", "a", "x", []float64{1, 0})})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "a"))

	count, err := client.Count(ctx, "proj")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestParseQdrantURL(t *testing.T) {
	host, port, tls, err := parseQdrantURL("http://localhost:6334")
	require.NoError(t, err)
	assert.Equal(t, "localhost", host)
	assert.Equal(t, 6334, port)
	assert.False(t, tls)

	host, port, tls, err = parseQdrantURL("https://qdrant.internal")
	require.NoError(t, err)
	assert.Equal(t, "qdrant.internal", host)
	assert.Equal(t, 6334, port)
	assert.True(t, tls)

	host, port, _, err = parseQdrantURL("10.0.0.5:6335")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5", host)
	assert.Equal(t, 6335, port)

	_, _, _, err = parseQdrantURL("http://")
	assert.Error(t, err)
}
