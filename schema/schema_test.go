package schema

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentHashStable(t *testing.T) {
	a := Document{ID: "a", Text: "def foo(): pass"}
	b := Document{ID: "b", Text: "def foo(): pass"}
	assert.Equal(t, a.Hash(), b.Hash())

	c := Document{ID: "a", Text: "def foo(): return 1"}
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestChunkNodeID(t *testing.T) {
	assert.Equal(t, "src/main.go-chunk-0", ChunkNodeID("src/main.go", 0))
	assert.Equal(t, "src/main.go-chunk-7", ChunkNodeID("src/main.go", 7))
}

func TestSortByScore(t *testing.T) {
	nodes := []NodeWithScore{
		{Node: Node{ID: "b"}, Score: 0.5},
		{Node: Node{ID: "a"}, Score: 0.5},
		{Node: Node{ID: "c"}, Score: 0.9},
	}
	SortByScore(nodes)

	require.Len(t, nodes, 3)
	assert.Equal(t, "c", nodes[0].Node.ID)
	// Equal scores fall back to lexicographic node id.
	assert.Equal(t, "a", nodes[1].Node.ID)
	assert.Equal(t, "b", nodes[2].Node.ID)
}

func TestQueryFingerprintDeterministic(t *testing.T) {
	fp1 := QueryFingerprint("how does auth work", 5, "myproject")
	fp2 := QueryFingerprint("how does auth work", 5, "myproject")
	assert.Equal(t, fp1, fp2)

	assert.NotEqual(t, fp1, QueryFingerprint("how does auth work", 3, "myproject"))
	assert.NotEqual(t, fp1, QueryFingerprint("how does auth work", 5, "other"))
}

func TestIndexMode(t *testing.T) {
	assert.True(t, ModeVector.Valid())
	assert.True(t, ModeAuto.Valid())
	assert.False(t, IndexMode("tree").Valid())

	assert.False(t, ModeVector.HasGraph())
	assert.True(t, ModeGraph.HasGraph())
	assert.True(t, ModeHybrid.HasGraph())
}

func TestCollectionNames(t *testing.T) {
	assert.Equal(t, "docs_react", DocsCollection("react"))
	assert.Equal(t, "kg_demo", GraphCollection("demo"))
}

func TestNewCitation(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "0123456789"
	}
	c := NewCitation(1, NodeWithScore{
		Node:  Node{ID: "n1", DocID: "a.py", Text: long, Metadata: map[string]interface{}{"file_name": "a.py"}},
		Score: 0.83,
	})
	assert.Equal(t, 1, c.Rank)
	assert.Equal(t, "a.py", c.File)
	assert.Equal(t, 0.83, c.Score)
	assert.LessOrEqual(t, len(c.Preview), CitationPreviewLen+3)
}

func TestErrorKinds(t *testing.T) {
	wrapped := fmt.Errorf("open collection: %w", ErrNotFound)
	assert.True(t, errors.Is(wrapped, ErrNotFound))

	be := &BackendError{Backend: "qdrant", Retries: 2, Err: errors.New("dial tcp")}
	assert.Contains(t, be.Error(), "after 2 retries")

	var target *BackendError
	assert.True(t, errors.As(fmt.Errorf("write: %w", be), &target))
}

func TestNotIndexedMessage(t *testing.T) {
	assert.Equal(t, "Error: Project 'demo' not indexed", NotIndexedMessage("demo"))
}
