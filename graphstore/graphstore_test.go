package graphstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/schema"
)

func codeTriplet(subj, rel, obj string) Triplet {
	return Triplet{
		Subject: subj, SubjectType: "Class",
		Relation: rel,
		Object:   obj, ObjectType: "Class",
	}
}

func TestSchemaValidation(t *testing.T) {
	code := SchemaFor(ContentCode)
	assert.True(t, code.Valid(codeTriplet("AuthService", "calls", "TokenStore")))
	assert.False(t, code.Valid(Triplet{
		Subject: "A", SubjectType: "Wizard", Relation: "calls",
		Object: "B", ObjectType: "Class",
	}))
	assert.False(t, code.Valid(Triplet{
		Subject: "A", SubjectType: "Class", Relation: "summons",
		Object: "B", ObjectType: "Class",
	}))

	business := SchemaFor(ContentBusiness)
	assert.True(t, business.Valid(Triplet{
		Subject: "Checkout", SubjectType: "Process", Relation: "requires",
		Object: "Payment", ObjectType: "Entity",
	}))
	// code relation not in business schema
	assert.False(t, business.Valid(Triplet{
		Subject: "Checkout", SubjectType: "Process", Relation: "extends",
		Object: "Payment", ObjectType: "Entity",
	}))
}

func TestSimpleStoreUpsertDedup(t *testing.T) {
	ctx := context.Background()
	store, err := NewSimpleStore()
	require.NoError(t, err)

	tr := codeTriplet("A", "calls", "B")
	require.NoError(t, store.UpsertTriplets(ctx, []Triplet{tr, tr}))
	require.NoError(t, store.UpsertTriplets(ctx, []Triplet{tr}))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.Get(ctx, "A")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "(A, calls, B)", got[0].String())
}

func TestSimpleStoreDelete(t *testing.T) {
	ctx := context.Background()
	store, err := NewSimpleStore()
	require.NoError(t, err)

	require.NoError(t, store.UpsertTriplets(ctx, []Triplet{
		codeTriplet("A", "calls", "B"),
		codeTriplet("A", "uses", "C"),
	}))
	require.NoError(t, store.Delete(ctx, "A", "calls", "B"))
	require.NoError(t, store.Delete(ctx, "A", "calls", "B")) // idempotent

	got, err := store.Get(ctx, "A")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "uses", got[0].Relation)
}

func TestSimpleStorePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kg_proj.json")

	store, err := NewSimpleStore(WithPersistPath(path))
	require.NoError(t, err)
	require.NoError(t, store.UpsertTriplets(ctx, []Triplet{codeTriplet("A", "calls", "B")}))

	reloaded, err := NewSimpleStore(WithPersistPath(path))
	require.NoError(t, err)
	count, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestManagerGetOrCreate(t *testing.T) {
	m := NewManager("")
	a, err := m.Get("kg_proj")
	require.NoError(t, err)
	b, err := m.Get("kg_proj")
	require.NoError(t, err)
	assert.Same(t, a, b)
	assert.True(t, m.Has("kg_proj"))
	assert.False(t, m.Has("kg_other"))
	assert.Equal(t, []string{"kg_proj"}, m.Collections())

	require.NoError(t, m.Drop("kg_proj"))
	require.NoError(t, m.Drop("kg_proj"))
	assert.False(t, m.Has("kg_proj"))
}

func TestManagerPersistedHas(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	m := NewManager(dir)
	store, err := m.Get("kg_proj")
	require.NoError(t, err)
	require.NoError(t, store.UpsertTriplets(ctx, []Triplet{codeTriplet("A", "calls", "B")}))

	// A fresh manager over the same dir sees the persisted graph.
	m2 := NewManager(dir)
	assert.True(t, m2.Has("kg_proj"))
	reloaded, err := m2.Get("kg_proj")
	require.NoError(t, err)
	count, err := reloaded.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExtractorDropsOffSchema(t *testing.T) {
	model := llm.NewMockModel(`[
		{"subject":"AuthService","subject_type":"Class","relation":"calls","object":"TokenStore","object_type":"Class"},
		{"subject":"AuthService","subject_type":"Class","relation":"summons","object":"Demon","object_type":"Class"},
		{"subject":"X","subject_type":"Ghost","relation":"calls","object":"Y","object_type":"Class"}
	]`)

	e := NewExtractor(model, ContentCode)
	node := schema.Node{ID: "auth.py-chunk-0", Text: "class AuthService: ..."}
	triplets, err := e.Extract(context.Background(), node)
	require.NoError(t, err)
	require.Len(t, triplets, 1)
	assert.Equal(t, "AuthService", triplets[0].Subject)
	assert.Equal(t, "auth.py-chunk-0", triplets[0].SourceNodeID)
}

func TestExtractorMalformedResponse(t *testing.T) {
	model := llm.NewMockModel("I cannot extract anything useful.")
	e := NewExtractor(model, ContentCode)
	triplets, err := e.Extract(context.Background(), schema.Node{ID: "n", Text: "x"})
	require.NoError(t, err)
	assert.Empty(t, triplets)
}

func TestExportAndMermaid(t *testing.T) {
	ctx := context.Background()
	store, err := NewSimpleStore()
	require.NoError(t, err)
	require.NoError(t, store.UpsertTriplets(ctx, []Triplet{
		codeTriplet("A", "calls", "B"),
		codeTriplet("B", "uses", "C"),
	}))

	export, err := Export(ctx, store)
	require.NoError(t, err)
	assert.Len(t, export.Nodes, 3)
	assert.Len(t, export.Edges, 2)

	mermaid, err := Mermaid(ctx, store)
	require.NoError(t, err)
	assert.Contains(t, mermaid, "graph TD")
	assert.Contains(t, mermaid, "-->|calls|")
}
