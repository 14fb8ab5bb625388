package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/vectorstore"
)

func testStore(t *testing.T, extractorResponses ...string) (*Store, *config.Config) {
	t.Helper()
	cfg := config.Defaults()
	cfg.LLMProvider = config.ProviderOllama
	cfg.EmbedProvider = config.ProviderOllama
	cfg.RedisEnabled = false
	cfg.StoragePath = t.TempDir()
	cfg.Indexing.FileExtensions = []string{".py", ".md"}

	vc, err := vectorstore.NewChromemClient("")
	require.NoError(t, err)

	if len(extractorResponses) == 0 {
		extractorResponses = []string{"[]"}
	}
	reg, err := resource.NewRegistry(context.Background(), cfg,
		resource.WithVectorClient(vc),
		resource.WithEmbedder(embedding.NewMockEmbedding(8)),
		resource.WithModel(llm.KindFast, llm.NewMockModel("ok")),
		resource.WithModel(llm.KindComplex, llm.NewMockModel(extractorResponses...)),
		resource.WithModel(llm.KindComplexAlt, llm.NewMockModel("ok")),
		resource.WithCache(cache.Disabled()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })

	store, err := NewStore(reg)
	require.NoError(t, err)
	return store, cfg
}

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestCreateModeConflict(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	m, err := store.Create(ctx, "proj", schema.ModeVector)
	require.NoError(t, err)
	assert.Equal(t, schema.ModeVector, m.Mode)

	// Same mode is a no-op.
	again, err := store.Create(ctx, "proj", schema.ModeVector)
	require.NoError(t, err)
	assert.Equal(t, m.Name, again.Name)

	// A different mode conflicts.
	_, err = store.Create(ctx, "proj", schema.ModeGraph)
	assert.ErrorIs(t, err, schema.ErrConflict)

	// Auto opens whatever exists.
	resolved, err := store.Create(ctx, "proj", schema.ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, schema.ModeVector, resolved.Mode)
}

func TestCreateAutoResolvesToGraph(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	m, err := store.Create(ctx, "fresh", schema.ModeAuto)
	require.NoError(t, err)
	assert.Equal(t, schema.ModeGraph, m.Mode)

	// The resolved mode is persisted, so reopening is deterministic.
	reopened, err := store.Open(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, schema.ModeGraph, reopened.Manifest.Mode)
}

func TestOpenNotFound(t *testing.T) {
	store, _ := testStore(t)
	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestWriteAndQuery(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	_, err := store.Create(ctx, "proj", schema.ModeVector)
	require.NoError(t, err)

	nodes := []schema.Node{
		{ID: "a.py-chunk-0", DocID: "a.py", Text: "def authenticate(user): ...",
			Metadata: map[string]interface{}{"file_name": "a.py"}},
		{ID: "b.py-chunk-0", DocID: "b.py", Text: "def bill(order): ...",
			Metadata: map[string]interface{}{"file_name": "b.py"}},
	}
	for i := range nodes {
		nodes[i].GenerateHash()
	}
	require.NoError(t, store.Write(ctx, "proj", nodes))

	stats, err := store.Stats(ctx, "proj")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.PointCount)
	assert.Equal(t, schema.ModeVector, stats.Mode)
	assert.Equal(t, 8, stats.VectorDim)

	h, err := store.Open(ctx, "proj")
	require.NoError(t, err)
	results, err := h.Query(ctx, "def authenticate(user): ...", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.py-chunk-0", results[0].Node.ID)
}

func TestWriteToMissingCollection(t *testing.T) {
	store, _ := testStore(t)
	err := store.Write(context.Background(), "missing", []schema.Node{{ID: "n", Text: "x"}})
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestGraphWriteExtractsTriplets(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t,
		`[{"subject":"Auth","subject_type":"Class","relation":"calls","object":"Store","object_type":"Class"}]`)

	_, err := store.Create(ctx, "proj", schema.ModeGraph)
	require.NoError(t, err)

	n := schema.Node{ID: "a.py-chunk-0", DocID: "a.py", Text: "class Auth: ...",
		Metadata: map[string]interface{}{"source": "directory"}}
	n.GenerateHash()
	require.NoError(t, store.Write(ctx, "proj", []schema.Node{n}))

	g, err := store.Graph("proj")
	require.NoError(t, err)
	count, err := g.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestGraphOnVectorCollection(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)
	_, err := store.Create(ctx, "proj", schema.ModeVector)
	require.NoError(t, err)

	_, err = store.Graph("proj")
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestDeleteIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	_, err := store.Create(ctx, "proj", schema.ModeVector)
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "proj"))
	require.NoError(t, store.Delete(ctx, "proj"))

	_, err = store.Stats(ctx, "proj")
	assert.ErrorIs(t, err, schema.ErrNotFound)
}

func TestIndexProjectAndRefresh(t *testing.T) {
	ctx := context.Background()
	store, cfg := testStore(t)

	dir := writeProject(t, map[string]string{
		"main.py":  "def main():\n    run()\n",
		"util.py":  "def util():\n    return 1\n",
		"notes.md": "Some project notes.",
	})

	result, err := store.IndexProject(ctx, dir, "proj", schema.ModeVector, cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Indexed)
	assert.Equal(t, "proj", result.Collection)

	// Unchanged tree refreshes nothing.
	res, err := store.RefreshProject(ctx, dir, "proj", cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 0, res.Refreshed)
	assert.Equal(t, 3, res.Unchanged)

	// Change one file, add another.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.py"), []byte("def util():\n    return 2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.py"), []byte("def fresh():\n    pass\n"), 0o644))

	res, err = store.RefreshProject(ctx, dir, "proj", cfg)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Total)
	assert.Equal(t, 2, res.Refreshed)
	assert.Equal(t, 2, res.Unchanged)
}

func TestIndexProjectEmptyDir(t *testing.T) {
	ctx := context.Background()
	store, cfg := testStore(t)

	_, err := store.IndexProject(ctx, t.TempDir(), "empty", schema.ModeVector, cfg)
	assert.ErrorIs(t, err, ErrNoDocuments)
	assert.False(t, store.Exists(ctx, "empty"))
}

func TestWorkflowStatePersisted(t *testing.T) {
	ctx := context.Background()
	store, cfg := testStore(t)

	dir := writeProject(t, map[string]string{"main.py": "def main(): pass\n"})
	_, err := store.IndexProject(ctx, dir, "proj", schema.ModeVector, cfg)
	require.NoError(t, err)

	state, err := LoadWorkflowState(cfg.StoragePath, "index_proj")
	require.NoError(t, err)
	require.NotEmpty(t, state.Steps)
	for _, step := range state.Steps {
		assert.Equal(t, "completed", step.Status)
	}
}

func TestListFrameworks(t *testing.T) {
	ctx := context.Background()
	store, _ := testStore(t)

	_, err := store.Create(ctx, schema.DocsCollection("react"), schema.ModeVector)
	require.NoError(t, err)
	_, err = store.Create(ctx, "plain_project", schema.ModeVector)
	require.NoError(t, err)

	fws, err := store.ListFrameworks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"react"}, fws)
}
