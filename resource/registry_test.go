package resource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/vectorstore"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	cfg := config.Defaults()
	cfg.LLMProvider = config.ProviderOllama
	cfg.EmbedProvider = config.ProviderOllama
	cfg.RedisEnabled = false

	vc, err := vectorstore.NewChromemClient("")
	require.NoError(t, err)

	r, err := NewRegistry(context.Background(), cfg,
		WithVectorClient(vc),
		WithEmbedder(embedding.NewMockEmbedding(8)),
		WithModel(llm.KindFast, llm.NewMockModel("fast answer")),
		WithModel(llm.KindComplex, llm.NewMockModel("complex answer")),
		WithModel(llm.KindComplexAlt, llm.NewMockModel("alt answer")),
		WithCache(cache.Disabled()),
	)
	require.NoError(t, err)
	return r
}

func TestRegistrySingletons(t *testing.T) {
	r := testRegistry(t)

	v1, err := r.VectorClient()
	require.NoError(t, err)
	v2, err := r.VectorClient()
	require.NoError(t, err)
	assert.Same(t, v1, v2)

	e1, err := r.Embedder()
	require.NoError(t, err)
	e2, err := r.Embedder()
	require.NoError(t, err)
	assert.Same(t, e1, e2)

	m1, err := r.LLM(llm.KindFast)
	require.NoError(t, err)
	m2, err := r.LLM(llm.KindFast)
	require.NoError(t, err)
	assert.Same(t, m1, m2)

	p1, err := r.Prompts()
	require.NoError(t, err)
	p2, err := r.Prompts()
	require.NoError(t, err)
	assert.Same(t, p1, p2)
}

func TestRegistryCloseIdempotent(t *testing.T) {
	r := testRegistry(t)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())

	_, err := r.VectorClient()
	assert.ErrorIs(t, err, schema.ErrShutdown)
	_, err = r.Embedder()
	assert.ErrorIs(t, err, schema.ErrShutdown)
	_, err = r.LLM(llm.KindComplex)
	assert.ErrorIs(t, err, schema.ErrShutdown)
	_, err = r.Cache()
	assert.ErrorIs(t, err, schema.ErrShutdown)
}

func TestClassifyTask(t *testing.T) {
	cases := []struct {
		task string
		want llm.Kind
	}{
		{"analyze the architecture of this service", llm.KindComplex},
		{"extract entity relationships into a graph", llm.KindComplex},
		{"find the login handler", llm.KindFast},
		{"health check", llm.KindFast},
		// fast wins when both vocabularies appear
		{"search for design patterns", llm.KindFast},
		// default
		{"hello", llm.KindFast},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyTask(tc.task), tc.task)
	}
}

func TestSmartLLM(t *testing.T) {
	r := testRegistry(t)

	m, err := r.SmartLLM("analyze business logic violations")
	require.NoError(t, err)
	out, err := m.Complete(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "complex answer", out)

	m, err = r.SmartLLM("list indexed projects")
	require.NoError(t, err)
	out, err = m.Complete(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, "fast answer", out)
}
