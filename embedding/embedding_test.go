package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbeddingIsDeterministic(t *testing.T) {
	m := NewMockEmbedding(8)

	a, err := m.EmbedText(context.Background(), "hello world")
	require.NoError(t, err)
	b, err := m.EmbedQuery(context.Background(), "hello world")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 8)

	other, err := m.EmbedText(context.Background(), "something else")
	require.NoError(t, err)
	assert.NotEqual(t, a, other)
}

func TestMockEmbeddingBatchMatchesSingle(t *testing.T) {
	m := NewMockEmbedding(4)

	single, err := m.EmbedText(context.Background(), "alpha")
	require.NoError(t, err)

	batch, err := m.EmbedBatch(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, single, batch[0])
	assert.Equal(t, 3, m.Calls())
}

func TestMockEmbeddingDefaultsDimension(t *testing.T) {
	m := NewMockEmbedding(0)
	assert.Equal(t, 8, m.Dimensions())
}
