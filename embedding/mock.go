package embedding

import (
	"context"
	"crypto/sha256"
	"sync/atomic"
)

// MockEmbedding produces deterministic pseudo-embeddings derived from the
// input text, so identical texts always embed identically in tests.
type MockEmbedding struct {
	Dim int
	// Err, when set, is returned by every call.
	Err error

	calls atomic.Int64
}

// NewMockEmbedding creates a deterministic mock with the given width.
func NewMockEmbedding(dim int) *MockEmbedding {
	if dim <= 0 {
		dim = 8
	}
	return &MockEmbedding{Dim: dim}
}

func (m *MockEmbedding) embed(text string) []float64 {
	sum := sha256.Sum256([]byte(text))
	vec := make([]float64, m.Dim)
	for i := range vec {
		vec[i] = float64(sum[i%len(sum)])/255.0 - 0.5
	}
	return vec
}

func (m *MockEmbedding) EmbedText(ctx context.Context, text string) ([]float64, error) {
	m.calls.Add(1)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.embed(text), nil
}

func (m *MockEmbedding) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return m.EmbedText(ctx, query)
}

func (m *MockEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		m.calls.Add(1)
		out[i] = m.embed(t)
	}
	return out, nil
}

func (m *MockEmbedding) Dimensions() int { return m.Dim }

// Calls reports how many texts were embedded.
func (m *MockEmbedding) Calls() int { return int(m.calls.Load()) }

var _ Model = (*MockEmbedding)(nil)
