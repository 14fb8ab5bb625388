// Package embedding provides the text-embedding backends used by the
// indexing pipeline and the retrieval engine.
package embedding

import "context"

// Model is the interface all embedding backends implement.
type Model interface {
	// EmbedText embeds a document chunk.
	EmbedText(ctx context.Context, text string) ([]float64, error)
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
	// EmbedBatch embeds many chunks in one round trip where the backend
	// supports it.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
	// Dimensions is the vector width this model produces.
	Dimensions() int
}
