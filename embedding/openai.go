package embedding

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aqua777/codelens/schema"
)

// openaiBatchSize is the API's per-request input limit.
const openaiBatchSize = 2048

// OpenAIEmbedding embeds text through the OpenAI embeddings API.
type OpenAIEmbedding struct {
	client *openai.Client
	model  string
	dim    int
}

// NewOpenAIEmbedding creates an embedding client for the given model.
func NewOpenAIEmbedding(apiKey, baseURL, model string) *OpenAIEmbedding {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedding{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dimensionsFor(model),
	}
}

// NewOpenAIEmbeddingWithClient reuses an existing client.
func NewOpenAIEmbeddingWithClient(client *openai.Client, model string) *OpenAIEmbedding {
	return &OpenAIEmbedding{client: client, model: model, dim: dimensionsFor(model)}
}

func dimensionsFor(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	default:
		// text-embedding-3-small and ada-002
		return 1536
	}
}

func (e *OpenAIEmbedding) EmbedText(ctx context.Context, text string) ([]float64, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return e.EmbedText(ctx, query)
}

func (e *OpenAIEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	results := make([][]float64, len(texts))
	for start := 0; start < len(texts); start += openaiBatchSize {
		end := start + openaiBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, &schema.BackendError{Backend: "embedder", Err: fmt.Errorf("openai embeddings (%s): %w", e.model, err)}
		}
		if len(resp.Data) != end-start {
			return nil, &schema.BackendError{Backend: "embedder", Err: fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), end-start)}
		}

		for i, data := range resp.Data {
			vec := make([]float64, len(data.Embedding))
			for j, v := range data.Embedding {
				vec[j] = float64(v)
			}
			results[start+i] = vec
		}
	}
	return results, nil
}

func (e *OpenAIEmbedding) Dimensions() int { return e.dim }

var _ Model = (*OpenAIEmbedding)(nil)
