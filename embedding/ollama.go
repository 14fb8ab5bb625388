package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aqua777/codelens/schema"
)

// OllamaEmbedding embeds text through a local Ollama server.
type OllamaEmbedding struct {
	baseURL    string
	model      string
	dim        int
	httpClient *http.Client
}

// NewOllamaEmbedding creates an embedding client for the given model name.
// dim may be 0; it is learned from the first response.
func NewOllamaEmbedding(baseURL, model string, dim int) *OllamaEmbedding {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if dim == 0 {
		dim = 768 // nomic-embed-text
	}
	return &OllamaEmbedding{
		baseURL:    baseURL,
		model:      model,
		dim:        dim,
		httpClient: http.DefaultClient,
	}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (e *OllamaEmbedding) EmbedText(ctx context.Context, text string) ([]float64, error) {
	payload, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal ollama embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build ollama embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &schema.BackendError{Backend: "embedder", Err: fmt.Errorf("ollama embeddings: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &schema.BackendError{Backend: "embedder", Err: fmt.Errorf("ollama embeddings: status %d", resp.StatusCode)}
	}

	var out ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &schema.BackendError{Backend: "embedder", Err: fmt.Errorf("decode ollama embedding: %w", err)}
	}
	if len(out.Embedding) > 0 {
		e.dim = len(out.Embedding)
	}
	return out.Embedding, nil
}

func (e *OllamaEmbedding) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	return e.EmbedText(ctx, query)
}

// EmbedBatch embeds sequentially; the Ollama API has no batch endpoint.
func (e *OllamaEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	results := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := e.EmbedText(ctx, text)
		if err != nil {
			return nil, err
		}
		results[i] = vec
	}
	return results, nil
}

func (e *OllamaEmbedding) Dimensions() int { return e.dim }

var _ Model = (*OllamaEmbedding)(nil)
