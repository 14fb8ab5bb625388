package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aqua777/codelens/schema"
)

// OllamaDefaultURL is the default Ollama API endpoint.
const OllamaDefaultURL = "http://localhost:11434"

// OllamaModel implements Model against a local Ollama server.
type OllamaModel struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// OllamaOption configures an OllamaModel.
type OllamaOption func(*OllamaModel)

// WithOllamaHTTPClient sets a custom HTTP client.
func WithOllamaHTTPClient(client *http.Client) OllamaOption {
	return func(o *OllamaModel) { o.httpClient = client }
}

// NewOllamaModel creates a client for the given model name.
func NewOllamaModel(baseURL, model string, opts ...OllamaOption) *OllamaModel {
	if baseURL == "" {
		baseURL = OllamaDefaultURL
	}
	o := &OllamaModel{
		baseURL:    baseURL,
		model:      model,
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

type ollamaChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type ollamaChatResponse struct {
	Message ChatMessage `json:"message"`
}

func (o *OllamaModel) Complete(ctx context.Context, prompt string) (string, error) {
	var resp ollamaGenerateResponse
	err := o.post(ctx, "/api/generate", ollamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: false,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (o *OllamaModel) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	var resp ollamaChatResponse
	err := o.post(ctx, "/api/chat", ollamaChatRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   false,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (o *OllamaModel) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return &schema.BackendError{Backend: "llm", Err: fmt.Errorf("ollama %s: %w", path, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &schema.BackendError{Backend: "llm", Err: fmt.Errorf("ollama %s: status %d", path, resp.StatusCode)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &schema.BackendError{Backend: "llm", Err: fmt.Errorf("decode ollama response: %w", err)}
	}
	return nil
}

var _ Model = (*OllamaModel)(nil)
