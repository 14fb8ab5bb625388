package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aqua777/codelens/schema"
)

// OpenAIModel talks to the OpenAI chat-completion API or any compatible
// endpoint (ElectronHub uses this client with a custom base URL).
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// NewOpenAIModel creates a client for the given model. baseURL may be empty
// for the default OpenAI endpoint.
func NewOpenAIModel(apiKey, baseURL, model string) *OpenAIModel {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIModel{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// NewOpenAIModelWithClient reuses an existing client, so the registry's
// fast and complex models share one HTTP transport.
func NewOpenAIModelWithClient(client *openai.Client, model string) *OpenAIModel {
	return &OpenAIModel{client: client, model: model}
}

func (o *OpenAIModel) Complete(ctx context.Context, prompt string) (string, error) {
	return o.Chat(ctx, []ChatMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}})
}

func (o *OpenAIModel) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: msgs,
	})
	if err != nil {
		return "", &schema.BackendError{Backend: "llm", Err: fmt.Errorf("openai chat completion (%s): %w", o.model, err)}
	}
	if len(resp.Choices) == 0 {
		return "", &schema.BackendError{Backend: "llm", Err: fmt.Errorf("openai returned no choices for %s", o.model)}
	}
	return resp.Choices[0].Message.Content, nil
}

var _ Model = (*OpenAIModel)(nil)
