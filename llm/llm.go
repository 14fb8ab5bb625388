// Package llm provides the language-model clients used for synthesis,
// routing and extraction. Providers: OpenAI (and any OpenAI-compatible API
// such as ElectronHub) and Ollama.
package llm

import (
	"context"
	"time"
)

// Model is the interface all LLM backends implement.
type Model interface {
	// Complete generates a completion for a single prompt.
	Complete(ctx context.Context, prompt string) (string, error)
	// Chat generates a response for a list of chat messages.
	Chat(ctx context.Context, messages []ChatMessage) (string, error)
}

// ChatMessage is a single turn in a chat exchange.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Kind selects which of the registry's models handles a task.
type Kind string

const (
	KindFast       Kind = "fast"
	KindComplex    Kind = "complex"
	KindComplexAlt Kind = "complex_alt"
)

// Timeout returns the per-request deadline for this model kind.
func (k Kind) Timeout() time.Duration {
	switch k {
	case KindComplex:
		return 120 * time.Second
	case KindComplexAlt:
		return 90 * time.Second
	default:
		return 60 * time.Second
	}
}

// timedModel wraps a Model with a default per-call deadline. A tighter
// caller deadline always wins.
type timedModel struct {
	inner   Model
	timeout time.Duration
}

// WithTimeout wraps model so every call carries deadline d unless the
// caller already set a sooner one.
func WithTimeout(model Model, d time.Duration) Model {
	return &timedModel{inner: model, timeout: d}
}

func (t *timedModel) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < t.timeout {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, t.timeout)
}

func (t *timedModel) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := t.withDeadline(ctx)
	defer cancel()
	return t.inner.Complete(ctx, prompt)
}

func (t *timedModel) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	ctx, cancel := t.withDeadline(ctx)
	defer cancel()
	return t.inner.Chat(ctx, messages)
}

var _ Model = (*timedModel)(nil)
