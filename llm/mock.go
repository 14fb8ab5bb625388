package llm

import (
	"context"
	"sync"
)

// MockModel is a configurable Model for tests. Responses are served in
// order; the last one repeats when the queue runs out. Prompts are
// recorded for assertions.
type MockModel struct {
	mu        sync.Mutex
	responses []string
	next      int
	// Err, when set, is returned by every call.
	Err error
	// Prompts records every prompt passed to Complete or Chat.
	Prompts []string
	// Fn, when set, computes the response from the prompt instead.
	Fn func(prompt string) string
}

// NewMockModel creates a mock serving the given responses in order.
func NewMockModel(responses ...string) *MockModel {
	return &MockModel{responses: responses}
}

func (m *MockModel) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Prompts = append(m.Prompts, prompt)
	if m.Err != nil {
		return "", m.Err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if m.Fn != nil {
		return m.Fn(prompt), nil
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	resp := m.responses[m.next]
	if m.next < len(m.responses)-1 {
		m.next++
	}
	return resp, nil
}

func (m *MockModel) Chat(ctx context.Context, messages []ChatMessage) (string, error) {
	prompt := ""
	if len(messages) > 0 {
		prompt = messages[len(messages)-1].Content
	}
	return m.Complete(ctx, prompt)
}

// CallCount returns how many completions were requested.
func (m *MockModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

var _ Model = (*MockModel)(nil)
