// Package selector routes a query to one of several candidate tools by
// asking an LLM to pick from a numbered list.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/prompts"
)

// Choice is one selectable candidate.
type Choice struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Selection is the picked choice, 0-indexed into the input slice.
type Selection struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// LLMSelector picks a single choice with an LLM completion.
type LLMSelector struct {
	model   llm.Model
	library *prompts.Library
}

// Option configures an LLMSelector.
type Option func(*LLMSelector)

// WithLibrary overrides the prompt library.
func WithLibrary(lib *prompts.Library) Option {
	return func(s *LLMSelector) {
		s.library = lib
	}
}

// New creates a selector backed by the given model.
func New(model llm.Model, opts ...Option) *LLMSelector {
	s := &LLMSelector{
		model:   model,
		library: prompts.NewLibrary(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuildChoicesText renders choices as a numbered list, one summary per
// entry, the way the selection prompt expects them.
func BuildChoicesText(choices []Choice) string {
	var b strings.Builder
	for i, choice := range choices {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "(%d) %s", i+1, choice.Description)
	}
	return b.String()
}

// Select asks the model to pick the choice most relevant to the query.
// A single candidate is returned directly without a model call.
func (s *LLMSelector) Select(ctx context.Context, query string, choices []Choice) (Selection, error) {
	if len(choices) == 0 {
		return Selection{}, fmt.Errorf("no choices to select from")
	}
	if len(choices) == 1 {
		return Selection{Index: 0, Reason: "only one candidate"}, nil
	}

	prompt := s.library.Render(prompts.SingleSelect, map[string]string{
		"num_choices":  strconv.Itoa(len(choices)),
		"context_list": BuildChoicesText(choices),
		"query_str":    query,
	})

	response, err := s.model.Complete(ctx, prompt)
	if err != nil {
		return Selection{}, fmt.Errorf("selection completion: %w", err)
	}

	answers, err := parseAnswers(response)
	if err != nil {
		return Selection{}, err
	}
	// The model answers 1-indexed.
	sel := Selection{Index: answers[0].Choice - 1, Reason: answers[0].Reason}
	if sel.Index < 0 || sel.Index >= len(choices) {
		return Selection{}, fmt.Errorf("selection out of range: choice %d of %d", answers[0].Choice, len(choices))
	}
	return sel, nil
}

type answer struct {
	Choice int    `json:"choice"`
	Reason string `json:"reason"`
}

// parseAnswers pulls the JSON array out of the completion, tolerating
// prose around it.
func parseAnswers(response string) ([]answer, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in selection response: %q", response)
	}
	var answers []answer
	if err := json.Unmarshal([]byte(response[start:end+1]), &answers); err != nil {
		return nil, fmt.Errorf("malformed selection response: %w", err)
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("empty selection response")
	}
	return answers, nil
}
