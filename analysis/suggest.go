package analysis

import (
	"context"

	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/prompts"
)

// Suggester recommends libraries for a task. Pure LLM, no retrieval:
// the suggestions come from the model's own knowledge, optionally
// steered by a project-type hint.
type Suggester struct {
	model   llm.Model
	library *prompts.Library
}

// NewSuggester wires a suggester over the given model.
func NewSuggester(model llm.Model, library *prompts.Library) *Suggester {
	return &Suggester{model: model, library: library}
}

// SuggestLibraries returns library suggestions for the task. An empty
// projectType uses the generic prompt.
func (s *Suggester) SuggestLibraries(ctx context.Context, task, projectType string) (string, error) {
	var prompt string
	if projectType == "" {
		prompt = s.library.Render(prompts.SuggestDefault, map[string]string{"task": task})
	} else {
		prompt = s.library.Render(prompts.SuggestContext, map[string]string{
			"task":         task,
			"project_type": projectType,
		})
	}
	return s.model.Complete(ctx, prompt)
}
