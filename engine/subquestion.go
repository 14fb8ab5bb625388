package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/prompts"
)

// maxSubQuestions bounds the decomposition of one complex query.
const maxSubQuestions = 4

// AnswerComplex decomposes the query into sub-questions with the
// complex model, answers each over the given collections, and
// synthesizes a final answer. A sub-question whose retrieval fails
// contributes its error as text instead of aborting the whole query.
func (e *Engine) AnswerComplex(ctx context.Context, query string, collections []string) (string, error) {
	choices, err := e.collectionChoices(ctx, collections)
	if err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return NoProjectsMessage, nil
	}
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = c.Name
	}

	subs := e.decompose(ctx, query)

	var pairs []string
	for _, sub := range subs {
		var answer string
		if len(names) == 1 {
			answer, err = e.Search(ctx, sub, names[0], DefaultTopK)
		} else {
			answer, err = e.SmartQuery(ctx, sub, names)
		}
		if err != nil {
			answer = fmt.Sprintf("Error answering %q: %v", sub, err)
		}
		pairs = append(pairs, fmt.Sprintf("Sub-question: %s\nAnswer: %s", sub, answer))
	}

	prompt := e.library.Render(prompts.TextQA, map[string]string{
		"context_str": strings.Join(pairs, "\n\n"),
		"query_str":   query,
	})
	return e.complex.Complete(ctx, prompt)
}

// decompose asks the complex model for sub-questions. When the answer
// is unusable the original query runs as the single sub-question.
func (e *Engine) decompose(ctx context.Context, query string) []string {
	prompt := e.library.Render(prompts.SubQuestions, map[string]string{
		"query_str":     query,
		"max_questions": fmt.Sprintf("%d", maxSubQuestions),
	})
	response, err := e.complex.Complete(ctx, prompt)
	if err != nil {
		e.log.Warn("sub-question decomposition failed", zap.Error(err))
		return []string{query}
	}

	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end < start {
		return []string{query}
	}
	var subs []string
	if err := json.Unmarshal([]byte(response[start:end+1]), &subs); err != nil || len(subs) == 0 {
		return []string{query}
	}
	if len(subs) > maxSubQuestions {
		subs = subs[:maxSubQuestions]
	}
	return subs
}
