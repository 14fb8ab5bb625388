package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/schema"
	"github.com/aqua777/codelens/selector"
	"github.com/aqua777/codelens/vectorstore"
)

// NoProjectsMessage is returned when routing finds nothing to route to.
const NoProjectsMessage = "No indexed projects available"

// routeTopK is how many tool descriptors ScalableRoute shortlists
// before the selector decides.
const routeTopK = 5

// SmartQuery routes the query to exactly one collection with the
// complex-model selector, then searches there. A nil collections slice
// routes over everything indexed.
func (e *Engine) SmartQuery(ctx context.Context, query string, collections []string) (string, error) {
	choices, err := e.collectionChoices(ctx, collections)
	if err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return NoProjectsMessage, nil
	}

	sel, err := selector.New(e.complex, selector.WithLibrary(e.library)).Select(ctx, query, choices)
	if err != nil {
		return "", err
	}
	chosen := choices[sel.Index].Name
	e.log.Debug("routed query",
		zap.String("collection", chosen), zap.String("reason", sel.Reason))
	return e.Search(ctx, query, chosen, DefaultTopK)
}

// ScalableRoute narrows the candidate set by embedding the tool
// descriptions into a throwaway in-memory index and retrieving the
// closest few, then lets the selector pick among the shortlist. Meant
// for deployments with many dozens of collections, where one numbered
// prompt over all of them stops fitting.
func (e *Engine) ScalableRoute(ctx context.Context, query string) (string, error) {
	choices, err := e.collectionChoices(ctx, nil)
	if err != nil {
		return "", err
	}
	if len(choices) == 0 {
		return NoProjectsMessage, nil
	}

	if len(choices) > routeTopK {
		choices, err = e.shortlist(ctx, query, choices)
		if err != nil {
			return "", err
		}
	}

	sel, err := selector.New(e.complex, selector.WithLibrary(e.library)).Select(ctx, query, choices)
	if err != nil {
		return "", err
	}
	return e.Search(ctx, query, choices[sel.Index].Name, DefaultTopK)
}

// shortlist embeds the choice descriptions and keeps the routeTopK
// nearest to the query.
func (e *Engine) shortlist(ctx context.Context, query string, choices []selector.Choice) ([]selector.Choice, error) {
	client, err := vectorstore.NewChromemClient("")
	if err != nil {
		return nil, err
	}
	defer client.Close()

	const name = "route_tools"
	if err := client.CreateCollection(ctx, name, e.embed.Dimensions()); err != nil {
		return nil, err
	}

	nodes := make([]schema.Node, 0, len(choices))
	for i, choice := range choices {
		vec, err := e.embed.EmbedText(ctx, choice.Description)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, schema.Node{
			ID:        choice.Name,
			DocID:     choice.Name,
			Text:      choice.Description,
			Embedding: vec,
			Metadata:  map[string]interface{}{"choice": fmt.Sprintf("%d", i)},
		})
	}
	if _, err := client.Collection(name).Add(ctx, nodes); err != nil {
		return nil, err
	}

	qvec, err := e.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := client.Collection(name).Query(ctx, qvec, routeTopK)
	if err != nil {
		return nil, err
	}
	schema.SortByScore(hits)

	byName := make(map[string]selector.Choice, len(choices))
	for _, c := range choices {
		byName[c.Name] = c
	}
	short := make([]selector.Choice, 0, len(hits))
	for _, hit := range hits {
		if c, ok := byName[hit.Node.ID]; ok {
			short = append(short, c)
		}
	}
	return short, nil
}

// collectionChoices builds one routing choice per indexed collection,
// described by what kind of content it holds.
func (e *Engine) collectionChoices(ctx context.Context, collections []string) ([]selector.Choice, error) {
	if collections == nil {
		names, err := e.store.List(ctx)
		if err != nil {
			return nil, err
		}
		collections = names
	}

	var choices []selector.Choice
	for _, name := range collections {
		if !e.store.Exists(ctx, name) {
			continue
		}
		choices = append(choices, selector.Choice{
			Name:        name,
			Description: describeCollection(name),
		})
	}
	return choices, nil
}

func describeCollection(name string) string {
	switch {
	case strings.HasPrefix(name, "docs_"):
		return fmt.Sprintf("Documentation for %s library. Use for API references, examples, and how-to guides.",
			strings.TrimPrefix(name, "docs_"))
	case strings.Contains(name, "conversation") || strings.Contains(name, "memory"):
		return fmt.Sprintf("Conversation history and decisions from %s. Use for past context and decisions.", name)
	default:
		return fmt.Sprintf("Source code for %s project. Use for code analysis, implementations, and technical details.", name)
	}
}
