package analysis

import (
	"context"
	"fmt"

	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/schema"
)

// patternResponseLen caps a pattern answer, roughly 500 tokens.
const patternResponseLen = 2000

// DocSearcher answers questions against indexed framework docs, with
// per-framework routing (indexed, context7, web) from the config.
type DocSearcher struct {
	engine *engine.Engine
	cfg    *config.Config
}

// NewDocSearcher wires a docs searcher over the engine.
func NewDocSearcher(eng *engine.Engine, cfg *config.Config) *DocSearcher {
	return &DocSearcher{engine: eng, cfg: cfg}
}

// routeFor resolves the routing strategy for a framework, defaulting
// to indexed search.
func (d *DocSearcher) routeFor(framework string) string {
	routing := d.cfg.Documentation.Routing
	if route, ok := routing[framework]; ok {
		return route
	}
	if route, ok := routing["default"]; ok {
		return route
	}
	return config.RoutingIndexed
}

// SearchDocs searches a framework's documentation. examplesOnly biases
// retrieval toward code examples.
func (d *DocSearcher) SearchDocs(ctx context.Context, query, framework string, examplesOnly bool) (string, error) {
	switch d.routeFor(framework) {
	case config.RoutingContext7:
		return fmt.Sprintf("Context7 routing is configured for %s; connect a context7 server to serve %q.", framework, query), nil
	case config.RoutingWeb:
		return fmt.Sprintf("Web routing is not available offline. Index %s locally to answer %q.", framework, query), nil
	}

	if examplesOnly {
		query += " code example implementation"
	}
	return d.engine.Search(ctx, query, schema.DocsCollection(framework), 3)
}

// HowTo answers "how do I do X with framework Y" as a copyable recipe.
func (d *DocSearcher) HowTo(ctx context.Context, task, framework string) (string, error) {
	query := fmt.Sprintf("How to %s with code example step by step implementation", task)
	result, err := d.SearchDocs(ctx, query, framework, true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("# How to %s in %s\n\n%s\n\n## Next Steps\n1. Copy the code example above\n2. Adapt to your specific use case\n3. Test the implementation",
		task, framework, result), nil
}

// SearchPattern retrieves a precise implementation pattern from a
// framework's docs. Answers are capped at 2000 characters.
func (d *DocSearcher) SearchPattern(ctx context.Context, query, framework string) (string, error) {
	collection := schema.DocsCollection(framework)
	if !d.engine.Store().Exists(ctx, collection) {
		return fmt.Sprintf("Framework '%s' not indexed. Run: codelens index-docs --framework %s <source>", framework, framework), nil
	}

	enhanced := query + " show code example implementation pattern syntax"
	result, err := d.engine.Search(ctx, enhanced, collection, 2)
	if err != nil {
		return "", err
	}
	if len(result) > patternResponseLen {
		result = result[:patternResponseLen] + "..."
	}
	return result, nil
}
