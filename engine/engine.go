// Package engine implements retrieval: semantic search with synthesis,
// citation answers, existence checks, violation and architecture
// analysis, multi-collection routing and sub-question decomposition.
package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/cache"
	"github.com/aqua777/codelens/embedding"
	"github.com/aqua777/codelens/index"
	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/prompts"
	"github.com/aqua777/codelens/resource"
	"github.com/aqua777/codelens/schema"
)

// DefaultTopK is used when the caller does not pick a limit.
const DefaultTopK = 5

// Engine answers queries over indexed collections. It is stateless
// besides the query cache and safe for concurrent use.
type Engine struct {
	store   *index.Store
	cache   *cache.Cache
	library *prompts.Library
	fast    llm.Model
	complex llm.Model
	embed   embedding.Model
	log     *zap.Logger
}

// New wires an Engine from the registry and the collection store.
func New(reg *resource.Registry, store *index.Store) (*Engine, error) {
	c, err := reg.Cache()
	if err != nil {
		return nil, err
	}
	library, err := reg.Prompts()
	if err != nil {
		return nil, err
	}
	fast, err := reg.LLM(llm.KindFast)
	if err != nil {
		return nil, err
	}
	complexModel, err := reg.LLM(llm.KindComplex)
	if err != nil {
		return nil, err
	}
	embed, err := reg.Embedder()
	if err != nil {
		return nil, err
	}
	return &Engine{
		store:   store,
		cache:   c,
		library: library,
		fast:    fast,
		complex: complexModel,
		embed:   embed,
		log:     reg.Logger(),
	}, nil
}

// Store exposes the underlying collection store.
func (e *Engine) Store() *index.Store { return e.store }

// Search answers a query over one collection: cache first, then
// retrieve top-limit nodes and synthesize with the fast model. A search
// against an absent collection returns the not-indexed message as the
// result, not an error. limit <= 0 synthesizes over empty context
// without touching the index.
func (e *Engine) Search(ctx context.Context, query, collection string, limit int) (string, error) {
	if limit <= 0 {
		return e.synthesize(ctx, query, nil)
	}
	if answer, ok := e.cache.GetQuery(ctx, query, limit, collection); ok {
		return answer, nil
	}
	if !e.store.Exists(ctx, collection) {
		return schema.NotIndexedMessage(collection), nil
	}

	nodes, err := e.retrieve(ctx, query, collection, limit)
	if err != nil {
		return "", err
	}
	answer, err := e.synthesize(ctx, query, nodes)
	if err != nil {
		return "", err
	}
	e.cache.PutQuery(ctx, query, limit, collection, answer)
	return answer, nil
}

// SearchWithCitations answers a query and returns the ranked sources.
// Citation ranks start at 1; previews carry at most 200 characters.
func (e *Engine) SearchWithCitations(ctx context.Context, query, collection string, limit int) (schema.EngineResponse, error) {
	if limit <= 0 {
		limit = DefaultTopK
	}
	if !e.store.Exists(ctx, collection) {
		return schema.EngineResponse{Response: schema.NotIndexedMessage(collection)}, nil
	}

	nodes, err := e.retrieve(ctx, query, collection, limit)
	if err != nil {
		return schema.EngineResponse{}, err
	}

	prompt := e.library.Render(prompts.CitationQA, map[string]string{
		"context_str": contextWithMarkers(nodes),
		"query_str":   query,
	})
	answer, err := e.fast.Complete(ctx, prompt)
	if err != nil {
		return schema.EngineResponse{}, err
	}

	citations := make([]schema.Citation, 0, len(nodes))
	for i, n := range nodes {
		citations = append(citations, schema.NewCitation(i+1, n))
	}
	return schema.EngineResponse{Response: answer, Citations: citations}, nil
}

// ExistenceThreshold is the similarity score at which a component is
// considered present.
const ExistenceThreshold = 0.7

// existenceContextLen caps the context carried by an existence result.
const existenceContextLen = 500

// Exists checks whether a component is present in the collection by
// retrieving the single best match and thresholding its score.
func (e *Engine) Exists(ctx context.Context, component, collection string) (schema.ExistenceResult, error) {
	result := schema.ExistenceResult{Component: component}
	if !e.store.Exists(ctx, collection) {
		result.Error = schema.NotIndexedMessage(collection)
		result.Context = result.Error
		return result, nil
	}

	nodes, err := e.retrieve(ctx, component, collection, 1)
	if err != nil {
		return schema.ExistenceResult{}, err
	}
	if len(nodes) == 0 {
		return result, nil
	}

	confidence := nodes[0].Score
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	result.Confidence = confidence
	result.Exists = confidence >= ExistenceThreshold
	result.Context = schema.Truncate(nodes[0].Node.Text, existenceContextLen)
	return result, nil
}

// retrieve opens the collection and returns the topK nodes ordered by
// descending score, ties broken by ascending node id.
func (e *Engine) retrieve(ctx context.Context, query, collection string, topK int) ([]schema.NodeWithScore, error) {
	h, err := e.store.Open(ctx, collection)
	if err != nil {
		return nil, err
	}
	return h.Query(ctx, query, topK)
}

// synthesize answers the query over the retrieved context with the
// fast model.
func (e *Engine) synthesize(ctx context.Context, query string, nodes []schema.NodeWithScore) (string, error) {
	texts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		texts = append(texts, n.Node.Text)
	}
	prompt := e.library.Render(prompts.TextQA, map[string]string{
		"context_str": strings.Join(texts, "\n\n"),
		"query_str":   query,
	})
	return e.fast.Complete(ctx, prompt)
}

// contextWithMarkers prefixes each chunk with its source marker so the
// model can reference it.
func contextWithMarkers(nodes []schema.NodeWithScore) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteString("\n\n")
		}
		file, _ := n.Node.Metadata["file_name"].(string)
		if file == "" {
			file = n.Node.DocID
		}
		fmt.Fprintf(&b, "[%d] %s:\n%s", i+1, file, n.Node.Text)
	}
	return b.String()
}
