package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/llm"
	"github.com/aqua777/codelens/schema"
)

const extractPrompt = `Extract knowledge graph triplets from the text below.

Allowed entity types: {entity_types}
Allowed relations: {relations}

Return a JSON array of objects:
[{"subject": "...", "subject_type": "...", "relation": "...", "object": "...", "object_type": "..."}]

Only use the allowed entity types and relations. Return [] if nothing can be extracted.

Text:
{text}

JSON:`

// Extractor asks an LLM for schema-constrained triplets. Triplets whose
// types or relation fall outside the schema are dropped, not repaired.
type Extractor struct {
	model       llm.Model
	schema      Schema
	maxPerChunk int
	log         *zap.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMaxTripletsPerChunk caps how many triplets one node may contribute.
func WithMaxTripletsPerChunk(n int) ExtractorOption {
	return func(e *Extractor) { e.maxPerChunk = n }
}

// WithExtractorLogger sets the logger for dropped-triplet warnings.
func WithExtractorLogger(log *zap.Logger) ExtractorOption {
	return func(e *Extractor) { e.log = log }
}

// NewExtractor creates an extractor bound to one content-type schema.
func NewExtractor(model llm.Model, contentType ContentType, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		model:       model,
		schema:      SchemaFor(contentType),
		maxPerChunk: 10,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract pulls triplets from one node. The returned triplets all satisfy
// the schema and carry the node id as provenance.
func (e *Extractor) Extract(ctx context.Context, node schema.Node) ([]Triplet, error) {
	prompt := strings.NewReplacer(
		"{entity_types}", strings.Join(e.schema.Entities(), ", "),
		"{relations}", strings.Join(e.schema.Relations(), ", "),
		"{text}", node.Text,
	).Replace(extractPrompt)

	raw, err := e.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("extract triplets: %w", err)
	}

	parsed, err := parseTriplets(raw)
	if err != nil {
		// A malformed extraction yields no triplets rather than failing
		// the write.
		e.log.Warn("unparseable triplet extraction", zap.String("node", node.ID), zap.Error(err))
		return nil, nil
	}

	var out []Triplet
	for _, t := range parsed {
		if len(out) >= e.maxPerChunk {
			break
		}
		if !e.schema.Valid(t) {
			e.log.Debug("dropping off-schema triplet",
				zap.String("node", node.ID), zap.String("triplet", t.String()))
			continue
		}
		t.SourceNodeID = node.ID
		out = append(out, t)
	}
	return out, nil
}

// parseTriplets finds the JSON array in an LLM response and decodes it.
func parseTriplets(response string) ([]Triplet, error) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in response")
	}
	var triplets []Triplet
	if err := json.Unmarshal([]byte(response[start:end+1]), &triplets); err != nil {
		return nil, fmt.Errorf("decode triplets: %w", err)
	}
	return triplets, nil
}
