// Package analysis holds the thin wrappers over the retrieval engine:
// business-logic extraction, documentation search, library suggestions
// and diagram generation. Everything here is stateless; the engine and
// its cache do the heavy lifting.
package analysis

import (
	"context"
	"strings"

	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/prompts"
	"github.com/aqua777/codelens/schema"
)

// BusinessReport is one extraction result over a project.
type BusinessReport struct {
	Project string `json:"project"`
	Kind    string `json:"kind"`
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
}

// BusinessExtractor pulls business-level views out of an indexed
// codebase with one retrieval query per view.
type BusinessExtractor struct {
	engine  *engine.Engine
	library *prompts.Library
}

// NewBusinessExtractor wires an extractor over the engine.
func NewBusinessExtractor(eng *engine.Engine, library *prompts.Library) *BusinessExtractor {
	return &BusinessExtractor{engine: eng, library: library}
}

func (b *BusinessExtractor) extract(ctx context.Context, project, kind, promptName string) (BusinessReport, error) {
	report := BusinessReport{Project: project, Kind: kind}
	if !b.engine.Store().Exists(ctx, project) {
		report.Error = schema.NotIndexedMessage(project)
		return report, nil
	}
	query := b.library.Render(promptName, nil)
	content, err := b.engine.Search(ctx, query, project, engine.DefaultTopK)
	if err != nil {
		return BusinessReport{}, err
	}
	report.Content = content
	return report, nil
}

// ExtractBusinessLogic returns the comprehensive business-logic view.
func (b *BusinessExtractor) ExtractBusinessLogic(ctx context.Context, project string) (BusinessReport, error) {
	return b.extract(ctx, project, "business_logic", prompts.BusinessLogic)
}

// ExtractBusinessRules returns the individual rules, one per line.
func (b *BusinessExtractor) ExtractBusinessRules(ctx context.Context, project string) ([]string, error) {
	report, err := b.extract(ctx, project, "business_rules", prompts.BusinessRules)
	if err != nil {
		return nil, err
	}
	if report.Error != "" {
		return []string{report.Error}, nil
	}
	var rules []string
	for _, line := range strings.Split(report.Content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			rules = append(rules, line)
		}
	}
	return rules, nil
}

// ExtractDomainModel returns the entity and relationship view.
func (b *BusinessExtractor) ExtractDomainModel(ctx context.Context, project string) (BusinessReport, error) {
	return b.extract(ctx, project, "domain_model", prompts.DomainModel)
}

// ExtractWorkflows returns the process and workflow view.
func (b *BusinessExtractor) ExtractWorkflows(ctx context.Context, project string) (BusinessReport, error) {
	return b.extract(ctx, project, "workflows", prompts.Workflows)
}

// ExtractAPIContracts returns the exposed endpoint view.
func (b *BusinessExtractor) ExtractAPIContracts(ctx context.Context, project string) (BusinessReport, error) {
	return b.extract(ctx, project, "api_contracts", prompts.APIContracts)
}
