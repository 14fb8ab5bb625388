package analysis

import (
	"context"
	"fmt"

	"github.com/aqua777/codelens/engine"
	"github.com/aqua777/codelens/prompts"
	"github.com/aqua777/codelens/schema"
)

// DiagramKind selects a diagram format.
type DiagramKind string

const (
	DiagramSequence     DiagramKind = "sequence"
	DiagramMermaid      DiagramKind = "mermaid"
	DiagramPlantUML     DiagramKind = "plantuml"
	DiagramClass        DiagramKind = "class"
	DiagramArchitecture DiagramKind = "architecture"
)

// diagramResponseLen caps a generated diagram, roughly 500 tokens.
const diagramResponseLen = 2000

var diagramPrompts = map[DiagramKind]string{
	DiagramSequence:     prompts.DiagramSequence,
	DiagramMermaid:      prompts.DiagramMermaid,
	DiagramPlantUML:     prompts.DiagramPlantUML,
	DiagramClass:        prompts.DiagramClass,
	DiagramArchitecture: prompts.DiagramArch,
}

// DiagramGenerator renders diagrams of an indexed codebase: one
// retrieval query per diagram, format driven by the prompt.
type DiagramGenerator struct {
	engine  *engine.Engine
	library *prompts.Library
}

// NewDiagramGenerator wires a generator over the engine.
func NewDiagramGenerator(eng *engine.Engine, library *prompts.Library) *DiagramGenerator {
	return &DiagramGenerator{engine: eng, library: library}
}

// Generate produces the requested diagram for a project. Output longer
// than 2000 characters is truncated with a trailing ellipsis.
func (d *DiagramGenerator) Generate(ctx context.Context, project string, kind DiagramKind) (string, error) {
	promptName, ok := diagramPrompts[kind]
	if !ok {
		return "", &schema.ConfigError{Key: "diagram", Reason: fmt.Sprintf("unknown diagram kind %q", kind)}
	}
	if !d.engine.Store().Exists(ctx, project) {
		return schema.NotIndexedMessage(project), nil
	}

	query := d.library.Render(promptName, nil)
	result, err := d.engine.Search(ctx, query, project, engine.DefaultTopK)
	if err != nil {
		return "", err
	}
	if len(result) > diagramResponseLen {
		result = result[:diagramResponseLen] + "..."
	}
	return result, nil
}
