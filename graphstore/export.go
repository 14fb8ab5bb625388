package graphstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// GraphExport is the JSON shape served by the graph endpoints.
type GraphExport struct {
	Nodes []ExportNode `json:"nodes"`
	Edges []ExportEdge `json:"edges"`
}

// ExportNode is one entity in the exported graph.
type ExportNode struct {
	ID   string `json:"id"`
	Type string `json:"type,omitempty"`
}

// ExportEdge is one relation in the exported graph.
type ExportEdge struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// Export flattens the store into a node/edge list.
func Export(ctx context.Context, store Store) (*GraphExport, error) {
	triplets, err := store.All(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var order []string
	record := func(name, typ string) {
		if _, ok := seen[name]; !ok {
			order = append(order, name)
		}
		if seen[name] == "" {
			seen[name] = typ
		}
	}

	export := &GraphExport{Nodes: []ExportNode{}, Edges: []ExportEdge{}}
	for _, t := range triplets {
		record(t.Subject, t.SubjectType)
		record(t.Object, t.ObjectType)
		export.Edges = append(export.Edges, ExportEdge{
			From:     t.Subject,
			To:       t.Object,
			Relation: t.Relation,
		})
	}
	for _, name := range order {
		export.Nodes = append(export.Nodes, ExportNode{ID: name, Type: seen[name]})
	}
	return export, nil
}

// ExportJSON renders the graph as indented JSON.
func ExportJSON(ctx context.Context, store Store) ([]byte, error) {
	export, err := Export(ctx, store)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(export, "", "  ")
}

// Mermaid renders the graph as a mermaid flowchart for the visualize
// endpoint.
func Mermaid(ctx context.Context, store Store) (string, error) {
	triplets, err := store.All(ctx)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")
	ids := make(map[string]string)
	next := 0
	idOf := func(name string) string {
		if id, ok := ids[name]; ok {
			return id
		}
		id := fmt.Sprintf("n%d", next)
		next++
		ids[name] = id
		return id
	}
	for _, t := range triplets {
		fmt.Fprintf(&sb, "    %s[%q] -->|%s| %s[%q]\n",
			idOf(t.Subject), t.Subject, t.Relation, idOf(t.Object), t.Object)
	}
	return sb.String(), nil
}
