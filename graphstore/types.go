// Package graphstore holds the property-graph side of hybrid collections:
// typed triplets extracted from nodes, an in-memory store with optional
// JSON persistence, and export helpers.
package graphstore

import (
	"fmt"
	"sort"
)

// ContentType selects which entity/relation schema applies to a collection.
type ContentType string

const (
	ContentCode     ContentType = "code"
	ContentBusiness ContentType = "business"
)

// codeEntities and codeRelations constrain triplets extracted from source.
var codeEntities = map[string]bool{
	"Class": true, "Function": true, "Method": true, "Variable": true,
	"Endpoint": true, "Database": true, "Service": true, "Module": true,
}

var codeRelations = map[string]bool{
	"calls": true, "implements": true, "extends": true, "uses": true,
	"depends_on": true, "triggers": true, "validates": true, "transforms": true,
}

// businessEntities and businessRelations constrain triplets extracted
// from documentation and requirements.
var businessEntities = map[string]bool{
	"Rule": true, "Process": true, "Entity": true, "Constraint": true,
	"Requirement": true, "UseCase": true, "Actor": true, "System": true,
}

var businessRelations = map[string]bool{
	"triggers": true, "validates": true, "requires": true, "produces": true,
	"consumes": true, "modifies": true, "depends_on": true, "implements": true,
}

// Schema is the allowed triplet vocabulary for one content type.
type Schema struct {
	ContentType ContentType
	entities    map[string]bool
	relations   map[string]bool
}

// SchemaFor returns the entity/relation schema for the content type.
// Unknown content types get the code schema.
func SchemaFor(ct ContentType) Schema {
	if ct == ContentBusiness {
		return Schema{ContentType: ct, entities: businessEntities, relations: businessRelations}
	}
	return Schema{ContentType: ContentCode, entities: codeEntities, relations: codeRelations}
}

// Entities lists the allowed entity types, sorted.
func (s Schema) Entities() []string { return sortedKeys(s.entities) }

// Relations lists the allowed relation names, sorted.
func (s Schema) Relations() []string { return sortedKeys(s.relations) }

// Valid reports whether the triplet's types and relation belong to the
// schema.
func (s Schema) Valid(t Triplet) bool {
	return s.entities[t.SubjectType] && s.entities[t.ObjectType] && s.relations[t.Relation]
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Triplet is one (subject, relation, object) fact with typed endpoints and
// provenance back to the node it was extracted from.
type Triplet struct {
	Subject      string `json:"subject"`
	SubjectType  string `json:"subject_type"`
	Relation     string `json:"relation"`
	Object       string `json:"object"`
	ObjectType   string `json:"object_type"`
	SourceNodeID string `json:"source_node_id,omitempty"`
}

func (t Triplet) String() string {
	return fmt.Sprintf("(%s, %s, %s)", t.Subject, t.Relation, t.Object)
}

// Key identifies a triplet regardless of provenance, for dedup.
func (t Triplet) Key() string {
	return t.Subject + "\x00" + t.Relation + "\x00" + t.Object
}
