package schema

import (
	"fmt"
	"strings"
	"time"
)

// IndexMode determines which stores back a collection.
type IndexMode string

const (
	// ModeVector stores embedded nodes only.
	ModeVector IndexMode = "vector"
	// ModeGraph stores embedded nodes plus extracted triplets.
	ModeGraph IndexMode = "graph"
	// ModeHybrid stores both and answers from either.
	ModeHybrid IndexMode = "hybrid"
	// ModeAuto resolves to graph for a new collection, vector for an
	// existing one without a graph store. The resolved mode is persisted.
	ModeAuto IndexMode = "auto"
)

// Valid reports whether m is a recognized index mode.
func (m IndexMode) Valid() bool {
	switch m {
	case ModeVector, ModeGraph, ModeHybrid, ModeAuto:
		return true
	}
	return false
}

// HasGraph reports whether collections in this mode carry a graph store.
func (m IndexMode) HasGraph() bool {
	return m == ModeGraph || m == ModeHybrid
}

// CollectionManifest records the immutable identity of a collection.
// A collection's mode never changes after creation; opening with a
// different mode fails with ErrConflict.
type CollectionManifest struct {
	Name      string    `json:"name"`
	Mode      IndexMode `json:"mode"`
	VectorDim int       `json:"vector_dim"`
	CreatedAt time.Time `json:"created_at"`
}

// CollectionStats is the queryable state of a collection.
type CollectionStats struct {
	Name       string    `json:"name"`
	Mode       IndexMode `json:"mode"`
	VectorDim  int       `json:"vector_dim"`
	PointCount int       `json:"point_count"`
}

// RefreshResult reports the outcome of reconciling a collection against a
// freshly loaded document set. Refreshed+Unchanged always equals Total.
type RefreshResult struct {
	Total     int `json:"total"`
	Refreshed int `json:"refreshed"`
	Unchanged int `json:"unchanged"`
}

// DocsCollection returns the collection name for a documentation
// framework. Framework names are case-insensitive; dashes normalize to
// underscores so "Vue-Router" and "vue_router" share a collection.
func DocsCollection(framework string) string {
	return "docs_" + strings.ReplaceAll(strings.ToLower(framework), "-", "_")
}

// GraphCollection returns the knowledge-graph collection name for a project.
func GraphCollection(project string) string {
	return "kg_" + project
}

// QueryFingerprint derives the deterministic cache key for a query.
func QueryFingerprint(query string, limit int, collection string) string {
	return MD5Hex(fmt.Sprintf("%s|%d|%s", query, limit, collection))
}
