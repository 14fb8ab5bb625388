// Package reader provides document loading adapters. Each reader produces
// a flat slice of documents; an empty source yields an empty slice, and
// only unreachable or structurally broken sources fail.
package reader

import (
	"context"

	"github.com/aqua777/codelens/schema"
)

// Reader is the interface for document loaders.
type Reader interface {
	// LoadDocuments loads all documents from the underlying source.
	LoadDocuments(ctx context.Context) ([]schema.Document, error)
}
