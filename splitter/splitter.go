// Package splitter chunks documents into nodes. Source files are split by
// a fixed line window; everything else goes through a sentence-aware
// splitter driven by the configured chunk size and overlap.
package splitter

import (
	"path/filepath"
	"strings"

	"github.com/aqua777/codelens/schema"
)

// Splitter turns a document text into ordered chunks.
type Splitter interface {
	SplitText(text string) []string
}

// codeExtensions is the extension set handled by the line-window splitter.
var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".tsx": true, ".jsx": true,
	".java": true, ".cpp": true, ".c": true, ".cs": true, ".go": true,
	".rs": true, ".php": true, ".rb": true, ".scala": true, ".kt": true,
	".swift": true, ".m": true, ".r": true, ".sql": true,
}

// IsCodeFile reports whether path has a source-code extension.
func IsCodeFile(path string) bool {
	return codeExtensions[strings.ToLower(filepath.Ext(path))]
}

// DocumentSplitter selects a strategy per document by file extension.
type DocumentSplitter struct {
	code     *CodeSplitter
	sentence *SentenceSplitter
}

// NewDocumentSplitter builds a splitter pair. chunkSize and chunkOverlap
// apply to the sentence splitter; the code splitter uses its fixed window.
func NewDocumentSplitter(chunkSize, chunkOverlap int) *DocumentSplitter {
	return &DocumentSplitter{
		code:     NewCodeSplitter(0, 0),
		sentence: NewSentenceSplitter(chunkSize, chunkOverlap, nil),
	}
}

// ForFile returns the splitter used for the given path.
func (d *DocumentSplitter) ForFile(path string) Splitter {
	if IsCodeFile(path) {
		return d.code
	}
	return d.sentence
}

// SplitDocuments splits each document and returns a flat ordered node
// slice. Node ids are deterministic (<docID>-chunk-<i>) and each node
// carries the document metadata plus its chunk index.
func (d *DocumentSplitter) SplitDocuments(docs []schema.Document) []schema.Node {
	var nodes []schema.Node
	for _, doc := range docs {
		path := doc.ID
		if p, ok := doc.Metadata["path"].(string); ok {
			path = p
		}
		chunks := d.ForFile(path).SplitText(doc.Text)

		for i, chunk := range chunks {
			meta := make(map[string]interface{}, len(doc.Metadata)+1)
			for k, v := range doc.Metadata {
				meta[k] = v
			}
			meta["chunk_index"] = i

			node := schema.Node{
				ID:       schema.ChunkNodeID(doc.ID, i),
				DocID:    doc.ID,
				Text:     chunk,
				Metadata: meta,
			}
			node.GenerateHash()
			nodes = append(nodes, node)
		}
	}
	return nodes
}
