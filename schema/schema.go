// Package schema defines the core data model shared by every layer of
// codelens: documents, nodes, query bundles, collection manifests and the
// error kinds the transports translate.
package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Document is an immutable unit produced by a reader. The ID must be stable
// across refreshes; directory readers use the path relative to the root.
type Document struct {
	ID       string                 `json:"id"`
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Hash returns the sha256 hex digest of the document text. Refresh compares
// it against the stored hash to decide whether a document changed.
func (d Document) Hash() string {
	sum := sha256.Sum256([]byte(d.Text))
	return hex.EncodeToString(sum[:])
}

// Node is a chunk derived from a document. Nodes are created by the splitter
// and owned by the index store after a write.
type Node struct {
	ID        string                 `json:"id"`
	DocID     string                 `json:"doc_id"`
	Text      string                 `json:"text"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Embedding []float64              `json:"embedding,omitempty"`
	Hash      string                 `json:"hash,omitempty"`
}

// ChunkNodeID builds the deterministic node id for chunk i of a document.
func ChunkNodeID(docID string, i int) string {
	return fmt.Sprintf("%s-chunk-%d", docID, i)
}

// GenerateHash computes and stores the sha256 hex digest of the node text.
func (n *Node) GenerateHash() string {
	sum := sha256.Sum256([]byte(n.Text))
	n.Hash = hex.EncodeToString(sum[:])
	return n.Hash
}

// NodeWithScore pairs a retrieved node with its similarity score.
type NodeWithScore struct {
	Node  Node    `json:"node"`
	Score float64 `json:"score"`
}

// SortByScore orders nodes by descending score, ties broken by ascending
// node id so retrieval output is deterministic.
func SortByScore(nodes []NodeWithScore) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].Score != nodes[j].Score {
			return nodes[i].Score > nodes[j].Score
		}
		return nodes[i].Node.ID < nodes[j].Node.ID
	})
}

// QueryBundle carries a query string and retrieval parameters.
type QueryBundle struct {
	QueryString string `json:"query_string"`
	TopK        int    `json:"top_k"`
}

// Citation is a ranked source reference returned alongside an answer.
// Ranks start at 1.
type Citation struct {
	Rank    int     `json:"rank"`
	File    string  `json:"file"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// CitationPreviewLen caps the preview text carried by a citation.
const CitationPreviewLen = 200

// NewCitation builds a citation from a retrieved node.
func NewCitation(rank int, n NodeWithScore) Citation {
	file, _ := n.Node.Metadata["file_name"].(string)
	if file == "" {
		file = n.Node.DocID
	}
	return Citation{
		Rank:    rank,
		File:    file,
		Score:   n.Score,
		Preview: Truncate(n.Node.Text, CitationPreviewLen),
	}
}

// EngineResponse is the synthesized answer plus its sources.
type EngineResponse struct {
	Response  string     `json:"response"`
	Citations []Citation `json:"citations,omitempty"`
}

// ExistenceResult is the outcome of a component-existence check.
type ExistenceResult struct {
	Exists     bool    `json:"exists"`
	Confidence float64 `json:"confidence"`
	Context    string  `json:"context,omitempty"`
	Component  string  `json:"component"`
	Error      string  `json:"error,omitempty"`
}

// Truncate shortens s to at most max runes, appending "..." when cut.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.TrimSpace(s[:max]) + "..."
}
