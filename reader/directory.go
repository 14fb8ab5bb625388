package reader

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/aqua777/codelens/schema"
)

// DirectoryReader walks a root directory and loads matching files.
type DirectoryReader struct {
	// Root is the directory to walk.
	Root string
	// Recursive enables descending into subdirectories.
	Recursive bool
	// RequiredExts restricts loading to these extensions (lowercase, with dot).
	RequiredExts []string
	// ExcludePatterns skips any file whose path contains one of these.
	ExcludePatterns []string
	// IncludePaths, when set, restricts the walk to these paths relative
	// to Root (files or subdirectories).
	IncludePaths []string
	// FilenameAsID makes document ids the path relative to Root, which
	// keeps them stable across refreshes.
	FilenameAsID bool
}

// DirectoryOption configures a DirectoryReader.
type DirectoryOption func(*DirectoryReader)

// WithRequiredExts restricts loading to the given extensions.
func WithRequiredExts(exts ...string) DirectoryOption {
	return func(r *DirectoryReader) { r.RequiredExts = exts }
}

// WithExcludePatterns skips files whose path contains any pattern.
func WithExcludePatterns(patterns ...string) DirectoryOption {
	return func(r *DirectoryReader) { r.ExcludePatterns = patterns }
}

// WithIncludePaths restricts the walk to the given relative paths.
func WithIncludePaths(paths ...string) DirectoryOption {
	return func(r *DirectoryReader) { r.IncludePaths = paths }
}

// WithRecursive toggles descending into subdirectories.
func WithRecursive(recursive bool) DirectoryOption {
	return func(r *DirectoryReader) { r.Recursive = recursive }
}

// WithFilenameAsID makes document ids root-relative paths.
func WithFilenameAsID(on bool) DirectoryOption {
	return func(r *DirectoryReader) { r.FilenameAsID = on }
}

// NewDirectoryReader creates a recursive reader rooted at root.
func NewDirectoryReader(root string, opts ...DirectoryOption) *DirectoryReader {
	r := &DirectoryReader{Root: root, Recursive: true, FilenameAsID: true}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// LoadDocuments walks the root and returns one document per matching file.
func (r *DirectoryReader) LoadDocuments(ctx context.Context) ([]schema.Document, error) {
	if _, err := os.Stat(r.Root); err != nil {
		return nil, &schema.ReadError{Source: r.Root, Err: err}
	}

	roots := []string{r.Root}
	if len(r.IncludePaths) > 0 {
		roots = roots[:0]
		for _, p := range r.IncludePaths {
			roots = append(roots, filepath.Join(r.Root, p))
		}
	}

	var docs []schema.Document
	for _, start := range roots {
		info, err := os.Stat(start)
		if err != nil {
			continue // include paths may not all exist
		}
		if !info.IsDir() {
			doc, err := r.loadFile(start)
			if err == nil {
				docs = append(docs, doc)
			}
			continue
		}

		walkErr := filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if d.IsDir() {
				if !r.Recursive && path != start {
					return filepath.SkipDir
				}
				if r.excluded(path + string(filepath.Separator)) {
					return filepath.SkipDir
				}
				return nil
			}
			if r.excluded(path) || !r.wantExt(path) {
				return nil
			}
			doc, err := r.loadFile(path)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
		if walkErr != nil {
			return nil, &schema.ReadError{Source: start, Err: walkErr}
		}
	}
	return docs, nil
}

func (r *DirectoryReader) excluded(path string) bool {
	for _, pat := range r.ExcludePatterns {
		if strings.Contains(path, pat) {
			return true
		}
	}
	return false
}

func (r *DirectoryReader) wantExt(path string) bool {
	if len(r.RequiredExts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range r.RequiredExts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

func (r *DirectoryReader) loadFile(path string) (schema.Document, error) {
	var text string
	var err error
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = extractPDFText(path)
	} else {
		var raw []byte
		raw, err = os.ReadFile(path)
		text = string(raw)
	}
	if err != nil {
		return schema.Document{}, fmt.Errorf("read %s: %w", path, err)
	}

	rel, relErr := filepath.Rel(r.Root, path)
	if relErr != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)

	id := path
	if r.FilenameAsID {
		id = rel
	}
	return schema.Document{
		ID:   id,
		Text: text,
		Metadata: map[string]interface{}{
			"file_name": filepath.Base(path),
			"path":      rel,
			"source":    "directory",
		},
	}, nil
}

// extractPDFText pulls plain text out of a PDF file.
func extractPDFText(path string) (string, error) {
	f, doc, err := pdf.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	reader, err := doc.GetPlainText()
	if err != nil {
		return "", err
	}
	if _, err := buf.ReadFrom(reader); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var _ Reader = (*DirectoryReader)(nil)
