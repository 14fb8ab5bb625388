package index

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/aqua777/codelens/config"
	"github.com/aqua777/codelens/reader"
	"github.com/aqua777/codelens/schema"
)

// ErrNoDocuments is returned when an index run finds nothing to load; no
// collection is created in that case.
var ErrNoDocuments = errors.New("No documents found")

// IndexResult reports a completed index run.
type IndexResult struct {
	Indexed    int              `json:"indexed"`
	Mode       schema.IndexMode `json:"mode"`
	Collection string           `json:"collection"`
}

// IndexProject loads a source tree and indexes it into the collection.
// An empty load returns ErrNoDocuments and creates nothing.
func (s *Store) IndexProject(ctx context.Context, path, name string, mode schema.IndexMode, cfg *config.Config) (*IndexResult, error) {
	r := reader.NewDirectoryReader(path,
		reader.WithRecursive(cfg.Indexing.Recursive),
		reader.WithRequiredExts(cfg.Indexing.FileExtensions...),
		reader.WithExcludePatterns(cfg.Indexing.ExcludePatterns...),
		reader.WithIncludePaths(cfg.Indexing.IncludePaths...),
	)

	tracker := newWorkflowTracker(cfg.StoragePath, "index_"+name)
	tracker.start("load")

	docs, err := r.LoadDocuments(ctx)
	if err != nil {
		tracker.fail("load")
		return nil, err
	}
	if len(docs) == 0 {
		tracker.fail("load")
		return nil, ErrNoDocuments
	}
	tracker.finish("load")

	return s.indexDocuments(ctx, name, mode, docs, tracker)
}

// IndexDocs loads a documentation source (local path or URL) into the
// docs collection for a framework.
func (s *Store) IndexDocs(ctx context.Context, source, framework string, cfg *config.Config) (*IndexResult, error) {
	var r reader.Reader
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		r = reader.NewWebCrawlReader(source, cfg.CrawlDepth)
	} else {
		r = reader.NewDirectoryReader(source,
			reader.WithRequiredExts(".md", ".rst", ".txt", ".html", ".pdf"))
	}

	docs, err := r.LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return s.indexDocuments(ctx, schema.DocsCollection(framework), schema.ModeVector, docs, nil)
}

// IndexGitHubDocs pulls the documentation subtrees of a GitHub repo into
// the framework's docs collection.
func (s *Store) IndexGitHubDocs(ctx context.Context, owner, repo, framework string) (*IndexResult, error) {
	docs, err := reader.NewGitHubReader(owner, repo).LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return s.indexDocuments(ctx, schema.DocsCollection(framework), schema.ModeVector, docs, nil)
}

// IndexConversations ingests a JSONL chat log into the collection.
func (s *Store) IndexConversations(ctx context.Context, path, name string) (*IndexResult, error) {
	docs, err := reader.NewConversationReader(path,
		reader.WithConversationLogger(s.log)).LoadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	return s.indexDocuments(ctx, name, schema.ModeVector, docs, nil)
}

func (s *Store) indexDocuments(ctx context.Context, name string, mode schema.IndexMode, docs []schema.Document, tracker *workflowTracker) (*IndexResult, error) {
	manifest, err := s.Create(ctx, name, mode)
	if err != nil {
		return nil, err
	}

	if tracker != nil {
		tracker.start("split")
	}
	nodes := s.splitter.SplitDocuments(docs)
	if tracker != nil {
		tracker.finish("split")
		tracker.start("write")
	}

	if err := s.Write(ctx, name, nodes); err != nil {
		if tracker != nil {
			tracker.fail("write")
		}
		return nil, err
	}
	if tracker != nil {
		tracker.finish("write")
	}

	s.log.Info("indexed documents",
		zap.String("collection", name),
		zap.Int("documents", len(docs)),
		zap.Int("nodes", len(nodes)))

	return &IndexResult{
		Indexed:    len(docs),
		Mode:       manifest.Mode,
		Collection: name,
	}, nil
}

// RefreshProject reloads a source tree and reconciles the collection.
func (s *Store) RefreshProject(ctx context.Context, path, name string, cfg *config.Config) (schema.RefreshResult, error) {
	r := reader.NewDirectoryReader(path,
		reader.WithRecursive(cfg.Indexing.Recursive),
		reader.WithRequiredExts(cfg.Indexing.FileExtensions...),
		reader.WithExcludePatterns(cfg.Indexing.ExcludePatterns...),
		reader.WithIncludePaths(cfg.Indexing.IncludePaths...),
	)
	docs, err := r.LoadDocuments(ctx)
	if err != nil {
		return schema.RefreshResult{}, err
	}
	return s.Refresh(ctx, name, docs)
}

// ListFrameworks returns the frameworks with an indexed docs collection.
func (s *Store) ListFrameworks(ctx context.Context) ([]string, error) {
	names, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var frameworks []string
	for _, name := range names {
		if fw, ok := strings.CutPrefix(name, "docs_"); ok {
			frameworks = append(frameworks, fw)
		}
	}
	return frameworks, nil
}
