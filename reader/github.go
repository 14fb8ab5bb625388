package reader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/aqua777/codelens/schema"
)

// defaultDocsDirs are the repository subtrees loaded when none are given.
var defaultDocsDirs = []string{"docs", "documentation", "doc"}

// GitHubReader loads documentation files from a GitHub repository through
// the contents API. It tries branch main first and falls back to master.
type GitHubReader struct {
	Owner string
	Repo  string
	// Dirs restricts loading to these repository subtrees.
	Dirs []string
	// Exts restricts loading to these file extensions.
	Exts []string

	baseURL    string
	httpClient *http.Client
}

// GitHubOption configures a GitHubReader.
type GitHubOption func(*GitHubReader)

// WithGitHubDirs overrides the default documentation subtrees.
func WithGitHubDirs(dirs ...string) GitHubOption {
	return func(r *GitHubReader) { r.Dirs = dirs }
}

// WithGitHubExts restricts loading to the given extensions.
func WithGitHubExts(exts ...string) GitHubOption {
	return func(r *GitHubReader) { r.Exts = exts }
}

// WithGitHubBaseURL overrides the API base URL, mainly for tests.
func WithGitHubBaseURL(base string) GitHubOption {
	return func(r *GitHubReader) { r.baseURL = base }
}

// NewGitHubReader creates a reader for owner/repo.
func NewGitHubReader(owner, repo string, opts ...GitHubOption) *GitHubReader {
	r := &GitHubReader{
		Owner:      owner,
		Repo:       repo,
		Dirs:       defaultDocsDirs,
		Exts:       []string{".md", ".rst", ".txt"},
		baseURL:    "https://api.github.com",
		httpClient: http.DefaultClient,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type githubEntry struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Type        string `json:"type"`
	DownloadURL string `json:"download_url"`
}

func (r *GitHubReader) LoadDocuments(ctx context.Context) ([]schema.Document, error) {
	for _, branch := range []string{"main", "master"} {
		docs, err := r.loadBranch(ctx, branch)
		if err == nil {
			return docs, nil
		}
		if branch == "master" {
			return nil, &schema.ReadError{
				Source: fmt.Sprintf("%s/%s", r.Owner, r.Repo),
				Err:    err,
			}
		}
	}
	return nil, nil // unreachable
}

func (r *GitHubReader) loadBranch(ctx context.Context, branch string) ([]schema.Document, error) {
	var docs []schema.Document
	found := false
	for _, dir := range r.Dirs {
		entries, err := r.listDir(ctx, dir, branch)
		if err != nil {
			continue // subtree absent on this branch
		}
		found = true
		loaded, err := r.loadEntries(ctx, entries, branch)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	if !found {
		// Distinguish "no docs dirs" from a missing branch by probing root.
		if _, err := r.listDir(ctx, "", branch); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

func (r *GitHubReader) loadEntries(ctx context.Context, entries []githubEntry, branch string) ([]schema.Document, error) {
	var docs []schema.Document
	for _, e := range entries {
		switch e.Type {
		case "dir":
			sub, err := r.listDir(ctx, e.Path, branch)
			if err != nil {
				continue
			}
			loaded, err := r.loadEntries(ctx, sub, branch)
			if err != nil {
				return nil, err
			}
			docs = append(docs, loaded...)
		case "file":
			if !r.wantExt(e.Name) || e.DownloadURL == "" {
				continue
			}
			body, err := fetch(ctx, r.httpClient, e.DownloadURL)
			if err != nil {
				continue // single-file failures do not abort the load
			}
			docs = append(docs, schema.Document{
				ID:   e.Path,
				Text: body,
				Metadata: map[string]interface{}{
					"file_name": e.Name,
					"path":      e.Path,
					"source":    "github",
					"repo":      r.Owner + "/" + r.Repo,
					"branch":    branch,
				},
			})
		}
	}
	return docs, nil
}

func (r *GitHubReader) listDir(ctx context.Context, dir, branch string) ([]githubEntry, error) {
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s?ref=%s", r.baseURL, r.Owner, r.Repo, dir, branch)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("contents %s@%s: status %d", path.Join(r.Owner, r.Repo, dir), branch, resp.StatusCode)
	}

	var entries []githubEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode contents listing: %w", err)
	}
	return entries, nil
}

func (r *GitHubReader) wantExt(name string) bool {
	if len(r.Exts) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	for _, e := range r.Exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

var _ Reader = (*GitHubReader)(nil)
