package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/aqua777/codelens/schema"
)

// URLReader fetches a single URL as one document.
type URLReader struct {
	URL        string
	httpClient *http.Client
}

// NewURLReader creates a reader for the given URL.
func NewURLReader(rawURL string) *URLReader {
	return &URLReader{URL: rawURL, httpClient: http.DefaultClient}
}

func (r *URLReader) LoadDocuments(ctx context.Context) ([]schema.Document, error) {
	body, err := fetch(ctx, r.httpClient, r.URL)
	if err != nil {
		return nil, &schema.ReadError{Source: r.URL, Err: err}
	}
	return []schema.Document{{
		ID:   r.URL,
		Text: stripHTML(body),
		Metadata: map[string]interface{}{
			"file_name": r.URL,
			"path":      r.URL,
			"source":    "url",
		},
	}}, nil
}

// WebCrawlReader crawls breadth-first from a start URL, following links on
// the same host up to Depth hops.
type WebCrawlReader struct {
	StartURL   string
	Depth      int
	MaxPages   int
	httpClient *http.Client
}

// NewWebCrawlReader creates a crawler. depth 0 fetches only the start page.
func NewWebCrawlReader(startURL string, depth int) *WebCrawlReader {
	return &WebCrawlReader{
		StartURL:   startURL,
		Depth:      depth,
		MaxPages:   50,
		httpClient: http.DefaultClient,
	}
}

var hrefPattern = regexp.MustCompile(`href=["']([^"'#]+)["']`)

func (r *WebCrawlReader) LoadDocuments(ctx context.Context) ([]schema.Document, error) {
	start, err := url.Parse(r.StartURL)
	if err != nil {
		return nil, &schema.ReadError{Source: r.StartURL, Err: err}
	}

	type item struct {
		u     string
		depth int
	}
	queue := []item{{u: r.StartURL, depth: 0}}
	seen := map[string]bool{r.StartURL: true}

	var docs []schema.Document
	for len(queue) > 0 && len(docs) < r.MaxPages {
		cur := queue[0]
		queue = queue[1:]

		body, err := fetch(ctx, r.httpClient, cur.u)
		if err != nil {
			if cur.depth == 0 {
				return nil, &schema.ReadError{Source: cur.u, Err: err}
			}
			continue // broken links deeper in are skipped
		}
		docs = append(docs, schema.Document{
			ID:   cur.u,
			Text: stripHTML(body),
			Metadata: map[string]interface{}{
				"file_name": cur.u,
				"path":      cur.u,
				"source":    "web_crawl",
				"depth":     cur.depth,
			},
		})

		if cur.depth >= r.Depth {
			continue
		}
		base, err := url.Parse(cur.u)
		if err != nil {
			continue
		}
		for _, m := range hrefPattern.FindAllStringSubmatch(body, -1) {
			link, err := base.Parse(m[1])
			if err != nil || link.Host != start.Host {
				continue
			}
			link.Fragment = ""
			u := link.String()
			if !seen[u] {
				seen[u] = true
				queue = append(queue, item{u: u, depth: cur.depth + 1})
			}
		}
	}
	return docs, nil
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

var (
	tagPattern    = regexp.MustCompile(`(?s)<(script|style)[^>]*>.*?</(script|style)>`)
	markupPattern = regexp.MustCompile(`<[^>]+>`)
	spacePattern  = regexp.MustCompile(`[ \t]+`)
)

// stripHTML reduces an HTML page to its visible text.
func stripHTML(html string) string {
	text := tagPattern.ReplaceAllString(html, " ")
	text = markupPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

var (
	_ Reader = (*URLReader)(nil)
	_ Reader = (*WebCrawlReader)(nil)
)
