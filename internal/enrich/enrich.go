// Package enrich fetches bookmarked pages and distills them into the
// title, summary, and content hash the metadata store keeps.
package enrich

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	defaultTimeout = 10 * time.Second
	userAgent      = "marksman/1.0"

	// Pages larger than this are truncated before parsing.
	maxBodyBytes = 1 << 20

	// Extracted summaries are cut to roughly this many characters.
	summaryLimit = 500
)

var ErrFetch = errors.New("fetch failed")

// Page is what one fetched URL boils down to.
type Page struct {
	Title       string
	Summary     string
	ContentHash string
}

// Fetcher retrieves and summarizes web pages.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher creates a fetcher. A zero timeout uses the default.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch downloads the page at url and extracts its title, a plain-text
// summary, and a short content hash for change detection.
func (f *Fetcher) Fetch(url string) (Page, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return Page{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return Page{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Page{}, fmt.Errorf("%w: status %d for %s", ErrFetch, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, fmt.Errorf("read body: %w", err)
	}

	sum := sha256.Sum256(body)
	page := Page{
		ContentHash: hex.EncodeToString(sum[:])[:16],
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		// Unparseable HTML still hashes; leave title and summary empty.
		return page, nil
	}

	page.Title = strings.TrimSpace(extractTitle(doc))
	page.Summary = truncate(extractText(doc), summaryLimit)
	return page, nil
}

func extractTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		var sb strings.Builder
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				sb.WriteString(c.Data)
			}
		}
		return sb.String()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if title := extractTitle(c); title != "" {
			return title
		}
	}
	return ""
}

// extractText collects visible text, skipping script and style blocks,
// and collapses runs of whitespace.
func extractText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "head":
				return
			}
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
