// Package metadata looks up page titles for bookmarks added without one.
package metadata

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/utils"
)

const (
	maxPageBytes = 1 << 20
	maxTitleLen  = 500
	userAgent    = "bookmarker/1.0 (+title lookup)"
)

var whitespace = regexp.MustCompile(`\s+`)

// TitleFetcher GETs a page and extracts its title.
type TitleFetcher struct {
	client  *http.Client
	enabled func() bool
	log     logger.Logger
}

// NewTitleFetcher fetches with client, typically one whose transport is the
// offline controller. enabled is checked before every lookup; nil means
// always on.
func NewTitleFetcher(client *http.Client, enabled func() bool, log logger.Logger) *TitleFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &TitleFetcher{client: client, enabled: enabled, log: log}
}

// FetchTitle returns "" without error when lookups are disabled or the page
// is not HTML.
func (f *TitleFetcher) FetchTitle(ctx context.Context, url string) (string, error) {
	if f.enabled != nil && !f.enabled() {
		return "", nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		if mt, _, err := mime.ParseMediaType(ct); err == nil && mt != "text/html" && mt != "application/xhtml+xml" {
			return "", nil
		}
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}
	title := ExtractTitle(doc)
	f.log.Debug("page title fetched", logger.String("url", url), logger.String("title", title))
	return title, nil
}

// ExtractTitle tries <title>, then og:title, then the first <h1>.
func ExtractTitle(doc *html.Node) string {
	title := textOf(find(doc, func(n *html.Node) bool { return n.Data == "title" }))
	if title == "" {
		if meta := find(doc, isOGTitle); meta != nil {
			title = attr(meta, "content")
		}
	}
	if title == "" {
		title = textOf(find(doc, func(n *html.Node) bool { return n.Data == "h1" }))
	}

	title = strings.TrimSpace(whitespace.ReplaceAllString(title, " "))
	if r := []rune(title); len(r) > maxTitleLen {
		title = string(r[:maxTitleLen])
	}
	return title
}

func isOGTitle(n *html.Node) bool {
	return n.Data == "meta" && (attr(n, "property") == "og:title" || attr(n, "name") == "og:title")
}

// find returns the first element node, depth first, matching pred.
func find(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
