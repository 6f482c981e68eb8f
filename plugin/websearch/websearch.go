// Package websearch implements web lookup: a DuckDuckGo HTML search
// followed by fetching and extracting readable text from the results.
package websearch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

const (
	defaultSearchBase = "https://html.duckduckgo.com/html/"
	userAgent         = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// maxBodyBytes caps how much of a page we read. 2 MB is plenty of HTML.
	maxBodyBytes = 2 << 20

	// maxContentChars caps the extracted text handed to the model.
	maxContentChars = 8000
)

// Result is one search hit with its scraped content. When fetching the page
// failed, Content carries the failure reason instead of page text.
type Result struct {
	URL     string
	Title   string
	Snippet string
	Content string
}

// Client performs searches and page fetches with a shared timeout.
type Client struct {
	httpClient *http.Client
	searchBase string
}

// Option configures a Client.
type Option func(*Client)

// WithSearchBase overrides the search endpoint (used by tests).
func WithSearchBase(base string) Option {
	return func(c *Client) { c.searchBase = base }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client with the given per-request timeout.
func NewClient(timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
		searchBase: defaultSearchBase,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchAndScrape searches for query and scrapes up to maxResults pages.
// A failed search is an error; a failed page fetch degrades to a placeholder
// result so one dead link never voids the whole lookup.
func (c *Client) SearchAndScrape(ctx context.Context, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		maxResults = 1
	}
	hits, err := c.search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(hits))
	for _, hit := range hits {
		if !validURL(hit.URL) {
			// Malformed or non-http(s) URLs are dropped, not retried.
			continue
		}
		content, err := c.scrape(ctx, hit.URL)
		if err != nil {
			hit.Content = "fetch failed: " + err.Error()
		} else {
			hit.Content = content
		}
		results = append(results, hit)
	}
	return results, nil
}

// search queries the DuckDuckGo HTML endpoint and parses result links.
func (c *Client) search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	searchURL := c.searchBase + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "build search request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "search request")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("search returned HTTP %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrap(err, "parse search results")
	}

	var hits []Result
	doc.Find("div.result").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		link := sel.Find("a.result__a").First()
		href, ok := link.Attr("href")
		if !ok {
			return true
		}
		hits = append(hits, Result{
			URL:     resolveRedirect(href),
			Title:   strings.TrimSpace(link.Text()),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").Text()),
		})
		return len(hits) < maxResults
	})
	return hits, nil
}

// scrape fetches a page and extracts its readable text.
func (c *Client) scrape(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "build fetch request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fetch page")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("HTTP %d", resp.StatusCode)
	}

	body := io.LimitReader(resp.Body, maxBodyBytes)
	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "text/plain") {
		raw, err := io.ReadAll(body)
		if err != nil {
			return "", errors.Wrap(err, "read page")
		}
		return clip(string(raw)), nil
	}

	root, err := html.Parse(body)
	if err != nil {
		return "", errors.Wrap(err, "parse page")
	}
	return clip(collapseWhitespace(extractText(root))), nil
}

// skippedElements are subtrees that carry no readable content.
var skippedElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "nav": true,
	"header": true, "footer": true, "form": true, "iframe": true,
}

// extractText walks the DOM and collects visible text, one block per line.
func extractText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElements[n.Data] {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}

// resolveRedirect unwraps DuckDuckGo's /l/?uddg= redirect links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	if u.Scheme == "" {
		u.Scheme = "https"
		return u.String()
	}
	return href
}

// validURL accepts absolute http/https URLs only.
func validURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func clip(s string) string {
	if len(s) > maxContentChars {
		return s[:maxContentChars] + "\n[truncated]"
	}
	return s
}

// String renders a result for logs.
func (r Result) String() string {
	return fmt.Sprintf("%s (%s)", r.Title, r.URL)
}
