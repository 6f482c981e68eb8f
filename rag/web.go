package rag

import (
	"context"

	"github.com/pkg/errors"

	"github.com/arcanaworks/grimoire/plugin/websearch"
)

// DefaultWebResults is how many scraped pages one lookup returns.
const DefaultWebResults = 1

// WebSearcher is the slice of websearch.Client the pipeline needs.
type WebSearcher interface {
	SearchAndScrape(ctx context.Context, query string, maxResults int) ([]websearch.Result, error)
}

// WebSource performs a live web lookup.
type WebSource struct {
	client     WebSearcher
	maxResults int
}

// NewWebSource creates a WebSource. maxResults <= 0 uses the default.
func NewWebSource(client WebSearcher, maxResults int) *WebSource {
	if maxResults <= 0 {
		maxResults = DefaultWebResults
	}
	return &WebSource{client: client, maxResults: maxResults}
}

func (s *WebSource) Kind() SourceKind { return SourceWeb }

// Fetch searches the web and scrapes the top results. Individual page
// failures already arrive as placeholder content from the client; only a
// failed search is a source-unavailable error.
func (s *WebSource) Fetch(ctx context.Context, query string) (*EvidenceResult, error) {
	results, err := s.client.SearchAndScrape(ctx, query, s.maxResults)
	if err != nil {
		return nil, errors.Wrap(err, "web search")
	}
	out := &EvidenceResult{Kind: SourceWeb}
	for i, r := range results {
		text := r.Content
		if r.Title != "" {
			text = r.Title + "\n" + text
		}
		out.Items = append(out.Items, EvidenceItem{
			Text:    text,
			Locator: r.URL,
			Rank:    i + 1,
		})
	}
	return out, nil
}
