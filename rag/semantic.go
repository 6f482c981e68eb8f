package rag

import (
	"context"

	"github.com/pkg/errors"

	"github.com/arcanaworks/grimoire/plugin/vectorstore"
)

// DefaultSemanticLimit caps how many passages one retrieval returns.
const DefaultSemanticLimit = 10

// PassageSearcher is the slice of vectorstore.Index the pipeline needs.
type PassageSearcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.Passage, error)
}

// SemanticSource queries the local rulebook index.
type SemanticSource struct {
	index PassageSearcher
	limit int
}

// NewSemanticSource creates a SemanticSource. limit <= 0 uses the default.
func NewSemanticSource(index PassageSearcher, limit int) *SemanticSource {
	if limit <= 0 {
		limit = DefaultSemanticLimit
	}
	return &SemanticSource{index: index, limit: limit}
}

func (s *SemanticSource) Kind() SourceKind { return SourceSemantic }

// Fetch queries the index, passing its relevance ordering through unchanged.
func (s *SemanticSource) Fetch(ctx context.Context, query string) (*EvidenceResult, error) {
	passages, err := s.index.Search(ctx, query, s.limit)
	if err != nil {
		return nil, errors.Wrap(err, "semantic index")
	}
	result := &EvidenceResult{Kind: SourceSemantic}
	for i, p := range passages {
		result.Items = append(result.Items, EvidenceItem{
			Text:    p.Content,
			Locator: p.Source + "/" + p.ID,
			Rank:    i + 1,
		})
	}
	return result, nil
}
