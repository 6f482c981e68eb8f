// Package rag implements the question-answering pipeline: intent gating,
// dual-source evidence gathering, tool-augmented answer synthesis with
// token streaming, and session-aware conversation context.
package rag

import (
	"context"
	"fmt"
	"strings"
)

// SourceKind tags evidence with its provenance.
type SourceKind string

const (
	SourceSemantic SourceKind = "semantic-index"
	SourceWeb      SourceKind = "web"
)

// EvidenceItem is one passage of grounding text.
type EvidenceItem struct {
	Text    string
	Locator string // chunk id or URL
	Rank    int
}

// EvidenceResult is the outcome of one source invocation. An empty Items
// slice means the source answered with nothing relevant; it is not a failure.
type EvidenceResult struct {
	Kind  SourceKind
	Items []EvidenceItem
}

// EvidenceSource is a single lookup mechanism supplying passages to ground
// an answer. An error return means the source itself was unavailable.
type EvidenceSource interface {
	Kind() SourceKind
	Fetch(ctx context.Context, query string) (*EvidenceResult, error)
}

// Render serializes the result into the numbered-passage format the system
// prompt instructs the model to cite.
func (r *EvidenceResult) Render() string {
	if len(r.Items) == 0 {
		return fmt.Sprintf("[%s] No relevant passages found.", r.Kind)
	}
	var sb strings.Builder
	for _, item := range r.Items {
		fmt.Fprintf(&sb, "=== %s #%d (%s) ===\n%s\n\n", r.Kind, item.Rank, item.Locator, item.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
