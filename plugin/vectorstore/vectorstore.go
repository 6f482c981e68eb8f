// Package vectorstore wraps chromem-go with a persistent collection of
// rulebook passages.
package vectorstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "handbook"

// Passage is a single semantic-search hit.
type Passage struct {
	ID      string
	Content string
	Source  string
	Score   float32
}

// Document is a chunk to be indexed.
type Document struct {
	ID      string
	Content string
	Source  string
}

// Index wraps chromem-go with disk persistence.
type Index struct {
	mu      sync.RWMutex
	db      *chromem.DB
	embedFn chromem.EmbeddingFunc
}

// New creates (or opens) the persistent index at dataDir/vectorstore/.
// embedFn is the embedding function — pass chromem.NewEmbeddingFuncOllama
// (or an OpenAI-compatible one) pointed at the embedding endpoint.
func New(dataDir string, embedFn chromem.EmbeddingFunc) (*Index, error) {
	dir := filepath.Join(dataDir, "vectorstore")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create vectorstore dir: %w", err)
	}
	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("open vectorstore: %w", err)
	}
	return &Index{db: db, embedFn: embedFn}, nil
}

func (s *Index) collection() (*chromem.Collection, error) {
	return s.db.GetOrCreateCollection(collectionName, nil, s.embedFn)
}

// Add indexes (or re-indexes) a batch of documents.
func (s *Index) Add(ctx context.Context, docs []Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	col, err := s.collection()
	if err != nil {
		return fmt.Errorf("vectorstore: %w", err)
	}
	batch := make([]chromem.Document, 0, len(docs))
	for _, d := range docs {
		batch = append(batch, chromem.Document{
			ID:      d.ID,
			Content: d.Content,
			Metadata: map[string]string{
				"source": d.Source,
			},
		})
	}
	return col.AddDocuments(ctx, batch, 4)
}

// Search returns the top-k passages most similar to the query, in the
// index's relevance order.
func (s *Index) Search(ctx context.Context, query string, k int) ([]Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	col, err := s.collection()
	if err != nil {
		return nil, err
	}
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}

	var results []chromem.Result
	// chromem-go sometimes throws "nResults must be <= number of documents"
	// despite Count checks. Step down k if it fails.
	for attemptK := k; attemptK > 0; attemptK-- {
		results, err = col.Query(ctx, query, attemptK, nil, nil)
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	out := make([]Passage, 0, len(results))
	for _, r := range results {
		out = append(out, Passage{
			ID:      r.ID,
			Content: r.Content,
			Source:  r.Metadata["source"],
			Score:   r.Similarity,
		})
	}
	return out, nil
}

// Reset drops the collection so a rebuild starts from scratch.
func (s *Index) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return err
	}
	_, err := s.collection()
	return err
}

// Count reports the number of indexed passages.
func (s *Index) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	col, err := s.collection()
	if err != nil {
		return 0
	}
	return col.Count()
}
