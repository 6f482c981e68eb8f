// Package ingest rebuilds the semantic index from the rulebook corpus.
// It is a batch job, deliberately outside the interactive request path:
// documents in, chunks out, index repopulated.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/arcanaworks/grimoire/plugin/vectorstore"
)

const (
	// Chunking constants: small enough for precise retrieval, with overlap
	// so rules split across a boundary stay findable.
	chunkSize    = 500
	chunkOverlap = 50

	parseConcurrency = 4
)

// Runner ingests every markdown/text document under corpusDir.
type Runner struct {
	index     *vectorstore.Index
	corpusDir string
}

// NewRunner creates a Runner over the given index and corpus directory.
func NewRunner(index *vectorstore.Index, corpusDir string) *Runner {
	return &Runner{index: index, corpusDir: corpusDir}
}

// Run resets the index and repopulates it from the corpus. It returns the
// number of indexed chunks. Chunk IDs are deterministic per (file, offset),
// so retrying a rebuild converges on the same index.
func (r *Runner) Run(ctx context.Context) (int, error) {
	files, err := r.listCorpusFiles()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, errors.Errorf("no corpus documents found under %s", r.corpusDir)
	}

	perFile := make([][]vectorstore.Document, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parseConcurrency)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			docs, err := chunkFile(path)
			if err != nil {
				return errors.Wrapf(err, "chunk %s", path)
			}
			perFile[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	var docs []vectorstore.Document
	for _, batch := range perFile {
		docs = append(docs, batch...)
	}

	if err := r.index.Reset(ctx); err != nil {
		return 0, errors.Wrap(err, "reset index")
	}
	if err := r.index.Add(ctx, docs); err != nil {
		return 0, errors.Wrap(err, "index corpus")
	}

	slog.Info("corpus ingested", "files", len(files), "chunks", len(docs))
	return len(docs), nil
}

func (r *Runner) listCorpusFiles() ([]string, error) {
	var files []string
	err := filepath.WalkDir(r.corpusDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".md", ".markdown", ".txt":
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk corpus dir %s", r.corpusDir)
	}
	sort.Strings(files)
	return files, nil
}

// chunkFile reads one document, strips markup, and splits it into
// overlapping chunks with stable IDs.
func chunkFile(path string) ([]vectorstore.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := raw
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".md" || ext == ".markdown" {
		text = []byte(stripMarkdown(raw))
	}

	source := filepath.Base(path)
	var docs []vectorstore.Document
	for i, chunk := range chunkText(string(text), chunkSize, chunkOverlap) {
		docs = append(docs, vectorstore.Document{
			ID:      fmt.Sprintf("%s-%d", source, i),
			Content: chunk,
			Source:  source,
		})
	}
	return docs, nil
}

// chunkText splits text into chunks of at most size runes with the given
// overlap between consecutive chunks.
func chunkText(text string, size, overlap int) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	step := size - overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}
