package vectorstore

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEmbedding maps text onto a tiny fixed vocabulary so similarity is
// deterministic without a live embedding endpoint.
func testEmbedding(_ context.Context, text string) ([]float32, error) {
	switch {
	case strings.Contains(text, "dragon"):
		return []float32{0, 1, 0}, nil
	case strings.Contains(text, "wizard"):
		return []float32{0, 0, 1}, nil
	default:
		return []float32{1, 0, 0}, nil
	}
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	index, err := New(t.TempDir(), testEmbedding)
	require.NoError(t, err)
	return index
}

func testDocs() []Document {
	return []Document{
		{ID: "mm.md-0", Content: "An adult red dragon breathes fire.", Source: "mm.md"},
		{ID: "phb.md-0", Content: "A wizard prepares spells from a spellbook.", Source: "phb.md"},
		{ID: "phb.md-1", Content: "Initiative determines turn order.", Source: "phb.md"},
	}
}

func TestIndexAddAndSearch(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, testDocs()))
	require.Equal(t, 3, index.Count())

	passages, err := index.Search(ctx, "dragon breath weapon", 2)
	require.NoError(t, err)
	require.Len(t, passages, 2)
	require.Equal(t, "mm.md-0", passages[0].ID)
	require.Equal(t, "mm.md", passages[0].Source)
	require.Contains(t, passages[0].Content, "red dragon")
	require.Greater(t, passages[0].Score, passages[1].Score)
}

func TestIndexSearchEmpty(t *testing.T) {
	index := newTestIndex(t)

	passages, err := index.Search(context.Background(), "anything", 5)
	require.NoError(t, err)
	require.Empty(t, passages)
}

func TestIndexSearchClampsK(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, testDocs()[:1]))

	passages, err := index.Search(ctx, "dragon", 10)
	require.NoError(t, err)
	require.Len(t, passages, 1)
}

func TestIndexReset(t *testing.T) {
	index := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, index.Add(ctx, testDocs()))
	require.NoError(t, index.Reset(ctx))
	require.Zero(t, index.Count())

	// The collection is usable again after a reset.
	require.NoError(t, index.Add(ctx, testDocs()[:1]))
	require.Equal(t, 1, index.Count())
}

func TestIndexPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	index, err := New(dir, testEmbedding)
	require.NoError(t, err)
	require.NoError(t, index.Add(ctx, testDocs()))

	reopened, err := New(dir, testEmbedding)
	require.NoError(t, err)
	require.Equal(t, 3, reopened.Count())
}
