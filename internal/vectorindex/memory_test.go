package vectorindex

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testRecords() []Record {
	return []Record{
		{ID: "hanoi-old-quarter", Name: "Old Quarter", Kind: "attraction", City: "Hanoi", Embedding: []float32{1, 0, 0}},
		{ID: "halong-bay", Name: "Ha Long Bay", Kind: "attraction", City: "Ha Long", Embedding: []float32{0.9, 0.1, 0}},
		{ID: "hue-citadel", Name: "Imperial Citadel", Kind: "attraction", City: "Hue", Embedding: []float32{0, 1, 0}},
		{ID: "pending-fact", Name: "Pending", Kind: "attraction", City: "Hanoi"},
	}
}

func TestMemoryIndexQuery_RanksByCosine(t *testing.T) {
	idx, err := NewMemoryIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), testRecords()))

	hits, err := idx.Query(context.Background(), []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	require.Equal(t, "hanoi-old-quarter", hits[0].ID)
	require.Equal(t, "halong-bay", hits[1].ID)
	require.Greater(t, hits[0].Score, hits[1].Score)
}

func TestMemoryIndexQuery_SkipsPendingRows(t *testing.T) {
	idx, err := NewMemoryIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), testRecords()))

	hits, err := idx.Query(context.Background(), []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	for _, hit := range hits {
		require.NotEqual(t, "pending-fact", hit.ID)
	}
}

func TestMemoryIndex_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.json")
	idx, err := NewMemoryIndex(path)
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), testRecords()))

	reopened, err := NewMemoryIndex(path)
	require.NoError(t, err)
	count, err := reopened.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 4, count)
}

func TestMemoryIndex_BackfillFlow(t *testing.T) {
	idx, err := NewMemoryIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), testRecords()))

	pending, err := idx.ListPendingEmbedding(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "pending-fact", pending[0].ID)

	require.NoError(t, idx.SetEmbedding(context.Background(), "pending-fact", []float32{0, 0, 1}))
	pending, err = idx.ListPendingEmbedding(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestMemoryIndex_PruneExcept(t *testing.T) {
	idx, err := NewMemoryIndex(filepath.Join(t.TempDir(), "index.json"))
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(context.Background(), testRecords()))

	pruned, err := idx.PruneExcept(context.Background(), []string{"hanoi-old-quarter", "halong-bay"})
	require.NoError(t, err)
	require.EqualValues(t, 2, pruned)

	count, err := idx.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	pruned, err = idx.PruneExcept(context.Background(), nil)
	require.NoError(t, err)
	require.Zero(t, pruned)
}
