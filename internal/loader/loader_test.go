package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/dataset"
	"github.com/wayfarerhq/wayfarer/internal/graphstore"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

const twoPlaceDataset = `[
	{
		"id": "city_hanoi",
		"name": "Hanoi",
		"type": "city",
		"region": "Northern Vietnam",
		"tags": ["capital"],
		"description": "Vietnam's capital.",
		"connections": [{"relation": "CONTAINS", "target": "attr_old_quarter"}]
	},
	{
		"id": "attr_old_quarter",
		"name": "Old Quarter",
		"type": "attraction",
		"city": "Hanoi",
		"tags": ["walking"],
		"description": "Maze of guild streets."
	}
]`

const onePlaceDataset = `[
	{
		"id": "city_hanoi",
		"name": "Hanoi",
		"type": "city",
		"region": "Northern Vietnam",
		"tags": ["capital"],
		"description": "Vietnam's capital."
	}
]`

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

func (s *stubEmbedder) ModelName() string { return "stub-embed" }

func writeDataset(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newFixture(t *testing.T, dir, datasetJSON string, embedder *stubEmbedder) (*Loader, vectorindex.Index, graphstore.Store) {
	t.Helper()
	path := writeDataset(t, dir, datasetJSON)
	src, err := dataset.NewSource(config.DatasetConfig{Type: "local", Path: path})
	require.NoError(t, err)
	index, err := vectorindex.NewMemoryIndex(filepath.Join(dir, "vectors.json"))
	require.NoError(t, err)
	graph := graphstore.NewMemoryStore()
	return New(src, embedder, index, graph), index, graph
}

func TestLoaderRun_PopulatesIndexAndGraph(t *testing.T) {
	dir := t.TempDir()
	embedder := &stubEmbedder{vec: []float32{1, 0, 0}}
	l, index, graph := newFixture(t, dir, twoPlaceDataset, embedder)

	summary, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Places)
	require.Equal(t, 2, summary.Upserted)
	require.Zero(t, summary.Skipped)
	require.Zero(t, summary.EmbedFailures)

	count, err := index.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)

	relations, err := graph.Query(context.Background(), "hanoi", 1, 10)
	require.NoError(t, err)
	require.NotEmpty(t, relations)
}

func TestLoaderRun_SecondRunSkipsUnchanged(t *testing.T) {
	dir := t.TempDir()
	embedder := &stubEmbedder{vec: []float32{1, 0, 0}}
	l, _, _ := newFixture(t, dir, twoPlaceDataset, embedder)

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	firstCalls := embedder.calls

	summary, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Skipped)
	require.Zero(t, summary.Upserted)
	require.Equal(t, firstCalls, embedder.calls, "unchanged rows must not be re-embedded")
}

func TestLoaderRun_EmbedFailureStoresPendingRow(t *testing.T) {
	dir := t.TempDir()
	embedder := &stubEmbedder{err: errors.New("embed provider down")}
	l, index, _ := newFixture(t, dir, twoPlaceDataset, embedder)

	summary, err := l.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, summary.Upserted)
	require.Equal(t, 2, summary.EmbedFailures)

	pending, err := index.ListPendingEmbedding(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}

func TestLoaderRun_PrunesRemovedPlaces(t *testing.T) {
	dir := t.TempDir()
	embedder := &stubEmbedder{vec: []float32{1, 0, 0}}
	l, index, _ := newFixture(t, dir, twoPlaceDataset, embedder)

	_, err := l.Run(context.Background())
	require.NoError(t, err)

	writeDataset(t, dir, onePlaceDataset)
	summary, err := l.Run(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, summary.Pruned)

	count, err := index.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}
