package job

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wayfarerhq/wayfarer/internal/chat"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

type stubEmbedder struct {
	vec    []float32
	failOn string
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	s.calls++
	if s.failOn != "" && text == s.failOn {
		return nil, fmt.Errorf("embed provider down")
	}
	return s.vec, nil
}

func (s *stubEmbedder) ModelName() string { return "stub-embed" }

func newBackfillIndex(t *testing.T, recs []vectorindex.Record) vectorindex.Index {
	t.Helper()
	index, err := vectorindex.NewMemoryIndex(filepath.Join(t.TempDir(), "vectors.json"))
	require.NoError(t, err)
	require.NoError(t, index.Upsert(context.Background(), recs))
	return index
}

func TestBackfill_FillsPendingRows(t *testing.T) {
	index := newBackfillIndex(t, []vectorindex.Record{
		{ID: "a", Name: "A", EmbedText: "first fact"},
		{ID: "b", Name: "B", EmbedText: "second fact"},
		{ID: "c", Name: "C", EmbedText: "third fact", Embedding: []float32{0.5, 0.5}},
	})
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2}}

	runner := NewEmbeddingBackfillJob(index, embedder, 10)
	require.Equal(t, "embedding_backfill", runner.Name())
	require.NoError(t, runner.Run(context.Background()))

	pending, err := index.ListPendingEmbedding(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, pending)
	require.Equal(t, 2, embedder.calls)
}

func TestBackfill_SkipsFailedEmbedAndContinues(t *testing.T) {
	index := newBackfillIndex(t, []vectorindex.Record{
		{ID: "a", Name: "A", EmbedText: "first fact"},
		{ID: "b", Name: "B", EmbedText: "second fact"},
	})
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2}, failOn: "first fact"}

	runner := NewEmbeddingBackfillJob(index, embedder, 10)
	require.NoError(t, runner.Run(context.Background()))

	pending, err := index.ListPendingEmbedding(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "a", pending[0].ID)
}

func TestBackfill_NoPendingIsNoop(t *testing.T) {
	index := newBackfillIndex(t, []vectorindex.Record{
		{ID: "a", Name: "A", EmbedText: "first fact", Embedding: []float32{0.3, 0.4}},
	})
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2}}

	runner := NewEmbeddingBackfillJob(index, embedder, 10)
	require.NoError(t, runner.Run(context.Background()))
	require.Zero(t, embedder.calls)
}

func TestSessionSweep_RunsClean(t *testing.T) {
	sessions := chat.NewSessionManager(config.SessionConfig{TTLMinutes: 30, MaxTurns: 10})
	sessions.GetOrCreate("")

	runner := NewSessionSweepJob(sessions)
	require.Equal(t, "session_sweep", runner.Name())
	require.NoError(t, runner.Run(context.Background()))

	count, _ := sessions.Stats()
	require.Equal(t, 1, count)
}
