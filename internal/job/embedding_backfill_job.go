package job

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

const defaultBackfillBatch = 50

// EmbeddingBackfillJob fills in vectors for facts the loader stored
// without one, so a flaky embed provider during load only delays
// retrieval instead of losing rows.
type EmbeddingBackfillJob struct {
	index    vectorindex.Index
	embedder ai.IEmbedder
	batch    int
}

func NewEmbeddingBackfillJob(index vectorindex.Index, embedder ai.IEmbedder, batch int) *EmbeddingBackfillJob {
	if batch <= 0 {
		batch = defaultBackfillBatch
	}
	return &EmbeddingBackfillJob{index: index, embedder: embedder, batch: batch}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	pending, err := j.index.ListPendingEmbedding(ctx, j.batch)
	if err != nil {
		return fmt.Errorf("list pending embeddings: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}
	done := 0
	for _, rec := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		embedding, err := j.embedder.Embed(ctx, rec.EmbedText, ai.TaskTypeDocument)
		if err != nil {
			logutil.GetLogger(ctx).Warn("backfill embed failed",
				zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		if err := j.index.SetEmbedding(ctx, rec.ID, embedding); err != nil {
			return fmt.Errorf("store embedding for %s: %w", rec.ID, err)
		}
		done++
	}
	logutil.GetLogger(ctx).Info("embedding backfill pass",
		zap.Int("pending", len(pending)), zap.Int("embedded", done))
	return nil
}
