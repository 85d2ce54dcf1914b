package loader

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/dataset"
	"github.com/wayfarerhq/wayfarer/internal/graphstore"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

const progressEvery = 25

// Loader populates the fact index and the graph from a dataset source.
// Re-runs are incremental: rows whose embed text is unchanged are left
// alone, rows missing from the dataset are pruned.
type Loader struct {
	source   dataset.Source
	embedder ai.IEmbedder
	index    vectorindex.Index
	graph    graphstore.Store
}

type Summary struct {
	Places        int
	Upserted      int
	Skipped       int
	EmbedFailures int
	Pruned        int64
}

func New(source dataset.Source, embedder ai.IEmbedder, index vectorindex.Index, graph graphstore.Store) *Loader {
	return &Loader{source: source, embedder: embedder, index: index, graph: graph}
}

func (l *Loader) Run(ctx context.Context) (*Summary, error) {
	places, err := dataset.Fetch(ctx, l.source)
	if err != nil {
		return nil, err
	}
	existing, err := l.index.ListEmbedTexts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list existing facts: %w", err)
	}

	summary := &Summary{Places: len(places)}
	records := make([]vectorindex.Record, 0, len(places))
	keep := make([]string, 0, len(places))
	for i, place := range places {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		keep = append(keep, place.ID)
		text := dataset.EmbedText(place)
		if existing[place.ID] == text {
			summary.Skipped++
			continue
		}
		rec := vectorindex.Record{
			ID:          place.ID,
			Name:        place.Name,
			Kind:        place.Kind,
			City:        place.City,
			Region:      place.Region,
			Tags:        place.Tags,
			Description: place.Description,
			EmbedText:   text,
		}
		// A failed embedding still stores the fact; the backfill job
		// fills the vector in later.
		embedding, err := l.embedder.Embed(ctx, text, ai.TaskTypeDocument)
		if err != nil {
			logutil.GetLogger(ctx).Warn("embed failed, storing fact without vector",
				zap.String("id", place.ID), zap.Error(err))
			summary.EmbedFailures++
		} else {
			rec.Embedding = embedding
		}
		records = append(records, rec)
		if (i+1)%progressEvery == 0 {
			logutil.GetLogger(ctx).Info("embedding dataset",
				zap.Int("done", i+1), zap.Int("total", len(places)))
		}
	}

	if len(records) > 0 {
		if err := l.index.Upsert(ctx, records); err != nil {
			return nil, fmt.Errorf("upsert facts: %w", err)
		}
	}
	summary.Upserted = len(records)

	if err := l.graph.Load(ctx, places); err != nil {
		return nil, fmt.Errorf("load graph: %w", err)
	}

	pruned, err := l.index.PruneExcept(ctx, keep)
	if err != nil {
		return nil, fmt.Errorf("prune stale facts: %w", err)
	}
	summary.Pruned = pruned

	logutil.GetLogger(ctx).Info("dataset loaded",
		zap.Int("places", summary.Places),
		zap.Int("upserted", summary.Upserted),
		zap.Int("skipped", summary.Skipped),
		zap.Int("embed_failures", summary.EmbedFailures),
		zap.Int64("pruned", summary.Pruned),
	)
	return summary, nil
}
