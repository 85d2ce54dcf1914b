package retrieval

import (
	"context"
	"fmt"

	"github.com/wayfarerhq/wayfarer/internal/graphstore"
	"github.com/wayfarerhq/wayfarer/internal/model"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const relationDescLimit = 100

// GraphRetriever adapts the graph store to the chat pipeline with the
// same degrade rule as the vector channel.
type GraphRetriever struct {
	store graphstore.Store
	depth int
	topM  int
}

func NewGraphRetriever(store graphstore.Store, depth int, topM int) *GraphRetriever {
	return &GraphRetriever{store: store, depth: depth, topM: topM}
}

func (r *GraphRetriever) Search(ctx context.Context, query string) []model.RetrievedRelation {
	relations, err := r.store.Query(ctx, query, r.depth, r.topM)
	if err != nil {
		logutil.GetLogger(ctx).Warn("graph search degraded, continuing without it", zap.Error(err))
		return nil
	}
	out := make([]model.RetrievedRelation, 0, len(relations))
	for _, rel := range relations {
		out = append(out, model.RetrievedRelation{
			ID:         rel.SourceID + "|" + rel.Relation + "|" + rel.TargetID,
			SourceID:   rel.SourceID,
			SourceName: rel.SourceName,
			Relation:   rel.Relation,
			TargetID:   rel.TargetID,
			TargetName: rel.TargetName,
			Text:       renderRelationText(rel),
			Strength:   rel.Strength,
			Depth:      rel.Depth,
		})
	}
	return out
}

func renderRelationText(rel graphstore.Relation) string {
	text := fmt.Sprintf("%s → %s → %s", rel.SourceName, rel.Relation, rel.TargetName)
	if rel.TargetDesc == "" {
		return text
	}
	desc := clipRunes(rel.TargetDesc, relationDescLimit)
	if desc != rel.TargetDesc {
		desc += "..."
	}
	return text + ": " + desc
}
