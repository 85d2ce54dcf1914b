package retrieval

import (
	"context"
	"strings"

	"github.com/wayfarerhq/wayfarer/internal/model"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

const factDescLimit = 300

// VectorRetriever adapts the vector index to the chat pipeline. Index
// failures degrade to zero results so the request can still be served
// from the graph channel.
type VectorRetriever struct {
	index vectorindex.Index
	topK  int
}

func NewVectorRetriever(index vectorindex.Index, topK int) *VectorRetriever {
	return &VectorRetriever{index: index, topK: topK}
}

func (r *VectorRetriever) Search(ctx context.Context, embedding []float32) []model.RetrievedFact {
	if len(embedding) == 0 {
		return nil
	}
	hits, err := r.index.Query(ctx, embedding, r.topK)
	if err != nil {
		logutil.GetLogger(ctx).Warn("vector search degraded, continuing without it", zap.Error(err))
		return nil
	}
	facts := make([]model.RetrievedFact, 0, len(hits))
	for _, hit := range hits {
		facts = append(facts, model.RetrievedFact{
			ID:    hit.ID,
			Name:  hit.Name,
			Kind:  hit.Kind,
			City:  factLocation(hit),
			Tags:  hit.Tags,
			Text:  renderFactText(hit),
			Score: hit.Score,
		})
	}
	return facts
}

func factLocation(hit vectorindex.Hit) string {
	if hit.City != "" {
		return hit.City
	}
	return hit.Region
}

func renderFactText(hit vectorindex.Hit) string {
	var b strings.Builder
	b.WriteString(hit.Name)
	if hit.Kind != "" {
		b.WriteString(" (" + hit.Kind + ")")
	}
	if loc := factLocation(hit); loc != "" {
		b.WriteString(" in " + loc)
	}
	if len(hit.Tags) > 0 {
		b.WriteString(". Tags: " + strings.Join(hit.Tags, ", "))
	}
	if desc := clipRunes(hit.Description, factDescLimit); desc != "" {
		b.WriteString(". " + desc)
	}
	return b.String()
}

func clipRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
