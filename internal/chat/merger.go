package chat

import (
	"strings"
	"unicode/utf8"

	"github.com/wayfarerhq/wayfarer/internal/model"
)

// Interleaver orders deduplicated items from the two retrieval
// channels. Vector similarity and graph match strength are not on a
// comparable scale, so ordering is positional, never score-based.
type Interleaver func(vector, graph []model.ContextItem) []model.ContextItem

// SourceOrderInterleave keeps the whole vector block ahead of the
// graph block, each in its channel's own ranking order.
func SourceOrderInterleave(vector, graph []model.ContextItem) []model.ContextItem {
	out := make([]model.ContextItem, 0, len(vector)+len(graph))
	out = append(out, vector...)
	out = append(out, graph...)
	return out
}

type Merger struct {
	budget     int
	interleave Interleaver
}

func NewMerger(charBudget int, interleave Interleaver) *Merger {
	if interleave == nil {
		interleave = SourceOrderInterleave
	}
	return &Merger{budget: charBudget, interleave: interleave}
}

func (m *Merger) Merge(facts []model.RetrievedFact, relations []model.RetrievedRelation) model.MergedContext {
	vector := make([]model.ContextItem, 0, len(facts))
	seenFacts := make(map[string]bool, len(facts))
	for _, fact := range facts {
		if fact.ID != "" && seenFacts[fact.ID] {
			continue
		}
		seenFacts[fact.ID] = true
		vector = append(vector, model.ContextItem{
			ID:     fact.ID,
			Source: model.SourceVector,
			Text:   fact.Text,
			Score:  fact.Score,
		})
	}
	graph := make([]model.ContextItem, 0, len(relations))
	seenRelations := make(map[string]bool, len(relations))
	for _, rel := range relations {
		if rel.ID != "" && seenRelations[rel.ID] {
			continue
		}
		seenRelations[rel.ID] = true
		graph = append(graph, model.ContextItem{
			ID:     rel.ID,
			Source: model.SourceGraph,
			Text:   rel.Text,
			Score:  rel.Strength,
		})
	}

	ordered := m.interleave(vector, graph)

	var merged model.MergedContext
	for _, item := range ordered {
		size := utf8.RuneCountInString(item.Text)
		if m.budget > 0 && merged.Chars+size > m.budget {
			if len(merged.Items) == 0 {
				item.Text = truncateAtBoundary(item.Text, m.budget)
				merged.Items = append(merged.Items, item)
				merged.Chars += utf8.RuneCountInString(item.Text)
				merged.Truncated = true
			}
			break
		}
		merged.Items = append(merged.Items, item)
		merged.Chars += size
	}
	return merged
}

// truncateAtBoundary cuts text down to at most budget runes, backing
// up to the last sentence end, or failing that the last space, so the
// kept fragment still reads as prose.
func truncateAtBoundary(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	cut := string(runes[:budget])
	if idx := strings.LastIndexAny(cut, ".!?"); idx > 0 {
		if candidate := strings.TrimSpace(cut[:idx+1]); candidate != "" {
			return candidate
		}
	}
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		if candidate := strings.TrimSpace(cut[:idx]); candidate != "" {
			return candidate
		}
	}
	return strings.TrimSpace(cut)
}
