package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wayfarerhq/wayfarer/internal/graphstore"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

type stubIndex struct {
	vectorindex.Index
	hits []vectorindex.Hit
	err  error
}

func (s *stubIndex) Query(ctx context.Context, embedding []float32, topK int) ([]vectorindex.Hit, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.hits) > topK {
		return s.hits[:topK], nil
	}
	return s.hits, nil
}

type stubGraph struct {
	graphstore.Store
	relations []graphstore.Relation
	err       error
}

func (s *stubGraph) Query(ctx context.Context, text string, depth int, topM int) ([]graphstore.Relation, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.relations, nil
}

func TestVectorRetriever_ComposesFactText(t *testing.T) {
	idx := &stubIndex{hits: []vectorindex.Hit{{
		Record: vectorindex.Record{
			ID:          "attr_old_quarter",
			Name:        "Old Quarter",
			Kind:        "Attraction",
			City:        "Hanoi",
			Tags:        []string{"walking", "food"},
			Description: "A maze of streets with traditional shop houses.",
		},
		Score: 0.91,
	}}}
	r := NewVectorRetriever(idx, 5)

	facts := r.Search(context.Background(), []float32{1, 0})
	require.Len(t, facts, 1)
	require.Equal(t, "attr_old_quarter", facts[0].ID)
	require.InDelta(t, 0.91, facts[0].Score, 1e-9)
	require.Equal(t, "Old Quarter (Attraction) in Hanoi. Tags: walking, food. A maze of streets with traditional shop houses.", facts[0].Text)
}

func TestVectorRetriever_UnreachableIndexDegrades(t *testing.T) {
	r := NewVectorRetriever(&stubIndex{err: errors.New("connection refused")}, 5)

	facts := r.Search(context.Background(), []float32{1, 0})
	require.Empty(t, facts)
}

func TestVectorRetriever_EmptyEmbeddingSkipsSearch(t *testing.T) {
	r := NewVectorRetriever(&stubIndex{hits: []vectorindex.Hit{{Record: vectorindex.Record{ID: "x"}}}}, 5)

	facts := r.Search(context.Background(), nil)
	require.Empty(t, facts)
}

func TestVectorRetriever_ClipsLongDescription(t *testing.T) {
	idx := &stubIndex{hits: []vectorindex.Hit{{
		Record: vectorindex.Record{
			ID:          "long",
			Name:        "Long Fact",
			Description: strings.Repeat("a", 500),
		},
		Score: 0.5,
	}}}
	r := NewVectorRetriever(idx, 5)

	facts := r.Search(context.Background(), []float32{1})
	require.Len(t, facts, 1)
	require.Contains(t, facts[0].Text, strings.Repeat("a", 300))
	require.NotContains(t, facts[0].Text, strings.Repeat("a", 301))
}

func TestGraphRetriever_ComposesRelationText(t *testing.T) {
	g := &stubGraph{relations: []graphstore.Relation{{
		SourceID:   "city_hanoi",
		SourceName: "Hanoi",
		Relation:   "HAS_ATTRACTION",
		TargetID:   "attr_old_quarter",
		TargetName: "Old Quarter",
		TargetDesc: "A maze of streets.",
		Strength:   1.0,
		Depth:      1,
	}}}
	r := NewGraphRetriever(g, 2, 10)

	relations := r.Search(context.Background(), "hanoi")
	require.Len(t, relations, 1)
	require.Equal(t, "city_hanoi|HAS_ATTRACTION|attr_old_quarter", relations[0].ID)
	require.Equal(t, "Hanoi → HAS_ATTRACTION → Old Quarter: A maze of streets.", relations[0].Text)
}

func TestGraphRetriever_UnreachableStoreDegrades(t *testing.T) {
	r := NewGraphRetriever(&stubGraph{err: errors.New("no route to host")}, 2, 10)

	relations := r.Search(context.Background(), "hanoi")
	require.Empty(t, relations)
}

func TestGraphRetriever_EllipsisOnClippedDescription(t *testing.T) {
	g := &stubGraph{relations: []graphstore.Relation{{
		SourceID:   "a",
		SourceName: "A",
		Relation:   "NEAR",
		TargetID:   "b",
		TargetName: "B",
		TargetDesc: strings.Repeat("x", 150),
	}}}
	r := NewGraphRetriever(g, 1, 10)

	relations := r.Search(context.Background(), "a")
	require.Len(t, relations, 1)
	require.True(t, strings.HasSuffix(relations[0].Text, "..."))
}
