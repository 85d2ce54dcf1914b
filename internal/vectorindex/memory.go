package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"os"
	"sort"
	"sync"
)

// memoryIndex is a brute-force cosine index backed by a JSON snapshot
// file. It stands in for postgres in tests and single-file setups.
type memoryIndex struct {
	mu      sync.RWMutex
	path    string
	records map[string]Record
}

func NewMemoryIndex(path string) (Index, error) {
	idx := &memoryIndex{
		path:    path,
		records: make(map[string]Record),
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return idx, nil
		}
		return nil, err
	}
	var recs []Record
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	for _, rec := range recs {
		idx.records[rec.ID] = rec
	}
	return idx, nil
}

func (m *memoryIndex) Upsert(ctx context.Context, recs []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range recs {
		m.records[rec.ID] = rec
	}
	return m.persistLocked()
}

func (m *memoryIndex) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topK <= 0 {
		return nil, nil
	}
	hits := make([]Hit, 0, len(m.records))
	for _, rec := range m.records {
		if len(rec.Embedding) == 0 {
			continue
		}
		hits = append(hits, Hit{Record: rec, Score: cosineSimilarity(embedding, rec.Embedding)})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *memoryIndex) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

func (m *memoryIndex) ListEmbedTexts(ctx context.Context) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string, len(m.records))
	for id, rec := range m.records {
		result[id] = rec.EmbedText
	}
	return result, nil
}

func (m *memoryIndex) ListPendingEmbedding(ctx context.Context, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var recs []Record
	for _, rec := range m.records {
		if len(rec.Embedding) == 0 {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

func (m *memoryIndex) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil
	}
	rec.Embedding = embedding
	m.records[id] = rec
	return m.persistLocked()
}

func (m *memoryIndex) PruneExcept(ctx context.Context, keepIDs []string) (int64, error) {
	if len(keepIDs) == 0 {
		return 0, nil
	}
	keep := make(map[string]bool, len(keepIDs))
	for _, id := range keepIDs {
		keep[id] = true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var pruned int64
	for id := range m.records {
		if !keep[id] {
			delete(m.records, id)
			pruned++
		}
	}
	if pruned > 0 {
		if err := m.persistLocked(); err != nil {
			return pruned, err
		}
	}
	return pruned, nil
}

func (m *memoryIndex) Ping(ctx context.Context) error {
	return nil
}

func (m *memoryIndex) persistLocked() error {
	if m.path == "" {
		return nil
	}
	recs := make([]Record, 0, len(m.records))
	for _, rec := range m.records {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ID < recs[j].ID })
	data, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, data, 0o644)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
