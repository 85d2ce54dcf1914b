package graphstore

import (
	"context"
	"strings"
	"sync"

	"github.com/wayfarerhq/wayfarer/internal/model"
)

// memoryStore mirrors the neo4j matching rules over plain maps. It
// backs tests and single-process setups without a graph database.
type memoryStore struct {
	mu    sync.RWMutex
	nodes map[string]model.Place
	edges []memoryEdge
}

type memoryEdge struct {
	source string
	rel    string
	target string
}

func NewMemoryStore() Store {
	return &memoryStore{nodes: make(map[string]model.Place)}
}

func (m *memoryStore) Load(ctx context.Context, places []model.Place) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, place := range places {
		m.nodes[place.ID] = place
	}
	seen := make(map[string]bool, len(m.edges))
	for _, e := range m.edges {
		seen[e.source+"|"+e.rel+"|"+e.target] = true
	}
	for _, place := range places {
		for _, conn := range place.Connections {
			relType := sanitizeRelType(conn.Relation)
			if _, ok := m.nodes[conn.Target]; !ok {
				continue
			}
			key := place.ID + "|" + relType + "|" + conn.Target
			if seen[key] {
				continue
			}
			seen[key] = true
			m.edges = append(m.edges, memoryEdge{source: place.ID, rel: relType, target: conn.Target})
		}
	}
	return nil
}

func (m *memoryStore) Query(ctx context.Context, text string, depth int, topM int) ([]Relation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if topM <= 0 {
		return nil, nil
	}
	matched := m.matchNodes(text)
	if len(matched) == 0 {
		return nil, nil
	}

	var relations []Relation
	for _, e := range m.edges {
		if matched[e.source] {
			relations = append(relations, m.relation(e.source, e.rel, e.target, 1, 1.0))
		}
		if matched[e.target] {
			relations = append(relations, m.relation(e.target, e.rel, e.source, 1, 1.0))
		}
	}
	if depth >= 2 {
		neighbors := make(map[string]bool)
		for _, e := range m.edges {
			if matched[e.source] {
				neighbors[e.target] = true
			}
			if matched[e.target] {
				neighbors[e.source] = true
			}
		}
		for _, e := range m.edges {
			if neighbors[e.source] && !matched[e.target] {
				relations = append(relations, m.relation(e.source, e.rel, e.target, 2, 0.5))
			}
			if neighbors[e.target] && !matched[e.source] {
				relations = append(relations, m.relation(e.target, e.rel, e.source, 2, 0.5))
			}
		}
	}
	relations = dedupeRelations(relations)
	if len(relations) > topM {
		relations = relations[:topM]
	}
	return relations, nil
}

func (m *memoryStore) relation(sourceID, rel, targetID string, depth int, strength float64) Relation {
	source := m.nodes[sourceID]
	target := m.nodes[targetID]
	return Relation{
		SourceID:   sourceID,
		SourceName: source.Name,
		Relation:   rel,
		TargetID:   targetID,
		TargetName: target.Name,
		TargetDesc: clipRunes(target.Description, targetDescLimit),
		Strength:   strength,
		Depth:      depth,
	}
}

func (m *memoryStore) matchNodes(text string) map[string]bool {
	q := strings.ToLower(strings.TrimSpace(text))
	matched := make(map[string]bool)
	if q == "" {
		return matched
	}
	for id, node := range m.nodes {
		if strings.Contains(strings.ToLower(node.Name), q) ||
			strings.Contains(strings.ToLower(node.Description), q) {
			matched[id] = true
			continue
		}
		for _, tag := range node.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				matched[id] = true
				break
			}
		}
	}
	return matched
}

func (m *memoryStore) Ping(ctx context.Context) error {
	return nil
}
