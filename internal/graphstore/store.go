package graphstore

import (
	"context"
	"fmt"

	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/model"
)

// Relation is one edge surfaced by a graph lookup. Depth 1 edges touch
// a node that matched the query text directly; depth 2 edges extend one
// hop further and carry a proportionally weaker strength.
type Relation struct {
	SourceID   string
	SourceName string
	Relation   string
	TargetID   string
	TargetName string
	TargetDesc string
	Strength   float64
	Depth      int
}

type Store interface {
	Query(ctx context.Context, text string, depth int, topM int) ([]Relation, error)
	Load(ctx context.Context, places []model.Place) error
	Ping(ctx context.Context) error
}

func New(cfg config.GraphConfig) (Store, error) {
	switch cfg.Type {
	case "neo4j":
		return NewNeo4jStore(cfg.Neo4j)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported graph store type: %s", cfg.Type)
	}
}
