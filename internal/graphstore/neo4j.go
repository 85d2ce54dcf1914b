package graphstore

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/model"
)

const targetDescLimit = 200

const directMatchQuery = `
MATCH (n:Entity)-[r]-(m:Entity)
WHERE toLower(n.name) CONTAINS toLower($query)
   OR toLower(n.description) CONTAINS toLower($query)
   OR any(tag IN n.tags WHERE toLower(tag) CONTAINS toLower($query))
RETURN n.id AS source_id, n.name AS source_name, type(r) AS rel,
       m.id AS target_id, m.name AS target_name, m.description AS target_desc
LIMIT $limit`

const expandMatchQuery = `
MATCH (n:Entity)-[]-(m:Entity)-[r]-(o:Entity)
WHERE (toLower(n.name) CONTAINS toLower($query)
   OR toLower(n.description) CONTAINS toLower($query)
   OR any(tag IN n.tags WHERE toLower(tag) CONTAINS toLower($query)))
   AND o.id <> n.id
RETURN m.id AS source_id, m.name AS source_name, type(r) AS rel,
       o.id AS target_id, o.name AS target_name, o.description AS target_desc
LIMIT $limit`

type neo4jStore struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jStore(cfg config.Neo4jConfig) (Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &neo4jStore{driver: driver, database: cfg.Database}, nil
}

func (s *neo4jStore) Query(ctx context.Context, text string, depth int, topM int) ([]Relation, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeRead,
	})
	defer session.Close(ctx)

	return neo4j.ExecuteRead(ctx, session, func(tx neo4j.ManagedTransaction) ([]Relation, error) {
		relations, err := runRelationQuery(ctx, tx, directMatchQuery, text, topM, 1, 1.0)
		if err != nil {
			return nil, err
		}
		if depth >= 2 && len(relations) < topM {
			expanded, err := runRelationQuery(ctx, tx, expandMatchQuery, text, topM, 2, 0.5)
			if err != nil {
				return nil, err
			}
			relations = append(relations, expanded...)
		}
		relations = dedupeRelations(relations)
		if len(relations) > topM {
			relations = relations[:topM]
		}
		return relations, nil
	})
}

func runRelationQuery(ctx context.Context, tx neo4j.ManagedTransaction, query, text string, limit, depth int, strength float64) ([]Relation, error) {
	res, err := tx.Run(ctx, query, map[string]any{"query": text, "limit": limit})
	if err != nil {
		return nil, err
	}
	records, err := res.Collect(ctx)
	if err != nil {
		return nil, err
	}
	relations := make([]Relation, 0, len(records))
	for _, record := range records {
		relations = append(relations, Relation{
			SourceID:   recordString(record, "source_id"),
			SourceName: recordString(record, "source_name"),
			Relation:   recordString(record, "rel"),
			TargetID:   recordString(record, "target_id"),
			TargetName: recordString(record, "target_name"),
			TargetDesc: clipRunes(recordString(record, "target_desc"), targetDescLimit),
			Strength:   strength,
			Depth:      depth,
		})
	}
	return relations, nil
}

func (s *neo4jStore) Load(ctx context.Context, places []model.Place) error {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: s.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	_, err := neo4j.ExecuteWrite(ctx, session, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `CREATE CONSTRAINT IF NOT EXISTS FOR (n:Entity) REQUIRE n.id IS UNIQUE`, nil); err != nil {
			return nil, err
		}

		nodes := make([]map[string]any, 0, len(places))
		for _, place := range places {
			nodes = append(nodes, map[string]any{
				"id":          place.ID,
				"name":        place.Name,
				"type":        place.Kind,
				"city":        place.City,
				"region":      place.Region,
				"tags":        place.Tags,
				"description": place.Description,
			})
		}
		const upsertNodes = `
UNWIND $nodes AS node
MERGE (n:Entity {id: node.id})
SET n.name = node.name, n.type = node.type, n.city = node.city,
    n.region = node.region, n.tags = node.tags, n.description = node.description`
		if _, err := tx.Run(ctx, upsertNodes, map[string]any{"nodes": nodes}); err != nil {
			return nil, err
		}

		// Relationship types cannot be parameterized, so connections are
		// grouped by sanitized type and merged one group at a time.
		byType := make(map[string][]map[string]any)
		for _, place := range places {
			for _, conn := range place.Connections {
				relType := sanitizeRelType(conn.Relation)
				byType[relType] = append(byType[relType], map[string]any{
					"source": place.ID,
					"target": conn.Target,
				})
			}
		}
		for relType, rels := range byType {
			query := fmt.Sprintf(`
UNWIND $rels AS rel
MATCH (a:Entity {id: rel.source}), (b:Entity {id: rel.target})
MERGE (a)-[r:%s]->(b)`, relType)
			if _, err := tx.Run(ctx, query, map[string]any{"rels": rels}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *neo4jStore) Ping(ctx context.Context) error {
	return s.driver.VerifyConnectivity(ctx)
}

func recordString(record *neo4j.Record, key string) string {
	val, ok := record.Get(key)
	if !ok || val == nil {
		return ""
	}
	s, _ := val.(string)
	return s
}

func dedupeRelations(relations []Relation) []Relation {
	seen := make(map[string]bool, len(relations))
	out := relations[:0]
	for _, rel := range relations {
		key := rel.SourceID + "|" + rel.Relation + "|" + rel.TargetID
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, rel)
	}
	return out
}

func sanitizeRelType(relation string) string {
	relation = strings.TrimSpace(strings.ToUpper(relation))
	if relation == "" {
		return "RELATED_TO"
	}
	var b strings.Builder
	for _, r := range relation {
		switch {
		case unicode.IsUpper(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(r)
		case r == ' ' || r == '-':
			b.WriteRune('_')
		}
	}
	cleaned := b.String()
	if cleaned == "" || unicode.IsDigit(rune(cleaned[0])) {
		return "RELATED_TO"
	}
	return cleaned
}

func clipRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
