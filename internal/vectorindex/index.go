package vectorindex

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wayfarerhq/wayfarer/internal/config"
)

// Record is one fact row in the index. Embedding may be empty for
// rows written before their vector was computed.
type Record struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Kind        string    `json:"kind"`
	City        string    `json:"city"`
	Region      string    `json:"region"`
	Tags        []string  `json:"tags"`
	Description string    `json:"description"`
	EmbedText   string    `json:"embed_text"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

type Hit struct {
	Record
	Score float64
}

type Index interface {
	Upsert(ctx context.Context, recs []Record) error
	Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error)
	Count(ctx context.Context) (int64, error)
	ListEmbedTexts(ctx context.Context) (map[string]string, error)
	ListPendingEmbedding(ctx context.Context, limit int) ([]Record, error)
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	PruneExcept(ctx context.Context, keepIDs []string) (int64, error)
	Ping(ctx context.Context) error
}

func New(cfg config.VectorIndexConfig, database *sql.DB) (Index, error) {
	switch cfg.Type {
	case "postgres":
		if database == nil {
			return nil, fmt.Errorf("postgres index requires an open database")
		}
		return NewPostgresIndex(database), nil
	case "memory":
		return NewMemoryIndex(cfg.Memory.SnapshotPath)
	default:
		return nil, fmt.Errorf("unsupported vector index type: %s", cfg.Type)
	}
}
