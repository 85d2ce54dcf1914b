package vectorindex

import (
	"context"
	"database/sql"
	"time"

	"github.com/didi/gendry/builder"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

type postgresIndex struct {
	db *sql.DB
}

func NewPostgresIndex(db *sql.DB) Index {
	return &postgresIndex{db: db}
}

// finalize rebinds gendry's question-mark placeholders for postgres.
func finalize(q string, args []interface{}, err error) (string, []interface{}, error) {
	if err != nil {
		return "", nil, err
	}
	return sqlx.Rebind(sqlx.DOLLAR, q), args, nil
}

func (p *postgresIndex) Upsert(ctx context.Context, recs []Record) error {
	const query = `
		INSERT INTO travel_facts (id, name, kind, city, region, tags, description, embed_text, embedding, ctime, mtime)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			kind = EXCLUDED.kind,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			tags = EXCLUDED.tags,
			description = EXCLUDED.description,
			embed_text = EXCLUDED.embed_text,
			embedding = EXCLUDED.embedding,
			mtime = EXCLUDED.mtime
	`
	now := time.Now().Unix()
	for _, rec := range recs {
		var emb interface{}
		if len(rec.Embedding) > 0 {
			emb = pgvector.NewVector(rec.Embedding)
		}
		if _, err := p.db.ExecContext(ctx, query,
			rec.ID, rec.Name, rec.Kind, rec.City, rec.Region,
			pq.Array(rec.Tags), rec.Description, rec.EmbedText, emb, now); err != nil {
			return err
		}
	}
	return nil
}

func (p *postgresIndex) Query(ctx context.Context, embedding []float32, topK int) ([]Hit, error) {
	const query = `
		SELECT id, name, kind, city, region, tags, description, embed_text,
			1 - (embedding <=> $1) AS score
		FROM travel_facts
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	`
	rows, err := p.db.QueryContext(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hits []Hit
	for rows.Next() {
		var hit Hit
		var tags pq.StringArray
		if err := rows.Scan(&hit.ID, &hit.Name, &hit.Kind, &hit.City, &hit.Region,
			&tags, &hit.Description, &hit.EmbedText, &hit.Score); err != nil {
			return nil, err
		}
		hit.Tags = tags
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (p *postgresIndex) Count(ctx context.Context) (int64, error) {
	const query = `SELECT COUNT(1) FROM travel_facts`
	var count int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *postgresIndex) ListEmbedTexts(ctx context.Context) (map[string]string, error) {
	sqlStr, args, err := finalize(builder.BuildSelect("travel_facts", nil, []string{"id", "embed_text"}))
	if err != nil {
		return nil, err
	}
	rows, err := p.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := make(map[string]string)
	for rows.Next() {
		var id, embedText string
		if err := rows.Scan(&id, &embedText); err != nil {
			return nil, err
		}
		result[id] = embedText
	}
	return result, rows.Err()
}

func (p *postgresIndex) ListPendingEmbedding(ctx context.Context, limit int) ([]Record, error) {
	const query = `
		SELECT id, name, kind, city, region, tags, description, embed_text
		FROM travel_facts
		WHERE embedding IS NULL
		ORDER BY mtime
		LIMIT $1
	`
	rows, err := p.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []Record
	for rows.Next() {
		var rec Record
		var tags pq.StringArray
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.Kind, &rec.City, &rec.Region,
			&tags, &rec.Description, &rec.EmbedText); err != nil {
			return nil, err
		}
		rec.Tags = tags
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (p *postgresIndex) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	const query = `UPDATE travel_facts SET embedding = $1, mtime = $2 WHERE id = $3`
	_, err := p.db.ExecContext(ctx, query, pgvector.NewVector(embedding), time.Now().Unix(), id)
	return err
}

func (p *postgresIndex) PruneExcept(ctx context.Context, keepIDs []string) (int64, error) {
	if len(keepIDs) == 0 {
		return 0, nil
	}
	query, args, err := sqlx.In(`DELETE FROM travel_facts WHERE id NOT IN (?)`, keepIDs)
	if err != nil {
		return 0, err
	}
	query = sqlx.Rebind(sqlx.DOLLAR, query)
	res, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (p *postgresIndex) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
