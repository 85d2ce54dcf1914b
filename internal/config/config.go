package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port                int               `json:"port"`
	LogConfig           logger.LogConfig  `json:"log_config"`
	CORSOrigins         []string          `json:"cors_origins"`
	ChatRateLimitMillis int               `json:"chat_rate_limit_millis"`
	VectorIndex         VectorIndexConfig `json:"vector_index"`
	Graph               GraphConfig       `json:"graph"`
	AI                  AIConfig          `json:"ai"`
	Retrieval           RetrievalConfig   `json:"retrieval"`
	Completion          CompletionConfig  `json:"completion"`
	Session             SessionConfig     `json:"session"`
	Dataset             DatasetConfig     `json:"dataset"`
	Jobs                JobsConfig        `json:"jobs"`
}

type VectorIndexConfig struct {
	Type     string              `json:"type"`
	Postgres PostgresIndexConfig `json:"postgres"`
	Memory   MemoryIndexConfig   `json:"memory"`
}

type PostgresIndexConfig struct {
	DSN string `json:"dsn"`
}

type MemoryIndexConfig struct {
	SnapshotPath string `json:"snapshot_path"`
}

type GraphConfig struct {
	Type  string      `json:"type"`
	Neo4j Neo4jConfig `json:"neo4j"`
}

type Neo4jConfig struct {
	URI      string `json:"uri"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

type AIProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Args     interface{} `json:"args"`
}

type AIConfig struct {
	Chat               []AIProviderConfig `json:"chat"`
	Embed              []AIProviderConfig `json:"embed"`
	EmbedDimension     int                `json:"embed_dimension"`
	EmbedCacheSize     int                `json:"embed_cache_size"`
	EmbedCacheTTLHours int                `json:"embed_cache_ttl_hours"`
}

type RetrievalConfig struct {
	TopK          int `json:"top_k"`
	TopM          int `json:"top_m"`
	GraphDepth    int `json:"graph_depth"`
	ContextBudget int `json:"context_budget"`
	HistoryTurns  int `json:"history_turns"`
	MaxQueryChars int `json:"max_query_chars"`
}

type CompletionConfig struct {
	TimeoutSeconds int     `json:"timeout_seconds"`
	MaxRetries     int     `json:"max_retries"`
	BackoffMillis  int     `json:"backoff_millis"`
	MaxTokens      int     `json:"max_tokens"`
	Temperature    float64 `json:"temperature"`
}

type SessionConfig struct {
	TTLMinutes int    `json:"ttl_minutes"`
	MaxTurns   int    `json:"max_turns"`
	CookieName string `json:"cookie_name"`
}

type DatasetConfig struct {
	Type string          `json:"type"`
	Path string          `json:"path"`
	S3   S3DatasetConfig `json:"s3"`
}

type S3DatasetConfig struct {
	Endpoint  string `json:"endpoint"`
	SecretID  string `json:"secret_id"`
	SecretKey string `json:"secret_key"`
	Bucket    string `json:"bucket"`
	Region    string `json:"region"`
	Key       string `json:"key"`
	UseSSL    bool   `json:"use_ssl"`
}

type JobsConfig struct {
	EmbeddingBackfillCron string `json:"embedding_backfill_cron"`
	SessionSweepCron      string `json:"session_sweep_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.ChatRateLimitMillis == 0 {
		cfg.ChatRateLimitMillis = 1000
	}
	if cfg.ChatRateLimitMillis < 0 {
		cfg.ChatRateLimitMillis = 0
	}
	if cfg.VectorIndex.Type == "" {
		cfg.VectorIndex.Type = "postgres"
	}
	switch cfg.VectorIndex.Type {
	case "postgres":
		if cfg.VectorIndex.Postgres.DSN == "" {
			return nil, fmt.Errorf("vector_index.postgres.dsn is required for postgres index")
		}
	case "memory":
		if cfg.VectorIndex.Memory.SnapshotPath == "" {
			return nil, fmt.Errorf("vector_index.memory.snapshot_path is required for memory index")
		}
	default:
		return nil, fmt.Errorf("vector_index.type must be postgres or memory")
	}
	if cfg.Graph.Type == "" {
		cfg.Graph.Type = "neo4j"
	}
	switch cfg.Graph.Type {
	case "neo4j":
		if cfg.Graph.Neo4j.URI == "" || cfg.Graph.Neo4j.User == "" || cfg.Graph.Neo4j.Password == "" {
			return nil, fmt.Errorf("graph.neo4j uri/user/password are required for neo4j store")
		}
		if cfg.Graph.Neo4j.Database == "" {
			cfg.Graph.Neo4j.Database = "neo4j"
		}
	case "memory":
	default:
		return nil, fmt.Errorf("graph.type must be neo4j or memory")
	}
	if len(cfg.AI.Chat) == 0 {
		return nil, fmt.Errorf("ai.chat requires at least one provider")
	}
	if len(cfg.AI.Embed) == 0 {
		return nil, fmt.Errorf("ai.embed requires at least one provider")
	}
	for i, entry := range cfg.AI.Chat {
		if entry.Provider == "" || entry.Model == "" {
			return nil, fmt.Errorf("ai.chat[%d] provider and model are required", i)
		}
	}
	for i, entry := range cfg.AI.Embed {
		if entry.Provider == "" || entry.Model == "" {
			return nil, fmt.Errorf("ai.embed[%d] provider and model are required", i)
		}
	}
	if cfg.AI.EmbedDimension == 0 {
		cfg.AI.EmbedDimension = 384
	}
	if cfg.AI.EmbedDimension < 0 {
		return nil, fmt.Errorf("ai.embed_dimension must be positive")
	}
	if cfg.AI.EmbedCacheSize == 0 {
		cfg.AI.EmbedCacheSize = 1024
	}
	if cfg.AI.EmbedCacheTTLHours == 0 {
		cfg.AI.EmbedCacheTTLHours = 6
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.TopM == 0 {
		cfg.Retrieval.TopM = 10
	}
	if cfg.Retrieval.TopK < 1 || cfg.Retrieval.TopM < 1 {
		return nil, fmt.Errorf("retrieval.top_k and retrieval.top_m must be positive")
	}
	if cfg.Retrieval.GraphDepth == 0 {
		cfg.Retrieval.GraphDepth = 2
	}
	if cfg.Retrieval.GraphDepth < 1 || cfg.Retrieval.GraphDepth > 2 {
		return nil, fmt.Errorf("retrieval.graph_depth must be 1 or 2")
	}
	if cfg.Retrieval.ContextBudget == 0 {
		cfg.Retrieval.ContextBudget = 4000
	}
	if cfg.Retrieval.ContextBudget < 1 {
		return nil, fmt.Errorf("retrieval.context_budget must be positive")
	}
	if cfg.Retrieval.HistoryTurns == 0 {
		cfg.Retrieval.HistoryTurns = 6
	}
	if cfg.Retrieval.HistoryTurns < 0 {
		return nil, fmt.Errorf("retrieval.history_turns must not be negative")
	}
	if cfg.Retrieval.MaxQueryChars == 0 {
		cfg.Retrieval.MaxQueryChars = 2000
	}
	if cfg.Completion.TimeoutSeconds == 0 {
		cfg.Completion.TimeoutSeconds = 30
	}
	if cfg.Completion.MaxRetries == 0 {
		cfg.Completion.MaxRetries = 2
	}
	if cfg.Completion.BackoffMillis == 0 {
		cfg.Completion.BackoffMillis = 500
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = 600
	}
	if cfg.Completion.Temperature == 0 {
		cfg.Completion.Temperature = 0.7
	}
	if cfg.Completion.TimeoutSeconds < 0 || cfg.Completion.MaxRetries < 0 || cfg.Completion.BackoffMillis < 0 {
		return nil, fmt.Errorf("completion timeout/retries/backoff must not be negative")
	}
	if cfg.Session.TTLMinutes == 0 {
		cfg.Session.TTLMinutes = 60
	}
	if cfg.Session.MaxTurns == 0 {
		cfg.Session.MaxTurns = 100
	}
	if cfg.Session.MaxTurns < cfg.Retrieval.HistoryTurns {
		return nil, fmt.Errorf("session.max_turns must be at least retrieval.history_turns")
	}
	if cfg.Session.CookieName == "" {
		cfg.Session.CookieName = "wayfarer_session"
	}
	if cfg.Dataset.Type == "" {
		cfg.Dataset.Type = "local"
	}
	switch cfg.Dataset.Type {
	case "local":
	case "s3":
		if cfg.Dataset.S3.Bucket == "" || cfg.Dataset.S3.Key == "" || cfg.Dataset.S3.SecretID == "" || cfg.Dataset.S3.SecretKey == "" {
			return nil, fmt.Errorf("dataset.s3 bucket/key/secret_id/secret_key are required for s3 dataset")
		}
		if cfg.Dataset.S3.Region == "" {
			cfg.Dataset.S3.Region = "us-east-1"
		}
	default:
		return nil, fmt.Errorf("dataset.type must be local or s3")
	}
	if cfg.Jobs.EmbeddingBackfillCron == "" {
		cfg.Jobs.EmbeddingBackfillCron = "*/10 * * * *"
	}
	if cfg.Jobs.SessionSweepCron == "" {
		cfg.Jobs.SessionSweepCron = "*/5 * * * *"
	}
	return &cfg, nil
}
