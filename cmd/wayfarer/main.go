package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/chat"
	"github.com/wayfarerhq/wayfarer/internal/config"
	"github.com/wayfarerhq/wayfarer/internal/dataset"
	"github.com/wayfarerhq/wayfarer/internal/db"
	"github.com/wayfarerhq/wayfarer/internal/embedcache"
	"github.com/wayfarerhq/wayfarer/internal/graphstore"
	"github.com/wayfarerhq/wayfarer/internal/handler"
	"github.com/wayfarerhq/wayfarer/internal/job"
	"github.com/wayfarerhq/wayfarer/internal/loader"
	"github.com/wayfarerhq/wayfarer/internal/middleware"
	"github.com/wayfarerhq/wayfarer/internal/retrieval"
	"github.com/wayfarerhq/wayfarer/internal/schedule"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "wayfarer",
		Short: "wayfarer travel assistant server",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the chat server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
	loadCmd := &cobra.Command{
		Use:   "load",
		Short: "load the places dataset into the vector index and graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runLoad(cfg)
		},
	}
	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "check connectivity to every backing service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(configPath)
			if err != nil {
				return err
			}
			return runVerify(cfg)
		},
	}
	rootCmd.AddCommand(runCmd, loadCmd, verifyCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, error) {
	if configPath == "" {
		return nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))
	return cfg, nil
}

func openStores(cfg *config.Config) (vectorindex.Index, graphstore.Store, error) {
	var database *sql.DB
	if cfg.VectorIndex.Type == "postgres" {
		var err error
		database, err = db.Open(cfg.VectorIndex.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := db.ApplyMigrations(database); err != nil {
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
	}
	index, err := vectorindex.New(cfg.VectorIndex, database)
	if err != nil {
		return nil, nil, fmt.Errorf("init vector index: %w", err)
	}
	graph, err := graphstore.New(cfg.Graph)
	if err != nil {
		return nil, nil, fmt.Errorf("init graph store: %w", err)
	}
	return index, graph, nil
}

func buildAI(cfg *config.Config) (ai.IGenerator, ai.IEmbedder, error) {
	generators := make([]ai.GeneratorEntry, 0, len(cfg.AI.Chat))
	for _, entry := range cfg.AI.Chat {
		provider, err := ai.NewProvider(entry.Provider, chatProviderArgs(entry.Args, cfg.Completion))
		if err != nil {
			return nil, nil, fmt.Errorf("init chat provider %s: %w", entry.Provider, err)
		}
		generators = append(generators, ai.GeneratorEntry{
			Name:      fmt.Sprintf("%s/%s", entry.Provider, entry.Model),
			Generator: ai.NewGenerator(provider, entry.Model),
		})
	}
	embedders := make([]ai.EmbedderEntry, 0, len(cfg.AI.Embed))
	for _, entry := range cfg.AI.Embed {
		provider, err := ai.NewEmbedProvider(entry.Provider, entry.Args)
		if err != nil {
			return nil, nil, fmt.Errorf("init embed provider %s: %w", entry.Provider, err)
		}
		embedders = append(embedders, ai.EmbedderEntry{
			Name:     fmt.Sprintf("%s/%s", entry.Provider, entry.Model),
			Embedder: ai.NewEmbedder(provider, entry.Model),
		})
	}
	generator := ai.NewGroupGenerator(generators)
	embedder := embedcache.WrapLruCacheToEmbedder(
		ai.NewGroupEmbedder(embedders),
		cfg.AI.EmbedCacheSize,
		time.Duration(cfg.AI.EmbedCacheTTLHours)*time.Hour,
	)
	return generator, embedder, nil
}

// chatProviderArgs folds the completion limits into each chat backend's
// args map. Keys already present in the provider config win.
func chatProviderArgs(args interface{}, comp config.CompletionConfig) interface{} {
	src, ok := args.(map[string]interface{})
	if !ok {
		return args
	}
	merged := make(map[string]interface{}, len(src)+2)
	for k, v := range src {
		merged[k] = v
	}
	if _, ok := merged["max_tokens"]; !ok && comp.MaxTokens > 0 {
		merged["max_tokens"] = comp.MaxTokens
	}
	if _, ok := merged["temperature"]; !ok && comp.Temperature > 0 {
		merged["temperature"] = comp.Temperature
	}
	return merged
}

func runServer(cfg *config.Config) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("vector_index", cfg.VectorIndex.Type),
		zap.String("graph", cfg.Graph.Type),
	)

	index, graph, err := openStores(cfg)
	if err != nil {
		return err
	}
	generator, embedder, err := buildAI(cfg)
	if err != nil {
		return err
	}

	sessions := chat.NewSessionManager(cfg.Session)
	engine := chat.NewEngine(chat.EngineConfig{
		Embedder:      embedder,
		Vector:        retrieval.NewVectorRetriever(index, cfg.Retrieval.TopK),
		Graph:         retrieval.NewGraphRetriever(graph, cfg.Retrieval.GraphDepth, cfg.Retrieval.TopM),
		Merger:        chat.NewMerger(cfg.Retrieval.ContextBudget, nil),
		Prompts:       chat.NewPromptBuilder(cfg.Retrieval.HistoryTurns),
		Completer:     chat.NewCompletionClient(generator, cfg.Completion),
		MaxQueryChars: cfg.Retrieval.MaxQueryChars,
		HistoryTurns:  cfg.Retrieval.HistoryTurns,
	})

	deps := handler.RouterDeps{
		Chat:           handler.NewChatHandler(engine, sessions),
		Health:         handler.NewHealthHandler(index, graph, generator, sessions),
		Sessions:       sessions,
		CookieName:     cfg.Session.CookieName,
		SessionTTL:     time.Duration(cfg.Session.TTLMinutes) * time.Minute,
		ChatRateWindow: time.Duration(cfg.ChatRateLimitMillis) * time.Millisecond,
	}

	webEngine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := schedule.New()
	if err := sched.Add(job.NewEmbeddingBackfillJob(index, embedder, 0), cfg.Jobs.EmbeddingBackfillCron); err != nil {
		return err
	}
	if err := sched.Add(job.NewSessionSweepJob(sessions), cfg.Jobs.SessionSweepCron); err != nil {
		return err
	}
	sched.Start(ctx)
	defer sched.Stop()

	logutil.GetLogger(ctx).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := webEngine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runLoad(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, graph, err := openStores(cfg)
	if err != nil {
		return err
	}
	_, embedder, err := buildAI(cfg)
	if err != nil {
		return err
	}
	source, err := dataset.NewSource(cfg.Dataset)
	if err != nil {
		return err
	}
	summary, err := loader.New(source, embedder, index, graph).Run(ctx)
	if err != nil {
		return err
	}
	if summary.EmbedFailures > 0 {
		logutil.GetLogger(ctx).Warn("some facts stored without vectors, backfill will retry",
			zap.Int64("count", summary.EmbedFailures))
	}
	return nil
}

func runVerify(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logutil.GetLogger(ctx)

	chatNames := make([]string, 0, len(cfg.AI.Chat))
	for _, entry := range cfg.AI.Chat {
		chatNames = append(chatNames, fmt.Sprintf("%s/%s", entry.Provider, entry.Model))
	}
	embedNames := make([]string, 0, len(cfg.AI.Embed))
	for _, entry := range cfg.AI.Embed {
		embedNames = append(embedNames, fmt.Sprintf("%s/%s", entry.Provider, entry.Model))
	}
	log.Info("verifying setup",
		zap.String("vector_index", cfg.VectorIndex.Type),
		zap.String("graph", cfg.Graph.Type),
		zap.Strings("chat_providers", chatNames),
		zap.Strings("embed_providers", embedNames))

	index, graph, err := openStores(cfg)
	if err != nil {
		return err
	}

	failed := 0
	if err := index.Ping(ctx); err != nil {
		log.Error("vector index unreachable", zap.Error(err))
		failed++
	} else if count, err := index.Count(ctx); err != nil {
		log.Error("vector index count failed", zap.Error(err))
		failed++
	} else {
		log.Info("vector index ok", zap.Int64("facts", count))
	}

	if err := graph.Ping(ctx); err != nil {
		log.Error("graph store unreachable", zap.Error(err))
		failed++
	} else {
		log.Info("graph store ok")
	}

	_, embedder, err := buildAI(cfg)
	if err != nil {
		return err
	}
	probeCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	embedding, err := embedder.Embed(probeCtx, "Where should I eat in Hanoi?", ai.TaskTypeQuery)
	switch {
	case err != nil:
		log.Error("embed probe failed", zap.Error(err))
		failed++
	case len(embedding) != cfg.AI.EmbedDimension:
		log.Error("embed dimension mismatch",
			zap.Int("got", len(embedding)), zap.Int("want", cfg.AI.EmbedDimension))
		failed++
	default:
		log.Info("embed provider ok", zap.Int("dimension", len(embedding)))
	}

	if failed > 0 {
		return fmt.Errorf("%d verification check(s) failed", failed)
	}
	log.Info("all checks passed")
	return nil
}
