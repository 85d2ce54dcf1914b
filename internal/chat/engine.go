package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/model"
	apperrors "github.com/wayfarerhq/wayfarer/internal/pkg/errors"
	"github.com/wayfarerhq/wayfarer/internal/retrieval"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type EngineConfig struct {
	Embedder      ai.IEmbedder
	Vector        *retrieval.VectorRetriever
	Graph         *retrieval.GraphRetriever
	Merger        *Merger
	Prompts       *PromptBuilder
	Completer     *CompletionClient
	MaxQueryChars int
	HistoryTurns  int
}

// Engine sequences one question through embed, parallel retrieval,
// merge, prompt and completion, recording turns only after the answer
// arrives so a failed generation never leaves a dangling user turn.
type Engine struct {
	cfg EngineConfig
}

func NewEngine(cfg EngineConfig) *Engine {
	return &Engine{cfg: cfg}
}

type Answer struct {
	Text      string
	Sources   model.SourceCounts
	Timestamp time.Time
}

func (e *Engine) Chat(ctx context.Context, conv *Conversation, query string) (*Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: message is empty", apperrors.ErrInvalid)
	}
	if e.cfg.MaxQueryChars > 0 && utf8.RuneCountInString(query) > e.cfg.MaxQueryChars {
		return nil, fmt.Errorf("%w: message exceeds %d characters", apperrors.ErrInvalid, e.cfg.MaxQueryChars)
	}

	embedding, err := e.cfg.Embedder.Embed(ctx, query, ai.TaskTypeQuery)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query embedding failed, vector channel degraded", zap.Error(err))
		embedding = nil
	}

	var (
		wg        sync.WaitGroup
		facts     []model.RetrievedFact
		relations []model.RetrievedRelation
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		facts = e.cfg.Vector.Search(ctx, embedding)
	}()
	go func() {
		defer wg.Done()
		relations = e.cfg.Graph.Search(ctx, query)
	}()
	wg.Wait()

	merged := e.cfg.Merger.Merge(facts, relations)
	prompt := e.cfg.Prompts.Build(merged, conv.Tail(e.cfg.HistoryTurns), query)

	answer, err := e.cfg.Completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	sources := model.SourceCounts{
		VectorResults: len(facts),
		GraphResults:  len(relations),
	}
	now := time.Now()
	conv.Append(model.Turn{Role: model.RoleUser, Message: query, Timestamp: now})
	conv.Append(model.Turn{Role: model.RoleAssistant, Message: answer, Timestamp: now, Sources: &sources})

	logutil.GetLogger(ctx).Info("chat answered",
		zap.Int("vector_results", sources.VectorResults),
		zap.Int("graph_results", sources.GraphResults),
		zap.Int("context_items", len(merged.Items)),
		zap.Bool("context_truncated", merged.Truncated))

	return &Answer{Text: answer, Sources: sources, Timestamp: now}, nil
}
