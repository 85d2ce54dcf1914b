package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/ai"
	"github.com/wayfarerhq/wayfarer/internal/chat"
	"github.com/wayfarerhq/wayfarer/internal/graphstore"
	"github.com/wayfarerhq/wayfarer/internal/pkg/response"
	"github.com/wayfarerhq/wayfarer/internal/vectorindex"
)

const probeTimeout = 2 * time.Second

type HealthHandler struct {
	index     vectorindex.Index
	graph     graphstore.Store
	generator ai.IGenerator
	sessions  *chat.SessionManager
}

func NewHealthHandler(index vectorindex.Index, graph graphstore.Store, generator ai.IGenerator, sessions *chat.SessionManager) *HealthHandler {
	return &HealthHandler{index: index, graph: graph, generator: generator, sessions: sessions}
}

// Health reports per-service reachability. Retrieval stores are probed
// with a short ping; the generative upstream is a paid call, so only
// its configuration is checked. The endpoint itself always answers 200
// because a degraded engine still serves chat.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), probeTimeout)
	defer cancel()

	vectorOK := h.index.Ping(ctx) == nil
	graphOK := h.graph.Ping(ctx) == nil
	aiOK := h.generator != nil

	status := "healthy"
	if !vectorOK || !graphOK || !aiOK {
		status = "limited"
	}
	response.Success(c, gin.H{
		"status": status,
		"services": gin.H{
			"vector_search": vectorOK,
			"graph_search":  graphOK,
			"ai_chat":       aiOK,
		},
	})
}

func (h *HealthHandler) Stats(c *gin.Context) {
	sessions, turns := h.sessions.Stats()
	facts, err := h.index.Count(c.Request.Context())
	if err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("fact count unavailable", zap.Error(err))
		facts = 0
	}
	response.Success(c, gin.H{
		"active_sessions": sessions,
		"total_messages":  turns,
		"facts":           facts,
	})
}
