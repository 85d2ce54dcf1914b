package handler

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/wayfarerhq/wayfarer/internal/chat"
	"github.com/wayfarerhq/wayfarer/internal/middleware"
	"github.com/wayfarerhq/wayfarer/internal/model"
	"github.com/wayfarerhq/wayfarer/internal/pkg/errcode"
	"github.com/wayfarerhq/wayfarer/internal/pkg/response"
)

type ChatHandler struct {
	engine   *chat.Engine
	sessions *chat.SessionManager
	md       goldmark.Markdown
}

func NewChatHandler(engine *chat.Engine, sessions *chat.SessionManager) *ChatHandler {
	// Answers are model output, so raw HTML stays escaped.
	return &ChatHandler{
		engine:   engine,
		sessions: sessions,
		md:       goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

func (h *ChatHandler) conversation(c *gin.Context) (*chat.Conversation, bool) {
	conv, ok := h.sessions.Get(middleware.SessionID(c))
	if !ok {
		response.Error(c, http.StatusInternalServerError, errcode.ErrSessionMissing, "session not established")
	}
	return conv, ok
}

func (h *ChatHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request body")
		return
	}
	conv, ok := h.conversation(c)
	if !ok {
		return
	}
	answer, err := h.engine.Chat(c.Request.Context(), conv, req.Message)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{
		"response":      answer.Text,
		"response_html": h.renderHTML(c, answer.Text),
		"sources":       answer.Sources,
		"timestamp":     answer.Timestamp.UTC().Format(time.RFC3339),
	})
}

func (h *ChatHandler) renderHTML(c *gin.Context, text string) string {
	var buf bytes.Buffer
	if err := h.md.Convert([]byte(text), &buf); err != nil {
		logutil.GetLogger(c.Request.Context()).Warn("markdown render failed", zap.Error(err))
		return ""
	}
	return buf.String()
}

func (h *ChatHandler) Conversation(c *gin.Context) {
	conv, ok := h.conversation(c)
	if !ok {
		return
	}
	turns := conv.All()
	out := make([]gin.H, 0, len(turns))
	for _, turn := range turns {
		item := gin.H{
			"role":      string(turn.Role),
			"message":   turn.Message,
			"timestamp": turn.Timestamp.UTC().Format(time.RFC3339),
		}
		if turn.Role == model.RoleAssistant && turn.Sources != nil {
			item["sources"] = turn.Sources
		}
		out = append(out, item)
	}
	response.Success(c, gin.H{"turns": out, "count": len(out)})
}

func (h *ChatHandler) Clear(c *gin.Context) {
	conv, ok := h.conversation(c)
	if !ok {
		return
	}
	conv.Clear()
	response.Success(c, gin.H{"cleared": true})
}
