package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wayfarerhq/wayfarer/internal/chat"
	"github.com/wayfarerhq/wayfarer/internal/middleware"
)

type RouterDeps struct {
	Chat           *ChatHandler
	Health         *HealthHandler
	Sessions       *chat.SessionManager
	CookieName     string
	SessionTTL     time.Duration
	ChatRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/health", deps.Health.Health)
	api.GET("/stats", deps.Health.Stats)

	sessionGroup := api.Group("")
	sessionGroup.Use(middleware.Session(deps.Sessions, deps.CookieName, deps.SessionTTL))
	sessionGroup.POST("/chat", middleware.RateLimit(deps.ChatRateWindow), deps.Chat.Chat)
	sessionGroup.GET("/conversation", deps.Chat.Conversation)
	sessionGroup.POST("/clear", deps.Chat.Clear)
}
