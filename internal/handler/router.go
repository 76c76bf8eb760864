package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/1Kunalvats9/dorry-backend/internal/middleware"
)

type RouterDeps struct {
	Documents *DocumentHandler
	Chat      *ChatHandler
	Events    *EventHandler
	JWTSecret []byte

	// Minimum interval between chat requests per (ip, user). Zero disables.
	ChatRateWindow time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))

	authGroup.POST("/documents/text", deps.Documents.CreateText)
	authGroup.POST("/documents/pdf", deps.Documents.UploadPDF)
	authGroup.GET("/documents", deps.Documents.List)
	authGroup.GET("/documents/:id", deps.Documents.Get)
	authGroup.DELETE("/documents/:id", deps.Documents.Delete)
	authGroup.DELETE("/documents", deps.Documents.Purge)
	authGroup.GET("/documents/:id/events", deps.Documents.ListEvents)

	authGroup.GET("/events", deps.Events.List)

	authGroup.POST("/chat", middleware.RateLimit(deps.ChatRateWindow), deps.Chat.Chat)
	authGroup.GET("/conversations", deps.Chat.ListConversations)
	authGroup.PUT("/conversations/:id", deps.Chat.RenameConversation)
	authGroup.GET("/conversations/:id/messages", deps.Chat.ListMessages)
}
