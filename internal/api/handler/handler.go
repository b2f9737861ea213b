package handler

import (
	"log/slog"
	"net/http"
	"time"

	"chatrooms/backend/internal/chathub"
	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/storage"

	"github.com/gin-gonic/gin"
)

// Handler holds the dependencies of the HTTP surface.
type Handler struct {
	Hub     *chathub.ManagerService
	Storage storage.Storage
	Cfg     *config.Config
	Log     *slog.Logger
}

func NewHandler(hub *chathub.ManagerService, s storage.Storage, cfg *config.Config, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{Hub: hub, Storage: s, Cfg: cfg, Log: log}
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger(h.Log))

	r.GET("/health", h.Health)
	r.GET("/ws", h.ServeWebSocket)

	chat := r.Group("/chat")
	{
		chat.GET("/conversations", h.ListConversations)
		chat.GET("/conversations/:id", h.GetConversation)
		chat.POST("/conversations", h.CreateConversation)
		chat.GET("/conversations/:id/messages", h.ListMessages)
		chat.POST("/messages", h.AppendMessage)
		chat.GET("/users/search", h.SearchUsers)
		chat.GET("/users/online", h.OnlineUsers)
	}
	return r
}

// Health reports liveness and the number of open connections.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "connections": h.Hub.ConnectionCount()})
}

// RequestLogger writes one slog line per request.
func RequestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}
