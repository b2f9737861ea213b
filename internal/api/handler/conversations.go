package handler

import (
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
)

type createConversationRequest struct {
	Name         string   `json:"name" binding:"required"`
	Participants []string `json:"participants"`
}

type appendMessageRequest struct {
	ConversationID string `json:"conversationId" binding:"required"`
	Sender         string `json:"sender" binding:"required"`
	Content        string `json:"content" binding:"required"`
}

// ListConversations returns every conversation.
func (h *Handler) ListConversations(c *gin.Context) {
	c.JSON(http.StatusOK, h.Storage.ListConversations())
}

// GetConversation returns one conversation or 404.
func (h *Handler) GetConversation(c *gin.Context) {
	conv, err := h.Storage.GetConversation(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// CreateConversation registers a new conversation.
func (h *Handler) CreateConversation(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv, err := h.Storage.CreateConversation(req.Name, req.Participants)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.Log.Info("conversation created", "conversation_id", conv.ID, "name", conv.Name)
	c.JSON(http.StatusCreated, conv)
}

// ListMessages returns the most recent messages of a conversation. The limit
// query parameter defaults to the configured window and is capped.
func (h *Handler) ListMessages(c *gin.Context) {
	limit := h.defaultLimit()
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, h.maxLimit())
	}

	c.JSON(http.StatusOK, h.Storage.ListMessages(c.Param("id"), limit))
}

// AppendMessage stores a message through the authoritative path.
func (h *Handler) AppendMessage(c *gin.Context) {
	var req appendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg, err := h.Storage.AppendMessage(req.ConversationID, req.Sender, req.Content)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// SearchUsers matches known and online identities against q, case-insensitively.
func (h *Handler) SearchUsers(c *gin.Context) {
	q := strings.ToLower(strings.TrimSpace(c.Query("q")))

	all := lo.Uniq(append(h.Storage.KnownUsers(), h.Hub.Presence.Online()...))
	matches := lo.Filter(all, func(u string, _ int) bool {
		return strings.Contains(strings.ToLower(u), q)
	})
	sort.Strings(matches)
	c.JSON(http.StatusOK, matches)
}

// OnlineUsers lists the identities that currently own a connection.
func (h *Handler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, h.Hub.Presence.Online())
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrConflict):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func (h *Handler) defaultLimit() int {
	if h.Cfg != nil && h.Cfg.DefaultMessageLimit > 0 {
		return h.Cfg.DefaultMessageLimit
	}
	return config.DefaultMessageLimit
}

func (h *Handler) maxLimit() int {
	if h.Cfg != nil && h.Cfg.MaxMessageLimit > 0 {
		return h.Cfg.MaxMessageLimit
	}
	return config.MaxMessageLimit
}
