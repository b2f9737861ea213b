package handler

import (
	"net/http"

	"chatrooms/backend/internal/chathub"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func (h *Handler) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || h.Cfg == nil {
				return true
			}
			return h.Cfg.OriginAllowed(origin)
		},
	}
}

// ServeWebSocket upgrades the request and hands the connection to the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		h.Log.Warn("websocket upgrade failed", "error", err, "client_ip", c.ClientIP())
		return
	}

	var opts chathub.ClientOptions
	if h.Cfg != nil {
		opts = chathub.ClientOptions{
			WriteWait:      h.Cfg.WriteWait,
			PongWait:       h.Cfg.PongWait,
			PingPeriod:     h.Cfg.PingPeriod(),
			MaxMessageSize: h.Cfg.MaxMessageSize,
			SendBuffer:     h.Cfg.SendBufferSize,
		}
	}

	client := chathub.NewWebSocketClient(conn, opts, h.Log)
	session := h.Hub.Connect(client)
	client.Run(session)
}
