package chathub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/models"

	"github.com/gorilla/websocket"
)

// ClientOptions tunes a WebSocket connection. Zero fields fall back to the
// defaults in the config package.
type ClientOptions struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
	SendBuffer     int
}

func (o ClientOptions) withDefaults() ClientOptions {
	if o.WriteWait <= 0 {
		o.WriteWait = config.WriteWait
	}
	if o.PongWait <= 0 {
		o.PongWait = config.PongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = (o.PongWait * 9) / 10
	}
	if o.MaxMessageSize <= 0 {
		o.MaxMessageSize = config.MaxMessageSize
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = config.SendBufferSize
	}
	return o
}

// WebSocketClient implements Session over a gorilla/websocket connection.
type WebSocketClient struct {
	ID   string
	Conn *websocket.Conn

	send      chan models.Event
	done      chan struct{}
	closeOnce sync.Once

	opts ClientOptions
	log  *slog.Logger
}

// NewWebSocketClient wraps an upgraded connection.
func NewWebSocketClient(conn *websocket.Conn, opts ClientOptions, log *slog.Logger) *WebSocketClient {
	opts = opts.withDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &WebSocketClient{
		ID:   NewSessionID(),
		Conn: conn,
		send: make(chan models.Event, opts.SendBuffer),
		done: make(chan struct{}),
		opts: opts,
		log:  log,
	}
}

func (c *WebSocketClient) GetID() string { return c.ID }

// Enqueue never blocks; the send channel is never closed, so racing a
// concurrent Close cannot panic.
func (c *WebSocketClient) Enqueue(evt models.Event) error {
	select {
	case <-c.done:
		return ErrSessionClosed
	default:
	}

	select {
	case c.send <- evt:
		return nil
	default:
		return ErrSendBufferFull
	}
}

// Close stops the writer, which then closes the socket.
func (c *WebSocketClient) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Run starts the read and write pumps for h's connection.
func (c *WebSocketClient) Run(h *SessionHandler) {
	go c.writePump()
	go c.readPump(h)
}

func (c *WebSocketClient) readPump(h *SessionHandler) {
	defer func() {
		h.Disconnect()
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.opts.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.log.Warn("websocket read failed", "session", c.ID, "error", err)
			}
			return
		}

		var in models.InboundEvent
		if err := json.Unmarshal(data, &in); err != nil {
			c.log.Debug("undecodable frame", "session", c.ID, "error", err)
			_ = c.Enqueue(models.NewEvent(models.EventError, models.ErrorPayload{
				Code:    models.ErrorCodeInvalidMessage,
				Message: "invalid JSON message",
			}))
			continue
		}

		_ = h.Handle(in)
	}
}

func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case evt := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.Conn.WriteJSON(evt); err != nil {
				c.log.Debug("websocket write failed", "session", c.ID, "event", evt.Event, "error", err)
				c.Close()
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
