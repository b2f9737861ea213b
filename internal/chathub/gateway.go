package chathub

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"chatrooms/backend/internal/models"
	"chatrooms/backend/internal/storage"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownEvent is returned for inbound event names outside the vocabulary.
	ErrUnknownEvent = errors.New("unknown event")
	// ErrInvalidPayload is returned when an inbound payload fails to decode or validate.
	ErrInvalidPayload = errors.New("invalid payload")
)

var validate = validator.New()

// SessionState is the lifecycle position of one connection.
type SessionState int

const (
	StateConnected SessionState = iota
	StateIdentified
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateIdentified:
		return "identified"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// SessionHandler dispatches the inbound events of one connection.
type SessionHandler struct {
	hub     *ManagerService
	session Session

	mu       sync.Mutex
	state    SessionState
	username string
}

// Session returns the connection this handler serves.
func (h *SessionHandler) Session() Session { return h.session }

// State returns the current lifecycle state.
func (h *SessionHandler) State() SessionState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Username returns the identity registered on this connection, if any.
func (h *SessionHandler) Username() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.username
}

// Handle processes one inbound event. A failure is reported back to the
// client as an error event (or a failed ack) and also returned.
func (h *SessionHandler) Handle(in models.InboundEvent) error {
	err := h.dispatch(in)
	if err != nil {
		h.hub.log.Debug("inbound event rejected", "session", h.session.GetID(), "event", in.Event, "error", err)
	}

	if in.Ack != "" {
		ack := models.AckPayload{Ack: in.Ack, Success: err == nil}
		if err != nil {
			ack.Error = err.Error()
		}
		h.reply(models.NewEvent(models.EventAck, ack))
		return err
	}
	if err != nil {
		h.reply(models.NewEvent(models.EventError, models.ErrorPayload{
			Code:    errorCode(err),
			Message: err.Error(),
			Event:   in.Event,
		}))
	}
	return err
}

func (h *SessionHandler) dispatch(in models.InboundEvent) error {
	if h.State() == StateClosed {
		return ErrSessionClosed
	}

	switch in.Event {
	case models.EventRegister:
		var p models.RegisterPayload
		if err := decode(in.Data, &p); err != nil {
			return err
		}
		return h.register(strings.TrimSpace(p.Username))

	case models.EventJoinRoom:
		var p models.RoomPayload
		if err := decode(in.Data, &p); err != nil {
			return err
		}
		h.hub.Rooms.Join(p.ConversationID, h.session, h.nameOr(p.Username))
		return nil

	case models.EventLeaveRoom:
		var p models.RoomPayload
		if err := decode(in.Data, &p); err != nil {
			return err
		}
		h.hub.Rooms.Leave(p.ConversationID, h.session, h.nameOr(p.Username))
		return nil

	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err := decode(in.Data, &p); err != nil {
			return err
		}
		return h.sendMessage(p)

	case models.EventTyping:
		var p models.TypingStatus
		if err := decode(in.Data, &p); err != nil {
			return err
		}
		p.Username = h.nameOr(p.Username)
		h.hub.Rooms.RelayTyping(p.ConversationID, h.session, p)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, in.Event)
	}
}

func (h *SessionHandler) register(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidPayload)
	}

	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return ErrSessionClosed
	}
	h.state = StateIdentified
	h.username = username
	h.mu.Unlock()

	h.hub.Presence.Register(username, h.session)
	h.hub.log.Info("user registered", "session", h.session.GetID(), "username", username)
	return nil
}

func (h *SessionHandler) sendMessage(p models.SendMessagePayload) error {
	if !h.hub.opts.WriteThrough {
		h.hub.Rooms.BroadcastMessage(p.ConversationID, p.Message())
		return nil
	}

	stored, err := h.hub.Storage.AppendMessage(p.ConversationID, h.nameOr(p.Sender), p.Content)
	if err != nil {
		return err
	}
	h.hub.Rooms.BroadcastMessage(p.ConversationID, *stored)
	return nil
}

// Disconnect runs the cleanup path: the connection leaves the hub, its
// identities go offline and it is dropped from every room. Later events are
// rejected. Calling it again has no effect.
func (h *SessionHandler) Disconnect() {
	h.mu.Lock()
	if h.state == StateClosed {
		h.mu.Unlock()
		return
	}
	h.state = StateClosed
	username := h.username
	h.mu.Unlock()

	h.hub.forget(h.session)
	h.hub.Presence.UnregisterBySession(h.session)
	rooms := h.hub.Rooms.RemoveSession(h.session, username, h.hub.opts.NotifyLeaveOnDisconnect)
	if len(rooms) > 0 {
		h.hub.log.Debug("session removed from rooms", "session", h.session.GetID(), "rooms", rooms)
	}
}

// nameOr prefers the identity named in the payload and falls back to the
// one registered on the connection.
func (h *SessionHandler) nameOr(name string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return h.Username()
}

func (h *SessionHandler) reply(evt models.Event) {
	if err := h.session.Enqueue(evt); err != nil {
		h.hub.log.Debug("reply dropped", "session", h.session.GetID(), "event", evt.Event, "error", err)
	}
}

func decode(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrUnknownEvent):
		return models.ErrorCodeUnknownEvent
	case errors.Is(err, ErrInvalidPayload), errors.Is(err, storage.ErrInvalidArgument):
		return models.ErrorCodeInvalidMessage
	case errors.Is(err, storage.ErrNotFound):
		return models.ErrorCodeNotFound
	case errors.Is(err, ErrSessionClosed):
		return models.ErrorCodeSessionClosed
	default:
		return models.ErrorCodeInternal
	}
}
