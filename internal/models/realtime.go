package models

import (
	"encoding/json"
	"time"
)

// Inbound event names (client -> server).
const (
	EventRegister    = "register"
	EventJoinRoom    = "joinRoom"
	EventLeaveRoom   = "leaveRoom"
	EventSendMessage = "sendMessage"
	EventTyping      = "typing"
)

// Outbound event names (server -> client).
const (
	EventUserStatus     = "userStatus"
	EventUserJoined     = "userJoined"
	EventUserLeft       = "userLeft"
	EventReceiveMessage = "receiveMessage"
	EventUserTyping     = "userTyping"
	EventAck            = "ack"
	EventError          = "error"
)

// Error codes carried by EventError and failed acks.
const (
	ErrorCodeInvalidMessage = "invalid_message"
	ErrorCodeUnknownEvent   = "unknown_event"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeSessionClosed  = "session_closed"
	ErrorCodeInternal       = "internal_error"
)

// InboundEvent is the frame a client sends. Data is decoded once Event is known.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	// Ack, when set, asks the server to answer with an EventAck carrying it back.
	Ack string `json:"ack,omitempty"`
}

// Event is the frame the server sends.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// NewEvent builds an outbound event.
func NewEvent(name string, data any) Event {
	return Event{Event: name, Data: data}
}

// RegisterPayload binds a connection to a user identity.
type RegisterPayload struct {
	Username string `json:"username" validate:"required"`
}

// RoomPayload is shared by joinRoom and leaveRoom.
type RoomPayload struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Username       string `json:"username"`
}

// SendMessagePayload is a client-built message. On the default realtime path
// it is relayed verbatim, client id and timestamp included.
type SendMessagePayload struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId" validate:"required"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// Message converts the payload into the relayed message form.
func (p SendMessagePayload) Message() Message {
	return Message{
		ID:             p.ID,
		ConversationID: p.ConversationID,
		Sender:         p.Sender,
		Content:        p.Content,
		Timestamp:      p.Timestamp,
	}
}

// UserStatus announces that an identity went online or offline.
type UserStatus struct {
	Username string `json:"username"`
	Online   bool   `json:"online"`
}

// RoomNotice is the payload of userJoined and userLeft.
type RoomNotice struct {
	Username       string    `json:"username"`
	ConversationID string    `json:"conversationId"`
	Timestamp      time.Time `json:"timestamp"`
}

// AckPayload answers an inbound event that carried an ack id.
type AckPayload struct {
	Ack     string `json:"ack"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// ErrorPayload describes why an inbound event was rejected.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}
