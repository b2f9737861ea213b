package chathub

import (
	"errors"

	"chatrooms/backend/internal/models"
)

var (
	// ErrSendBufferFull is returned by Enqueue when the session's writer is behind.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrSessionClosed is returned once a session has been closed.
	ErrSessionClosed = errors.New("session closed")
)

// Session is one live client connection, independent of user identity.
// It abstracts the transport so the hub can treat every connection the same way.
type Session interface {
	// GetID returns the opaque connection identifier.
	GetID() string

	// Enqueue hands evt to the session's writer. It must not block: a slow
	// or dead session reports ErrSendBufferFull or ErrSessionClosed instead.
	Enqueue(evt models.Event) error

	// Close shuts the connection down. It is safe to call more than once.
	Close()
}
