package chathub

import (
	"context"
	"log/slog"
	"sync"

	"chatrooms/backend/internal/models"
	"chatrooms/backend/internal/storage"

	"github.com/google/uuid"
)

// GatewayOptions selects the realtime policies.
type GatewayOptions struct {
	// WriteThrough appends sendMessage events to the store and broadcasts the
	// stored copy. When false, client messages are relayed verbatim and the
	// store never sees them.
	WriteThrough bool
	// NotifyLeaveOnDisconnect sends userLeft to rooms a disconnecting session was in.
	NotifyLeaveOnDisconnect bool
}

// ManagerService owns every live connection and binds them to the presence
// registry, the room broadcaster and the conversation store.
type ManagerService struct {
	Storage  storage.Storage
	Presence *PresenceRegistry
	Rooms    *RoomBroadcaster

	opts GatewayOptions
	log  *slog.Logger

	mu       sync.RWMutex
	sessions map[string]Session

	unsubscribe func()
}

// NewManagerService wires the hub together and starts relaying presence
// changes to every connection.
func NewManagerService(s storage.Storage, presence *PresenceRegistry, rooms *RoomBroadcaster, opts GatewayOptions, log *slog.Logger) *ManagerService {
	if log == nil {
		log = slog.Default()
	}
	m := &ManagerService{
		Storage:  s,
		Presence: presence,
		Rooms:    rooms,
		opts:     opts,
		log:      log,
		sessions: make(map[string]Session),
	}
	m.unsubscribe = presence.Subscribe(m.onPresenceChange)
	return m
}

// NewSessionID returns a fresh connection identifier.
func NewSessionID() string {
	return "sess-" + uuid.NewString()
}

// Connect registers a freshly accepted session and returns its handler in
// the Connected state.
func (m *ManagerService) Connect(session Session) *SessionHandler {
	m.mu.Lock()
	m.sessions[session.GetID()] = session
	total := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("client connected", "session", session.GetID(), "connections", total)
	return &SessionHandler{hub: m, session: session, state: StateConnected}
}

// BroadcastAll delivers evt to every connection. Failures are logged and skipped.
func (m *ManagerService) BroadcastAll(evt models.Event) int {
	m.mu.RLock()
	targets := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	delivered := 0
	for _, s := range targets {
		if err := s.Enqueue(evt); err != nil {
			m.log.Debug("dropping broadcast for session", "session", s.GetID(), "event", evt.Event, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// ConnectionCount returns the number of live connections.
func (m *ManagerService) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown stops presence relaying and closes every connection. Handlers run
// their disconnect path as their transports wind down.
func (m *ManagerService) Shutdown(ctx context.Context) {
	m.unsubscribe()

	m.mu.RLock()
	targets := make([]Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		targets = append(targets, s)
	}
	m.mu.RUnlock()

	for _, s := range targets {
		if ctx.Err() != nil {
			return
		}
		s.Close()
	}
	m.log.Info("hub shut down", "closed", len(targets))
}

func (m *ManagerService) forget(session Session) {
	m.mu.Lock()
	delete(m.sessions, session.GetID())
	total := len(m.sessions)
	m.mu.Unlock()

	m.log.Info("client disconnected", "session", session.GetID(), "connections", total)
}

func (m *ManagerService) onPresenceChange(change PresenceChange) {
	m.BroadcastAll(models.NewEvent(models.EventUserStatus, models.UserStatus{
		Username: change.Username,
		Online:   change.Online,
	}))
}
