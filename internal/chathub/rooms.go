package chathub

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"chatrooms/backend/internal/models"

	"github.com/samber/lo"
)

// RoomBroadcaster tracks which sessions are subscribed to which conversation
// and fans events out to them. It knows nothing about the conversation store.
type RoomBroadcaster struct {
	mu          sync.RWMutex
	rooms       map[string]map[string]Session
	memberships map[string]map[string]struct{}

	mirror *MirrorPump
	now    func() time.Time
	log    *slog.Logger
}

// NewRoomBroadcaster creates a broadcaster. mirror may be nil.
func NewRoomBroadcaster(mirror *MirrorPump, log *slog.Logger) *RoomBroadcaster {
	if log == nil {
		log = slog.Default()
	}
	return &RoomBroadcaster{
		rooms:       make(map[string]map[string]Session),
		memberships: make(map[string]map[string]struct{}),
		mirror:      mirror,
		now:         time.Now,
		log:         log,
	}
}

// Join subscribes session to the room and tells the other members. Joining a
// room twice is a no-op and returns false.
func (b *RoomBroadcaster) Join(conversationID string, session Session, username string) bool {
	b.mu.Lock()
	members := b.rooms[conversationID]
	if members == nil {
		members = make(map[string]Session)
		b.rooms[conversationID] = members
	}
	if _, already := members[session.GetID()]; already {
		b.mu.Unlock()
		return false
	}
	members[session.GetID()] = session
	joined := b.memberships[session.GetID()]
	if joined == nil {
		joined = make(map[string]struct{})
		b.memberships[session.GetID()] = joined
	}
	joined[conversationID] = struct{}{}
	others := snapshotExcept(members, session.GetID())
	b.mu.Unlock()

	b.log.Info("session joined room", "session", session.GetID(), "username", username, "conversation_id", conversationID)

	b.deliver(conversationID, others, models.NewEvent(models.EventUserJoined, models.RoomNotice{
		Username:       username,
		ConversationID: conversationID,
		Timestamp:      b.now(),
	}))
	return true
}

// Leave unsubscribes session from the room and tells the remaining members.
// Leaving a room the session is not in is a no-op and returns false.
func (b *RoomBroadcaster) Leave(conversationID string, session Session, username string) bool {
	b.mu.Lock()
	if !b.removeLocked(conversationID, session.GetID()) {
		b.mu.Unlock()
		return false
	}
	remaining := snapshotExcept(b.rooms[conversationID], session.GetID())
	b.mu.Unlock()

	b.log.Info("session left room", "session", session.GetID(), "username", username, "conversation_id", conversationID)

	b.deliver(conversationID, remaining, models.NewEvent(models.EventUserLeft, models.RoomNotice{
		Username:       username,
		ConversationID: conversationID,
		Timestamp:      b.now(),
	}))
	return true
}

// BroadcastMessage delivers msg to every member of the room, the sender's own
// session included. It returns the number of sessions that accepted it.
func (b *RoomBroadcaster) BroadcastMessage(conversationID string, msg models.Message) int {
	b.mu.RLock()
	members := snapshotExcept(b.rooms[conversationID], "")
	b.mu.RUnlock()

	return b.deliver(conversationID, members, models.NewEvent(models.EventReceiveMessage, msg))
}

// RelayTyping delivers status to every member of the room except from.
func (b *RoomBroadcaster) RelayTyping(conversationID string, from Session, status models.TypingStatus) int {
	b.mu.RLock()
	others := snapshotExcept(b.rooms[conversationID], from.GetID())
	b.mu.RUnlock()

	return b.deliver(conversationID, others, models.NewEvent(models.EventUserTyping, status))
}

// RemoveSession drops session from every room it belongs to and returns
// those rooms, sorted. With notify set, remaining members get a userLeft
// notice carrying username.
func (b *RoomBroadcaster) RemoveSession(session Session, username string, notify bool) []string {
	type notice struct {
		room    string
		members []Session
	}

	b.mu.Lock()
	rooms := lo.Keys(b.memberships[session.GetID()])
	sort.Strings(rooms)
	notices := make([]notice, 0, len(rooms))
	for _, room := range rooms {
		b.removeLocked(room, session.GetID())
		if notify {
			notices = append(notices, notice{room: room, members: snapshotExcept(b.rooms[room], "")})
		}
	}
	delete(b.memberships, session.GetID())
	b.mu.Unlock()

	for _, n := range notices {
		b.deliver(n.room, n.members, models.NewEvent(models.EventUserLeft, models.RoomNotice{
			Username:       username,
			ConversationID: n.room,
			Timestamp:      b.now(),
		}))
	}
	return rooms
}

// Members returns the ids of the sessions subscribed to the room, sorted.
func (b *RoomBroadcaster) Members(conversationID string) []string {
	b.mu.RLock()
	ids := lo.Keys(b.rooms[conversationID])
	b.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// RoomsOf returns the rooms session is subscribed to, sorted.
func (b *RoomBroadcaster) RoomsOf(session Session) []string {
	b.mu.RLock()
	rooms := lo.Keys(b.memberships[session.GetID()])
	b.mu.RUnlock()

	sort.Strings(rooms)
	return rooms
}

// removeLocked drops one membership and prunes empty maps. b.mu must be held.
func (b *RoomBroadcaster) removeLocked(conversationID, sessionID string) bool {
	members, ok := b.rooms[conversationID]
	if !ok {
		return false
	}
	if _, ok := members[sessionID]; !ok {
		return false
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(b.rooms, conversationID)
	}
	if joined := b.memberships[sessionID]; joined != nil {
		delete(joined, conversationID)
		if len(joined) == 0 {
			delete(b.memberships, sessionID)
		}
	}
	return true
}

// deliver sends evt to each session without holding any lock. Failures are
// logged and skipped so one dead peer never stops the rest of the fanout.
func (b *RoomBroadcaster) deliver(conversationID string, sessions []Session, evt models.Event) int {
	delivered := 0
	for _, s := range sessions {
		if err := s.Enqueue(evt); err != nil {
			b.log.Debug("dropping event for session",
				"session", s.GetID(), "conversation_id", conversationID, "event", evt.Event, "error", err)
			continue
		}
		delivered++
	}
	if b.mirror != nil {
		b.mirror.Submit(conversationID, evt)
	}
	return delivered
}

func snapshotExcept(members map[string]Session, exclude string) []Session {
	out := make([]Session, 0, len(members))
	for id, s := range members {
		if id != exclude {
			out = append(out, s)
		}
	}
	return out
}
