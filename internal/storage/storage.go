// Package storage keeps conversations and their message histories.
package storage

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/models"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Storage is the authoritative conversation store used by the REST surface
// and, in write-through mode, by the realtime gateway.
type Storage interface {
	ListConversations() []models.Conversation
	GetConversation(id string) (*models.Conversation, error)
	CreateConversation(name string, participants []string) (*models.Conversation, error)

	ListMessages(conversationID string, limit int) []models.Message
	AppendMessage(conversationID, sender, content string) (*models.Message, error)

	// KnownUsers returns every identity seen as a participant or sender.
	KnownUsers() []string
}

type conversationRecord struct {
	conv     models.Conversation
	messages []models.Message
}

// MemoryStore is an in-process Storage. The zero value is not usable; use NewMemoryStore.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversationRecord
	order         []string
	users         map[string]struct{}

	convSeq atomic.Uint64
	msgSeq  atomic.Uint64

	defaultLimit int
	now          func() time.Time
	convID       func(seq uint64) string
	log          *slog.Logger
}

// Option customises a MemoryStore.
type Option func(*MemoryStore)

// WithDefaultLimit sets the window used by ListMessages when limit <= 0.
func WithDefaultLimit(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.defaultLimit = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithConversationIDs replaces the conversation id generator, for tests.
func WithConversationIDs(gen func(seq uint64) string) Option {
	return func(s *MemoryStore) { s.convID = gen }
}

func defaultConversationID(seq uint64) string {
	return fmt.Sprintf("conv-%d-%s", seq, uuid.NewString())
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *MemoryStore) { s.log = l }
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		conversations: make(map[string]*conversationRecord),
		users:         make(map[string]struct{}),
		defaultLimit:  config.DefaultMessageLimit,
		now:           time.Now,
		convID:        defaultConversationID,
		log:           slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListConversations returns copies of all conversations in creation order.
func (s *MemoryStore) ListConversations() []models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.conversations[id].conv.Clone())
	}
	return out
}

// GetConversation returns a copy of the conversation or ErrNotFound.
func (s *MemoryStore) GetConversation(id string) (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.conversations[id]
	if !ok {
		return nil, fmt.Errorf("get %q: %w", id, ErrNotFound)
	}
	return rec.conv.Clone(), nil
}

// CreateConversation registers a new conversation with an empty history.
// Participants are trimmed and de-duplicated; blank entries are dropped.
func (s *MemoryStore) CreateConversation(name string, participants []string) (*models.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("conversation name is empty: %w", ErrInvalidArgument)
	}

	cleaned := lo.Uniq(lo.Filter(
		lo.Map(participants, func(p string, _ int) string { return strings.TrimSpace(p) }),
		func(p string, _ int) bool { return p != "" },
	))

	id := s.convID(s.convSeq.Add(1))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[id]; exists {
		s.log.Error("generated conversation id already in use", "conversation_id", id)
		return nil, fmt.Errorf("create %q: %w", id, ErrConflict)
	}

	rec := &conversationRecord{
		conv: models.Conversation{
			ID:           id,
			Name:         name,
			Participants: cleaned,
		},
	}
	s.conversations[id] = rec
	s.order = append(s.order, id)
	for _, p := range cleaned {
		s.users[p] = struct{}{}
	}

	s.log.Debug("conversation created", "conversation_id", id, "participants", len(cleaned))
	return rec.conv.Clone(), nil
}

// ListMessages returns the newest limit messages, oldest first. Unknown
// conversations yield an empty slice.
func (s *MemoryStore) ListMessages(conversationID string, limit int) []models.Message {
	if limit <= 0 {
		limit = s.defaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.conversations[conversationID]
	if !ok {
		return []models.Message{}
	}

	start := len(rec.messages) - limit
	if start < 0 {
		start = 0
	}
	out := make([]models.Message, len(rec.messages)-start)
	copy(out, rec.messages[start:])
	return out
}

// AppendMessage stores a message with a server-assigned id and timestamp.
func (s *MemoryStore) AppendMessage(conversationID, sender, content string) (*models.Message, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return nil, fmt.Errorf("message sender is empty: %w", ErrInvalidArgument)
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content is empty: %w", ErrInvalidArgument)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[conversationID]
	if !ok {
		return nil, fmt.Errorf("append to %q: %w", conversationID, ErrNotFound)
	}

	// The sequence is drawn under the lock so history order matches id order.
	seq := s.msgSeq.Add(1)
	msg := models.Message{
		ID:             fmt.Sprintf("msg-%d", seq),
		Seq:            seq,
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		Timestamp:      s.now(),
	}

	rec.messages = append(rec.messages, msg)
	last := msg
	rec.conv.LastMessage = &last
	s.users[sender] = struct{}{}

	return &msg, nil
}

// KnownUsers returns every identity seen so far, sorted.
func (s *MemoryStore) KnownUsers() []string {
	s.mu.RLock()
	users := lo.Keys(s.users)
	s.mu.RUnlock()

	sort.Strings(users)
	return users
}
