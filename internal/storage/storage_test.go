package storage_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"chatrooms/backend/internal/models"
	"chatrooms/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConversation(t *testing.T, s *storage.MemoryStore) *models.Conversation {
	t.Helper()
	conv, err := s.CreateConversation("General", []string{"Alice", "Bob"})
	require.NoError(t, err)
	return conv
}

func TestCreateConversation_AssignsUniqueIDs(t *testing.T) {
	s := storage.NewMemoryStore()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		conv, err := s.CreateConversation(fmt.Sprintf("room %d", i), nil)
		require.NoError(t, err)
		assert.False(t, seen[conv.ID], "duplicate id %s", conv.ID)
		seen[conv.ID] = true
	}
	assert.Len(t, s.ListConversations(), 100)
}

func TestCreateConversation_NormalisesParticipants(t *testing.T) {
	s := storage.NewMemoryStore()

	conv, err := s.CreateConversation("  Team  ", []string{"Alice", " Bob ", "Alice", "", "  "})
	require.NoError(t, err)

	assert.Equal(t, "Team", conv.Name)
	assert.Equal(t, []string{"Alice", "Bob"}, conv.Participants)
	assert.Nil(t, conv.LastMessage)
}

func TestCreateConversation_RejectsEmptyName(t *testing.T) {
	s := storage.NewMemoryStore()

	_, err := s.CreateConversation("   ", []string{"Alice"})

	assert.ErrorIs(t, err, storage.ErrInvalidArgument)
	assert.Empty(t, s.ListConversations())
}

func TestCreateConversation_ConflictNeverOverwrites(t *testing.T) {
	s := storage.NewMemoryStore(storage.WithConversationIDs(func(uint64) string { return "conv-fixed" }))

	first, err := s.CreateConversation("First", nil)
	require.NoError(t, err)

	_, err = s.CreateConversation("Second", nil)
	assert.ErrorIs(t, err, storage.ErrConflict)

	got, err := s.GetConversation(first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)
	assert.Len(t, s.ListConversations(), 1)
}

func TestListConversations_InsertionOrder(t *testing.T) {
	s := storage.NewMemoryStore()
	names := []string{"a", "b", "c", "d"}
	for _, n := range names {
		_, err := s.CreateConversation(n, nil)
		require.NoError(t, err)
	}

	var got []string
	for _, c := range s.ListConversations() {
		got = append(got, c.Name)
	}
	assert.Equal(t, names, got)
}

func TestGetConversation_NotFound(t *testing.T) {
	s := storage.NewMemoryStore()

	conv, err := s.GetConversation("missing")

	assert.Nil(t, conv)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetConversation_ReturnsCopy(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)

	got, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	got.Participants[0] = "Mallory"

	again, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", again.Participants[0])
}

func TestAppendMessage_IDsDistinctAndOrdered(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)

	var ids []string
	for i := 0; i < 20; i++ {
		msg, err := s.AppendMessage(conv.ID, "Bob", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	history := s.ListMessages(conv.ID, 1000)
	require.Len(t, history, 20)
	for i, m := range history {
		assert.Equal(t, ids[i], m.ID)
		assert.Equal(t, fmt.Sprintf("m%d", i), m.Content)
		if i > 0 {
			assert.Greater(t, m.Seq, history[i-1].Seq)
		}
	}
}

func TestAppendMessage_SameInstantStillUnique(t *testing.T) {
	frozen := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := storage.NewMemoryStore(storage.WithClock(func() time.Time { return frozen }))
	conv := newConversation(t, s)

	a, err := s.AppendMessage(conv.ID, "Alice", "one")
	require.NoError(t, err)
	b, err := s.AppendMessage(conv.ID, "Alice", "two")
	require.NoError(t, err)

	assert.Equal(t, a.Timestamp, b.Timestamp)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestAppendMessage_UpdatesLastMessage(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)

	_, err := s.AppendMessage(conv.ID, "Alice", "first")
	require.NoError(t, err)
	last, err := s.AppendMessage(conv.ID, "Bob", "second")
	require.NoError(t, err)

	got, err := s.GetConversation(conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessage)
	assert.Equal(t, last.ID, got.LastMessage.ID)
	assert.Equal(t, "second", got.LastMessage.Content)
}

func TestAppendMessage_UnknownConversationLeavesStateUntouched(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)
	before := s.ListConversations()
	usersBefore := s.KnownUsers()

	msg, err := s.AppendMessage("nope", "Eve", "hello")

	assert.Nil(t, msg)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, before, s.ListConversations())
	assert.Equal(t, usersBefore, s.KnownUsers())
	assert.Empty(t, s.ListMessages(conv.ID, 50))
	assert.Empty(t, s.ListMessages("nope", 50))
}

func TestAppendMessage_RejectsEmptyContentAndSender(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)

	_, err := s.AppendMessage(conv.ID, "Bob", "   ")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	_, err = s.AppendMessage(conv.ID, "", "hi")
	assert.ErrorIs(t, err, storage.ErrInvalidArgument)

	assert.Empty(t, s.ListMessages(conv.ID, 0))
}

func TestListMessages_ReturnsTailWindow(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)
	for i := 0; i < 10; i++ {
		_, err := s.AppendMessage(conv.ID, "Alice", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	window := s.ListMessages(conv.ID, 3)

	require.Len(t, window, 3)
	assert.Equal(t, "m7", window[0].Content)
	assert.Equal(t, "m8", window[1].Content)
	assert.Equal(t, "m9", window[2].Content)
}

func TestListMessages_DefaultLimit(t *testing.T) {
	s := storage.NewMemoryStore(storage.WithDefaultLimit(4))
	conv := newConversation(t, s)
	for i := 0; i < 6; i++ {
		_, err := s.AppendMessage(conv.ID, "Alice", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	window := s.ListMessages(conv.ID, 0)

	require.Len(t, window, 4)
	assert.Equal(t, "m2", window[0].Content)
	assert.Equal(t, "m5", window[3].Content)
}

func TestListMessages_UnknownConversationIsEmptyNotNil(t *testing.T) {
	s := storage.NewMemoryStore()

	got := s.ListMessages("missing", 10)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAppendMessage_ConcurrentAppendsAreTotallyOrdered(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)

	const writers, perWriter = 8, 50
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				_, err := s.AppendMessage(conv.ID, fmt.Sprintf("user%d", w), fmt.Sprintf("%d-%d", w, i))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	history := s.ListMessages(conv.ID, writers*perWriter)
	require.Len(t, history, writers*perWriter)

	ids := make(map[string]bool)
	lastPerWriter := make(map[string]int)
	for i, m := range history {
		assert.False(t, ids[m.ID])
		ids[m.ID] = true
		if i > 0 {
			assert.Greater(t, m.Seq, history[i-1].Seq)
		}
		// Each writer's messages keep their submission order.
		var w, n int
		_, err := fmt.Sscanf(m.Content, "%d-%d", &w, &n)
		require.NoError(t, err)
		if prev, ok := lastPerWriter[m.Sender]; ok {
			assert.Greater(t, n, prev)
		}
		lastPerWriter[m.Sender] = n
	}
}

func TestKnownUsers_CollectsParticipantsAndSenders(t *testing.T) {
	s := storage.NewMemoryStore()
	conv := newConversation(t, s)
	_, err := s.AppendMessage(conv.ID, "Charlie", "hey")
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, s.KnownUsers())
}

// TestScenario_CreateAppendList walks the REST path end to end at store level.
func TestScenario_CreateAppendList(t *testing.T) {
	s := storage.NewMemoryStore()

	conv, err := s.CreateConversation("General", []string{"Alice", "Bob"})
	require.NoError(t, err)

	_, err = s.AppendMessage(conv.ID, "Bob", "hi")
	require.NoError(t, err)

	msgs := s.ListMessages(conv.ID, 50)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Bob", msgs[0].Sender)
	assert.Equal(t, "hi", msgs[0].Content)
	assert.NotEmpty(t, msgs[0].ID)
	assert.False(t, msgs[0].Timestamp.IsZero())
	assert.Equal(t, conv.ID, msgs[0].ConversationID)
}
