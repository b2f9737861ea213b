package chathub_test

import (
	"fmt"
	"sync"
	"testing"

	"chatrooms/backend/internal/chathub"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type changeLog struct {
	mu      sync.Mutex
	changes []chathub.PresenceChange
}

func (l *changeLog) record(c chathub.PresenceChange) {
	l.mu.Lock()
	l.changes = append(l.changes, c)
	l.mu.Unlock()
}

func (l *changeLog) all() []chathub.PresenceChange {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]chathub.PresenceChange(nil), l.changes...)
}

func TestPresence_RegisterAnnouncesOnline(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)
	var log changeLog
	p.Subscribe(log.record)
	a := newMockClient("A")

	prev := p.Register("Alice", a)

	assert.Nil(t, prev)
	got, ok := p.Lookup("Alice")
	require.True(t, ok)
	assert.Equal(t, "A", got.GetID())
	require.Len(t, log.all(), 1)
	assert.Equal(t, "Alice", log.all()[0].Username)
	assert.True(t, log.all()[0].Online)
}

func TestPresence_UnregisterAnnouncesOffline(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)
	var log changeLog
	a := newMockClient("A")
	p.Register("Alice", a)
	p.Subscribe(log.record)

	removed := p.UnregisterBySession(a)

	assert.Equal(t, []string{"Alice"}, removed)
	_, ok := p.Lookup("Alice")
	assert.False(t, ok)
	require.Len(t, log.all(), 1)
	assert.False(t, log.all()[0].Online)
}

func TestPresence_UnregisterUnknownSessionIsSilent(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)
	var log changeLog
	p.Subscribe(log.record)

	removed := p.UnregisterBySession(newMockClient("ghost"))

	assert.Empty(t, removed)
	assert.Empty(t, log.all())
}

// TestPresence_StaleDisconnectKeepsNewOwner: Alice on A, then Alice on B,
// then A disconnects. B must keep the identity.
func TestPresence_StaleDisconnectKeepsNewOwner(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)
	var log changeLog
	a, b := newMockClient("A"), newMockClient("B")

	p.Register("Alice", a)
	prev := p.Register("Alice", b)
	require.NotNil(t, prev)
	assert.Equal(t, "A", prev.GetID())
	assert.False(t, a.isClosed(), "replaced session is orphaned, not closed")

	p.Subscribe(log.record)
	removed := p.UnregisterBySession(a)

	assert.Empty(t, removed)
	assert.Empty(t, log.all(), "no offline signal when nothing was removed")
	got, ok := p.Lookup("Alice")
	require.True(t, ok)
	assert.Equal(t, "B", got.GetID())
	assert.Equal(t, []string{"Alice"}, p.Online())
}

func TestPresence_EvictReplacedClosesOldSession(t *testing.T) {
	p := chathub.NewPresenceRegistry(true, nil)
	a, b := newMockClient("A"), newMockClient("B")

	p.Register("Alice", a)
	p.Register("Alice", b)

	assert.True(t, a.isClosed())
	assert.False(t, b.isClosed())
}

func TestPresence_SessionWithSeveralIdentities(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)
	a := newMockClient("A")
	p.Register("Alice", a)
	p.Register("Bob", a)

	removed := p.UnregisterBySession(a)

	assert.Equal(t, []string{"Alice", "Bob"}, removed)
	assert.Empty(t, p.Online())
}

func TestPresence_SubscribeDisposerIsIdempotent(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)
	var log changeLog
	dispose := p.Subscribe(log.record)

	dispose()
	dispose()
	p.Register("Alice", newMockClient("A"))

	assert.Empty(t, log.all())
}

func TestPresence_ConcurrentRegisterAndUnregister(t *testing.T) {
	p := chathub.NewPresenceRegistry(false, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := newMockClient(fmt.Sprintf("s-%d", i))
			p.Register("Alice", s)
			p.UnregisterBySession(s)
		}(i)
	}
	wg.Wait()

	// Every session that registered also unregistered, so whoever ended up
	// owning Alice was removed by its own disconnect.
	_, ok := p.Lookup("Alice")
	assert.False(t, ok)
}
