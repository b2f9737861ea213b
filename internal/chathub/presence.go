package chathub

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// PresenceChange is emitted when an identity goes online or offline.
type PresenceChange struct {
	Username string
	Online   bool
	Session  Session
}

// PresenceRegistry maps each user identity to the one session that currently
// represents it. Last registration wins.
type PresenceRegistry struct {
	mu        sync.RWMutex
	byUser    map[string]Session
	bySession map[string]map[string]struct{}

	obsMu     sync.RWMutex
	observers map[uint64]func(PresenceChange)
	nextObs   uint64

	evictReplaced bool
	log           *slog.Logger
}

// NewPresenceRegistry creates an empty registry. With evictReplaced, a session
// that loses its identity to a newer registration is closed right away;
// otherwise it is left alone until it disconnects.
func NewPresenceRegistry(evictReplaced bool, log *slog.Logger) *PresenceRegistry {
	if log == nil {
		log = slog.Default()
	}
	return &PresenceRegistry{
		byUser:        make(map[string]Session),
		bySession:     make(map[string]map[string]struct{}),
		observers:     make(map[uint64]func(PresenceChange)),
		evictReplaced: evictReplaced,
		log:           log,
	}
}

// Register binds identity to session and announces it online. It returns the
// session that previously held the identity, if any.
func (p *PresenceRegistry) Register(identity string, session Session) Session {
	p.mu.Lock()
	prev, hadPrev := p.byUser[identity]
	if hadPrev && prev.GetID() == session.GetID() {
		hadPrev = false
	}
	if hadPrev {
		p.dropIdentityLocked(prev.GetID(), identity)
	}
	p.byUser[identity] = session
	owned := p.bySession[session.GetID()]
	if owned == nil {
		owned = make(map[string]struct{})
		p.bySession[session.GetID()] = owned
	}
	owned[identity] = struct{}{}
	p.mu.Unlock()

	if hadPrev {
		p.log.Info("identity moved to a new session",
			"username", identity, "old_session", prev.GetID(), "new_session", session.GetID())
		if p.evictReplaced {
			prev.Close()
		}
	}

	p.notify(PresenceChange{Username: identity, Online: true, Session: session})
	if hadPrev {
		return prev
	}
	return nil
}

// UnregisterBySession removes every identity still owned by session and
// announces each one offline. Identities since taken over by another session
// are left untouched.
func (p *PresenceRegistry) UnregisterBySession(session Session) []string {
	p.mu.Lock()
	owned := p.bySession[session.GetID()]
	delete(p.bySession, session.GetID())

	removed := make([]string, 0, len(owned))
	for identity := range owned {
		if cur, ok := p.byUser[identity]; ok && cur.GetID() == session.GetID() {
			delete(p.byUser, identity)
			removed = append(removed, identity)
		}
	}
	p.mu.Unlock()

	sort.Strings(removed)
	for _, identity := range removed {
		p.notify(PresenceChange{Username: identity, Online: false, Session: session})
	}
	return removed
}

// Lookup returns the session currently representing identity.
func (p *PresenceRegistry) Lookup(identity string) (Session, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.byUser[identity]
	return s, ok
}

// Online returns the identities that currently own a session, sorted.
func (p *PresenceRegistry) Online() []string {
	p.mu.RLock()
	users := lo.Keys(p.byUser)
	p.mu.RUnlock()

	sort.Strings(users)
	return users
}

// Subscribe registers fn for presence changes. The returned function removes
// the subscription and may be called any number of times.
func (p *PresenceRegistry) Subscribe(fn func(PresenceChange)) func() {
	p.obsMu.Lock()
	p.nextObs++
	id := p.nextObs
	p.observers[id] = fn
	p.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			p.obsMu.Lock()
			delete(p.observers, id)
			p.obsMu.Unlock()
		})
	}
}

func (p *PresenceRegistry) dropIdentityLocked(sessionID, identity string) {
	owned := p.bySession[sessionID]
	delete(owned, identity)
	if len(owned) == 0 {
		delete(p.bySession, sessionID)
	}
}

func (p *PresenceRegistry) notify(change PresenceChange) {
	p.obsMu.RLock()
	fns := lo.Values(p.observers)
	p.obsMu.RUnlock()

	for _, fn := range fns {
		fn(change)
	}
}
