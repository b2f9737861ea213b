package chathub_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"chatrooms/backend/internal/chathub"
	"chatrooms/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockClient is a Session test double that records every delivered event.
type MockClient struct {
	id string

	mu     sync.Mutex
	events []models.Event
	closed bool
	fail   error
}

func newMockClient(id string) *MockClient {
	return &MockClient{id: id}
}

func (c *MockClient) GetID() string { return c.id }

func (c *MockClient) Enqueue(evt models.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return chathub.ErrSessionClosed
	}
	if c.fail != nil {
		return c.fail
	}
	c.events = append(c.events, evt)
	return nil
}

func (c *MockClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *MockClient) failWith(err error) {
	c.mu.Lock()
	c.fail = err
	c.mu.Unlock()
}

func (c *MockClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Received returns the delivered events with the given name.
func (c *MockClient) Received(name string) []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []models.Event
	for _, e := range c.events {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

func (c *MockClient) reset() {
	c.mu.Lock()
	c.events = nil
	c.mu.Unlock()
}

// MockMirror is a testify mock of chathub.EventMirror.
type MockMirror struct {
	mock.Mock
	calls chan string
}

func newMockMirror() *MockMirror {
	return &MockMirror{calls: make(chan string, 64)}
}

func (m *MockMirror) MirrorEvent(ctx context.Context, conversationID string, evt models.Event) error {
	args := m.Called(conversationID, evt.Event)
	m.calls <- evt.Event
	return args.Error(0)
}

func (m *MockMirror) waitFor(t *testing.T, n int) []string {
	t.Helper()
	var got []string
	deadline := time.After(2 * time.Second)
	for len(got) < n {
		select {
		case name := <-m.calls:
			got = append(got, name)
		case <-deadline:
			t.Fatalf("mirror saw %d events, want %d", len(got), n)
		}
	}
	return got
}
