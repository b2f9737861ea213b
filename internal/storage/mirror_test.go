package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"chatrooms/backend/internal/models"
	"chatrooms/backend/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	args := m.Called(channel, message)
	return redis.NewIntResult(int64(args.Int(0)), args.Error(1))
}

func TestRedisMirror_PublishesOnConversationChannel(t *testing.T) {
	pub := new(MockPublisher)
	mirror := storage.NewRedisMirror(pub, "")
	evt := models.NewEvent(models.EventUserTyping, models.TypingStatus{ConversationID: "conv-1", Username: "Alice", IsTyping: true})

	pub.On("Publish", "chat:conv-1", mock.AnythingOfType("string")).Return(1, nil)

	err := mirror.MirrorEvent(context.Background(), "conv-1", evt)
	require.NoError(t, err)

	pub.AssertExpectations(t)
	payload := pub.Calls[0].Arguments.String(1)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, models.EventUserTyping, decoded["event"])
}

func TestRedisMirror_CustomPrefix(t *testing.T) {
	mirror := storage.NewRedisMirror(new(MockPublisher), "audit:")
	assert.Equal(t, "audit:conv-9", mirror.Channel("conv-9"))
}

func TestRedisMirror_WrapsPublishError(t *testing.T) {
	pub := new(MockPublisher)
	mirror := storage.NewRedisMirror(pub, "chat:")
	boom := errors.New("connection refused")
	pub.On("Publish", "chat:conv-1", mock.Anything).Return(0, boom)

	err := mirror.MirrorEvent(context.Background(), "conv-1", models.NewEvent(models.EventUserLeft, nil))

	assert.ErrorIs(t, err, boom)
}
