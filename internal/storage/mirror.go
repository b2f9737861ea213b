package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/models"

	"github.com/redis/go-redis/v9"
)

// Publisher is the part of the Redis client the mirror needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisMirror publishes room events to Redis Pub/Sub for external consumers.
// It is an outbound tap only: nothing in this process subscribes to it.
type RedisMirror struct {
	Redis  Publisher
	Prefix string
}

// NewRedisMirror creates a mirror publishing to <prefix><conversationId>.
func NewRedisMirror(rdb Publisher, prefix string) *RedisMirror {
	if prefix == "" {
		prefix = config.MirrorChannelPrefix
	}
	return &RedisMirror{Redis: rdb, Prefix: prefix}
}

// NewRedisClient connects to Redis and checks the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// Channel returns the Pub/Sub channel used for a conversation.
func (m *RedisMirror) Channel(conversationID string) string {
	return m.Prefix + conversationID
}

// MirrorEvent publishes evt on the conversation's channel.
func (m *RedisMirror) MirrorEvent(ctx context.Context, conversationID string, evt models.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", evt.Event, err)
	}

	if err := m.Redis.Publish(ctx, m.Channel(conversationID), string(payload)).Err(); err != nil {
		return fmt.Errorf("publish %s event: %w", evt.Event, err)
	}
	return nil
}
