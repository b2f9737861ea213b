package chathub

import (
	"context"
	"log/slog"
	"time"

	"chatrooms/backend/internal/config"
	"chatrooms/backend/internal/models"
)

// EventMirror receives a copy of every room event, e.g. to publish it on Redis.
type EventMirror interface {
	MirrorEvent(ctx context.Context, conversationID string, evt models.Event) error
}

type mirrorItem struct {
	conversationID string
	evt            models.Event
}

// MirrorPump forwards room events to an EventMirror from a single goroutine,
// so slow mirror I/O never holds up fanout and events keep their order.
type MirrorPump struct {
	mirror  EventMirror
	queue   chan mirrorItem
	timeout time.Duration
	log     *slog.Logger
}

// NewMirrorPump creates a pump with room for size pending events.
func NewMirrorPump(mirror EventMirror, size int, log *slog.Logger) *MirrorPump {
	if size <= 0 {
		size = config.SendBufferSize
	}
	if log == nil {
		log = slog.Default()
	}
	return &MirrorPump{
		mirror:  mirror,
		queue:   make(chan mirrorItem, size),
		timeout: config.MirrorPublishWait,
		log:     log,
	}
}

// Submit queues evt without blocking. When the queue is full the event is
// dropped and false is returned.
func (p *MirrorPump) Submit(conversationID string, evt models.Event) bool {
	select {
	case p.queue <- mirrorItem{conversationID: conversationID, evt: evt}:
		return true
	default:
		p.log.Warn("mirror queue full, dropping event", "conversation_id", conversationID, "event", evt.Event)
		return false
	}
}

// Run publishes queued events until ctx is cancelled.
func (p *MirrorPump) Run(ctx context.Context) {
	p.log.Info("event mirror started")
	for {
		select {
		case <-ctx.Done():
			p.log.Info("event mirror stopped")
			return
		case item := <-p.queue:
			pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
			if err := p.mirror.MirrorEvent(pubCtx, item.conversationID, item.evt); err != nil {
				p.log.Warn("mirror publish failed", "conversation_id", item.conversationID, "event", item.evt.Event, "error", err)
			}
			cancel()
		}
	}
}
