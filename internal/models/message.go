package models

import "time"

// Message is one immutable entry of a conversation history.
type Message struct {
	// ID is unique across the process and grows with Seq.
	ID string `json:"id"`
	// Seq is the server-side append sequence. Zero for client-built messages
	// relayed without passing through the store.
	Seq            uint64    `json:"seq,omitempty"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// TypingStatus is a transient signal. It is relayed and never stored.
type TypingStatus struct {
	ConversationID string `json:"conversationId" validate:"required"`
	Username       string `json:"username"`
	IsTyping       bool   `json:"isTyping"`
}
