package models

// Conversation is a named chat between a fixed set of participants.
// It owns its message history; LastMessage is derived from that history.
type Conversation struct {
	// ID is the opaque unique identifier of the conversation.
	ID string `json:"id"`
	// Name is the display name shown in conversation lists.
	Name string `json:"name"`
	// Participants are the identities taking part, without duplicates.
	Participants []string `json:"participants"`
	// LastMessage is the most recently appended message, nil for an empty history.
	LastMessage *Message `json:"lastMessage,omitempty"`
	// UnreadCount is kept for client compatibility; read receipts are not tracked.
	UnreadCount int `json:"unreadCount"`
}

// HasParticipant reports whether identity takes part in the conversation.
func (c *Conversation) HasParticipant(identity string) bool {
	for _, p := range c.Participants {
		if p == identity {
			return true
		}
	}
	return false
}

// Clone returns a deep copy that shares no memory with c.
func (c *Conversation) Clone() *Conversation {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	return &out
}
