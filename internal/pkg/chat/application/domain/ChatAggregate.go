package chat

import (
	"fmt"
	"time"
)

// Chat wraps a loaded conversation with the rules for posting into it. It
// never touches storage.
type Chat struct {
	Conversation  Conversation
	Participants  map[string]Participant // keyed by userID
	LastMessageAt *time.Time             // last persisted message CreatedAt, if known
}

// NewChat hydrates the aggregate from a loaded conversation.
func NewChat(conv Conversation) *Chat {
	c := &Chat{Conversation: conv, Participants: participantsOf(conv)}
	if !conv.LastMessageAt.IsZero() {
		at := conv.LastMessageAt
		c.LastMessageAt = &at
	}
	return c
}

// HasParticipant tells whether userID is part of this chat.
func (c *Chat) HasParticipant(userID string) bool {
	if c == nil || c.Participants == nil {
		return false
	}
	_, ok := c.Participants[userID]
	return ok
}

// PostMessage validates m against the conversation and returns the message
// to persist. The sender must be a member and the message needs a body or
// an image. A zero CreatedAt becomes now, and a timestamp older than
// LastMessageAt is raised to it so lastMessageAt never moves backwards
// under clock skew; ties are ordered by sequence.
func (c *Chat) PostMessage(m Message, now time.Time) (*Message, error) {
	if m.ConversationID == "" || c.Conversation.ID == "" || m.ConversationID != c.Conversation.ID {
		return nil, ErrInvalidConversation
	}

	if !c.HasParticipant(m.SenderID) {
		return nil, fmt.Errorf("%w: sender %s", ErrForbidden, m.SenderID)
	}

	ts := m.CreatedAt
	if ts.IsZero() {
		if now.IsZero() {
			now = time.Now()
		}
		ts = now
	}
	ts = ts.UTC()
	if c.LastMessageAt != nil && ts.Before(c.LastMessageAt.UTC()) {
		ts = c.LastMessageAt.UTC()
	}
	m.CreatedAt = ts

	msg, err := NewMessage(m)
	if err != nil {
		return nil, err
	}

	c.LastMessageAt = &ts
	return msg, nil
}
