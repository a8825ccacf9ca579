package chat

import (
	"fmt"
	"strings"
	"time"
)

// Message is an entry in a conversation's log. Only its seen-by set
// changes after creation.
type Message struct {
	ID             string    `db:"id" json:"id"`
	Seq            int64     `db:"seq" json:"seq"`
	ConversationID string    `db:"conversation_id" json:"conversationId"`
	SenderID       string    `db:"sender_id" json:"senderId"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	Body           *string   `db:"body" json:"body,omitempty"`
	Image          *string   `db:"image" json:"image,omitempty"`

	Sender *User  `json:"sender,omitempty"`
	Seen   SeenBy `json:"seen"`
}

// NewMessage normalizes and validates a message before it is persisted.
// A whitespace-only body counts as absent.
func NewMessage(m Message) (*Message, error) {
	if m.ConversationID == "" || m.SenderID == "" {
		return nil, fmt.Errorf("%w: conversation id and sender id are required", ErrValidation)
	}

	m.Body = trimmed(m.Body)
	m.Image = trimmed(m.Image)

	if m.Body == nil && m.Image == nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, ErrEmptyMessage)
	}

	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	// The sender has always seen their own message.
	m.Seen = SeenBy{}
	m.Seen.Add(m.SenderID, m.CreatedAt)

	return &m, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// Before reports whether m sorts before o in conversation order:
// creation time first, insertion sequence on ties.
func (m *Message) Before(o *Message) bool {
	if !m.CreatedAt.Equal(o.CreatedAt) {
		return m.CreatedAt.Before(o.CreatedAt)
	}
	return m.Seq < o.Seq
}
