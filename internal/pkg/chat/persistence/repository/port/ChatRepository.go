package repository

import (
	"context"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// ChatRepository defines persistence operations for conversations and messages.
//
// Adapters translate driver errors: a duplicate direct pair surfaces as
// chat.ErrConflict and a missing row as chat.ErrNotFound. Any other error is
// an infrastructure failure.
type ChatRepository interface {
	// CreateConversation inserts the conversation and its members atomically
	// and assigns c.ID. A non-group conversation whose DirectKey already
	// exists fails with chat.ErrConflict.
	CreateConversation(ctx context.Context, c *chat.Conversation, memberIDs []string) error
	FindDirect(ctx context.Context, directKey string) (*chat.Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error)
	ListConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error)
	// DeleteConversation removes the conversation, cascading to its messages.
	DeleteConversation(ctx context.Context, conversationID string) error
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)

	// SaveMessage persists m together with the sender's seen entry and
	// advances the conversation's last message if m is not older than it.
	// It assigns m.ID and m.Seq.
	SaveMessage(ctx context.Context, m *chat.Message) error
	GetMessage(ctx context.Context, messageID string) (*chat.Message, error)
	LatestMessage(ctx context.Context, conversationID string) (*chat.Message, error)
	// GetMessagesByConversation returns up to limit messages newest-first,
	// strictly older than before when it is non-nil.
	GetMessagesByConversation(ctx context.Context, conversationID string, before *chat.Cursor, limit int) ([]chat.Message, error)
	// AddSeen records userID in the message's seen-by set and reports
	// whether the set changed.
	AddSeen(ctx context.Context, messageID string, userID string, at time.Time) (bool, error)
}
