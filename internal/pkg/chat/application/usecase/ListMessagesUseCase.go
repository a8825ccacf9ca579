package usecase

import (
	"context"
	"fmt"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
)

// ListMessagesInput pages through history newest-first. Cursor is the
// NextCursor of the previous page; empty starts from the newest message.
type ListMessagesInput struct {
	ConversationID string
	UserID         string
	Cursor         string
	Limit          int
}

type MessagePage struct {
	Messages   []chat.Message `json:"messages"`
	NextCursor string         `json:"nextCursor,omitempty"`
}

// ListMessagesUseCase fetches one page of a conversation's messages with
// sender and seen-by expanded. The page size is always bounded.
type ListMessagesUseCase struct {
	Repo        repository.ChatRepository
	PageSize    int
	PageMax     int
	ReadRetries int
}

func NewListMessagesUseCase(repo repository.ChatRepository, pageSize, pageMax, readRetries int) *ListMessagesUseCase {
	return &ListMessagesUseCase{Repo: repo, PageSize: pageSize, PageMax: pageMax, ReadRetries: readRetries}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, in ListMessagesInput) (MessagePage, error) {
	if in.ConversationID == "" {
		return MessagePage{}, fmt.Errorf("%w: conversationId is required", chat.ErrValidation)
	}
	cursor, err := chat.ParseCursor(in.Cursor)
	if err != nil {
		return MessagePage{}, err
	}
	limit := uc.limit(in.Limit)

	member, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (bool, error) {
		return uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	})
	if err != nil {
		return MessagePage{}, err
	}
	if !member {
		return MessagePage{}, fmt.Errorf("%w: user %s", chat.ErrForbidden, in.UserID)
	}

	// One extra row tells whether another page exists.
	msgs, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) ([]chat.Message, error) {
		return uc.Repo.GetMessagesByConversation(ctx, in.ConversationID, cursor, limit+1)
	})
	if err != nil {
		return MessagePage{}, err
	}

	page := MessagePage{Messages: msgs}
	if len(msgs) > limit {
		page.Messages = msgs[:limit]
		page.NextCursor = chat.CursorAfter(page.Messages[limit-1]).Encode()
	}
	if page.Messages == nil {
		page.Messages = []chat.Message{}
	}
	return page, nil
}

func (uc *ListMessagesUseCase) limit(requested int) int {
	size, max := uc.PageSize, uc.PageMax
	if max <= 0 {
		max = 50
	}
	if size <= 0 || size > max {
		size = max
	}
	switch {
	case requested <= 0:
		return size
	case requested > max:
		return max
	default:
		return requested
	}
}
