package usecase

import (
	"context"
	"fmt"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
)

// ListConversationsUseCase returns the caller's conversations, most recently
// active first, each with members and last message expanded.
type ListConversationsUseCase struct {
	Repo        repository.ChatRepository
	Presence    Presence
	ReadRetries int
}

func NewListConversationsUseCase(repo repository.ChatRepository, p Presence, readRetries int) *ListConversationsUseCase {
	return &ListConversationsUseCase{Repo: repo, Presence: p, ReadRetries: readRetries}
}

func (uc *ListConversationsUseCase) Execute(ctx context.Context, userID string) ([]chat.Conversation, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", chat.ErrValidation)
	}
	convs, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) ([]chat.Conversation, error) {
		return uc.Repo.ListConversationsForUser(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if convs == nil {
		convs = []chat.Conversation{}
	}
	markConversationsOnline(uc.Presence, convs)
	return convs, nil
}

// ConversationIDs lists the ids only; it feeds presence room placement.
func (uc *ListConversationsUseCase) ConversationIDs(ctx context.Context, userID string) ([]string, error) {
	convs, err := uc.Execute(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(convs))
	for _, c := range convs {
		ids = append(ids, c.ID)
	}
	return ids, nil
}
