package usecase

import (
	"context"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
)

type GetConversationInput struct {
	ConversationID string
	UserID         string
}

// GetConversationUseCase hides conversations from non-members entirely: they
// get ErrNotFound, not ErrForbidden.
type GetConversationUseCase struct {
	Repo        repository.ChatRepository
	Presence    Presence
	ReadRetries int
}

func NewGetConversationUseCase(repo repository.ChatRepository, p Presence, readRetries int) *GetConversationUseCase {
	return &GetConversationUseCase{Repo: repo, Presence: p, ReadRetries: readRetries}
}

func (uc *GetConversationUseCase) Execute(ctx context.Context, in GetConversationInput) (*chat.Conversation, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, chat.ErrNotFound
	}
	conv, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (*chat.Conversation, error) {
		return uc.Repo.GetConversation(ctx, in.ConversationID)
	})
	if err != nil {
		return nil, err
	}
	if !conv.HasMember(in.UserID) {
		return nil, chat.ErrNotFound
	}
	markOnline(uc.Presence, conv.Members)
	return conv, nil
}
