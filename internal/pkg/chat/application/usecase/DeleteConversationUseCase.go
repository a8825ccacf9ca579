package usecase

import (
	"context"
	"fmt"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"
)

type DeleteConversationInput struct {
	ConversationID string
	RequesterID    string
}

// DeleteConversationUseCase removes a conversation and its messages. Any
// member may delete. Other members hear about it on their personal channels
// and live subscribers of the conversation channel get the same event so
// they can leave.
type DeleteConversationUseCase struct {
	Repo        repository.ChatRepository
	Events      *Emitter
	Presence    Presence
	ReadRetries int
}

func NewDeleteConversationUseCase(repo repository.ChatRepository, events *Emitter, p Presence, readRetries int) *DeleteConversationUseCase {
	return &DeleteConversationUseCase{Repo: repo, Events: events, Presence: p, ReadRetries: readRetries}
}

func (uc *DeleteConversationUseCase) Execute(ctx context.Context, in DeleteConversationInput) error {
	if in.ConversationID == "" || in.RequesterID == "" {
		return fmt.Errorf("%w: conversation id and requester id are required", chat.ErrValidation)
	}
	conv, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (*chat.Conversation, error) {
		return uc.Repo.GetConversation(ctx, in.ConversationID)
	})
	if err != nil {
		return err
	}
	if !conv.HasMember(in.RequesterID) {
		return fmt.Errorf("%w: user %s", chat.ErrForbidden, in.RequesterID)
	}

	if err := uc.Repo.DeleteConversation(ctx, conv.ID); err != nil {
		return storeError(err)
	}

	for _, uid := range conv.MemberIDs() {
		if uid == in.RequesterID {
			continue
		}
		uc.Events.Notify(ctx, chat.ConversationRemoved{UserID: uid, ConversationID: conv.ID})
	}
	uc.Events.Notify(ctx, chat.ConversationRemoved{ConversationID: conv.ID})
	if uc.Presence != nil {
		uc.Presence.CloseRoom(presence.ConversationRoom(conv.ID))
	}
	return nil
}
