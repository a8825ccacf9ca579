package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"
)

// CreateGroupInput carries the required data to open a new group conversation.
// MemberIDs may or may not include the creator.
type CreateGroupInput struct {
	CreatorID string
	MemberIDs []string
	Name      string
}

// CreateGroupUseCase always creates a new conversation; groups are never
// de-duplicated.
type CreateGroupUseCase struct {
	Repo     repository.ChatRepository
	Users    *UserDirectory
	Events   *Emitter
	Presence Presence
	Now      func() time.Time
}

func NewCreateGroupUseCase(repo repository.ChatRepository, users *UserDirectory, events *Emitter, p Presence) *CreateGroupUseCase {
	return &CreateGroupUseCase{Repo: repo, Users: users, Events: events, Presence: p, Now: time.Now}
}

func (uc *CreateGroupUseCase) Execute(ctx context.Context, in CreateGroupInput) (*chat.Conversation, error) {
	conv, members, err := chat.NewGroup(in.CreatorID, in.MemberIDs, in.Name, uc.Now())
	if err != nil {
		return nil, err
	}
	for _, uid := range members {
		if uid == in.CreatorID {
			continue
		}
		if _, err := uc.Users.Get(ctx, uid); err != nil {
			if errors.Is(err, chat.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown user %s", chat.ErrValidation, uid)
			}
			return nil, storeError(err)
		}
	}

	if err := uc.Repo.CreateConversation(ctx, conv, members); err != nil {
		return nil, storeError(err)
	}

	markOnline(uc.Presence, conv.Members)
	for _, uid := range members {
		uc.Events.Notify(ctx, chat.ConversationNew{UserID: uid, Conversation: conv})
	}
	if uc.Presence != nil {
		uc.Presence.EnterRoom(ctx, presence.ConversationRoom(conv.ID), members...)
	}
	return conv, nil
}
