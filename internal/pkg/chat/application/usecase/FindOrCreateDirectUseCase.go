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

type FindOrCreateDirectInput struct {
	UserID      string
	OtherUserID string
}

// FindOrCreateDirectUseCase returns the single direct conversation of a user
// pair, creating it on first contact. Concurrent callers for the same pair
// converge on one row: the store's unique direct key rejects the loser,
// which then reads the winner back.
type FindOrCreateDirectUseCase struct {
	Repo        repository.ChatRepository
	Users       *UserDirectory
	Events      *Emitter
	Presence    Presence
	ReadRetries int
	Now         func() time.Time
}

func NewFindOrCreateDirectUseCase(repo repository.ChatRepository, users *UserDirectory, events *Emitter, p Presence, readRetries int) *FindOrCreateDirectUseCase {
	return &FindOrCreateDirectUseCase{Repo: repo, Users: users, Events: events, Presence: p, ReadRetries: readRetries, Now: time.Now}
}

// Execute reports created=true only for the call that inserted the row.
func (uc *FindOrCreateDirectUseCase) Execute(ctx context.Context, in FindOrCreateDirectInput) (*chat.Conversation, bool, error) {
	conv, members, err := chat.NewDirect(in.UserID, in.OtherUserID, uc.Now())
	if err != nil {
		return nil, false, err
	}
	if _, err := uc.Users.Get(ctx, in.OtherUserID); err != nil {
		if errors.Is(err, chat.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: unknown user %s", chat.ErrValidation, in.OtherUserID)
		}
		return nil, false, storeError(err)
	}

	existing, err := uc.findDirect(ctx, *conv.DirectKey)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, chat.ErrNotFound) {
		return nil, false, err
	}

	err = uc.Repo.CreateConversation(ctx, conv, members)
	if errors.Is(err, chat.ErrConflict) {
		winner, err := uc.findDirect(ctx, *conv.DirectKey)
		if err != nil {
			return nil, false, err
		}
		return winner, false, nil
	}
	if err != nil {
		return nil, false, storeError(err)
	}

	markOnline(uc.Presence, conv.Members)
	for _, uid := range members {
		uc.Events.Notify(ctx, chat.ConversationNew{UserID: uid, Conversation: conv})
	}
	if uc.Presence != nil {
		uc.Presence.EnterRoom(ctx, presence.ConversationRoom(conv.ID), members...)
	}
	return conv, true, nil
}

func (uc *FindOrCreateDirectUseCase) findDirect(ctx context.Context, key string) (*chat.Conversation, error) {
	conv, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (*chat.Conversation, error) {
		return uc.Repo.FindDirect(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	markOnline(uc.Presence, conv.Members)
	return conv, nil
}
