package usecase

import (
	"context"
	"errors"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
)

// MarkSeenInput targets MessageID when set, otherwise the conversation's
// latest message.
type MarkSeenInput struct {
	ConversationID string
	MessageID      string
	UserID         string
}

// MarkSeenUseCase adds the caller to a message's seen-by set. It is a no-op
// (nil message, nil error) for non-members and for empty conversations, and
// publishes message:update only when the set actually grew.
type MarkSeenUseCase struct {
	Repo        repository.ChatRepository
	Events      *Emitter
	ReadRetries int
	Now         func() time.Time
}

func NewMarkSeenUseCase(repo repository.ChatRepository, events *Emitter, readRetries int) *MarkSeenUseCase {
	return &MarkSeenUseCase{Repo: repo, Events: events, ReadRetries: readRetries, Now: time.Now}
}

func (uc *MarkSeenUseCase) Execute(ctx context.Context, in MarkSeenInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.UserID == "" {
		return nil, nil
	}
	member, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (bool, error) {
		return uc.Repo.IsParticipant(ctx, in.ConversationID, in.UserID)
	})
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, nil
	}

	msg, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (*chat.Message, error) {
		if in.MessageID != "" {
			return uc.Repo.GetMessage(ctx, in.MessageID)
		}
		return uc.Repo.LatestMessage(ctx, in.ConversationID)
	})
	if errors.Is(err, chat.ErrNotFound) && in.MessageID == "" {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if msg.ConversationID != in.ConversationID {
		return nil, chat.ErrNotFound
	}
	if msg.Seen.Has(in.UserID) {
		return msg, nil
	}

	changed, err := uc.Repo.AddSeen(ctx, msg.ID, in.UserID, uc.Now().UTC())
	if err != nil {
		return nil, storeError(err)
	}

	updated, err := uc.Repo.GetMessage(ctx, msg.ID)
	if err != nil {
		// The write landed; fall back to patching the copy we hold.
		msg.Seen.Add(in.UserID, uc.Now().UTC())
		updated = msg
	}
	if changed {
		uc.Events.Notify(ctx, chat.MessageUpdate{Message: updated})
	}
	return updated, nil
}
