package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"
)

type JoinChannelInput struct {
	UserID  string
	Channel string
}

// JoinChannelUseCase decides whether a socket may subscribe to a channel.
// A user channel belongs to its owner only, conversation and conversation
// presence channels to members, and the global presence channel to anyone
// authenticated. Other names are rejected.
type JoinChannelUseCase struct {
	Repo        repository.ChatRepository
	ReadRetries int
}

func NewJoinChannelUseCase(repo repository.ChatRepository, readRetries int) *JoinChannelUseCase {
	return &JoinChannelUseCase{Repo: repo, ReadRetries: readRetries}
}

func (uc *JoinChannelUseCase) Execute(ctx context.Context, in JoinChannelInput) error {
	if in.UserID == "" {
		return fmt.Errorf("%w: user id is required", chat.ErrValidation)
	}
	channel := strings.TrimSpace(in.Channel)

	if uid, ok := chat.ParseUserChannel(channel); ok {
		if uid != in.UserID {
			return fmt.Errorf("%w: channel %s", chat.ErrForbidden, channel)
		}
		return nil
	}
	if id, ok := chat.ParseConversationChannel(channel); ok {
		return uc.requireMember(ctx, id, in.UserID)
	}
	if room, ok := chat.ParsePresenceChannel(channel); ok {
		if room == presence.GlobalRoom {
			return nil
		}
		if id, ok := strings.CutPrefix(room, presence.ConversationRoom("")); ok && id != "" {
			return uc.requireMember(ctx, id, in.UserID)
		}
	}
	return fmt.Errorf("%w: unknown channel %q", chat.ErrValidation, channel)
}

func (uc *JoinChannelUseCase) requireMember(ctx context.Context, conversationID, userID string) error {
	ok, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (bool, error) {
		return uc.Repo.IsParticipant(ctx, conversationID, userID)
	})
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: user %s", chat.ErrForbidden, userID)
	}
	return nil
}
