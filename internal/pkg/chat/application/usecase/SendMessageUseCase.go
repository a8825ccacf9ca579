package usecase

import (
	"context"
	"fmt"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
)

// SendMessageInput carries the data needed to send a new message.
// Body and Image are trimmed by chat.NewMessage; at least one must remain.
type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Body           *string
	Image          *string
}

// SendMessageUseCase handles the SendMessage application service
// Hexagonal: depends on repository port, returns domain entity
// One class per use case (own file)
type SendMessageUseCase struct {
	Repo        repository.ChatRepository
	Events      *Emitter
	ReadRetries int
	Now         func() time.Time
}

func NewSendMessageUseCase(repo repository.ChatRepository, events *Emitter, readRetries int) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, Events: events, ReadRetries: readRetries, Now: time.Now}
}

// Execute persists the message, then announces it: message:new on the
// conversation channel first, conversation:updated to every member after.
// Nothing is published unless the write succeeded.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	if in.ConversationID == "" || in.SenderID == "" {
		return nil, fmt.Errorf("%w: conversationId and senderId are required", chat.ErrValidation)
	}

	conv, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) (*chat.Conversation, error) {
		return uc.Repo.GetConversation(ctx, in.ConversationID)
	})
	if err != nil {
		return nil, err
	}

	agg := chat.NewChat(*conv)
	msg, err := agg.PostMessage(chat.Message{
		ConversationID: in.ConversationID,
		SenderID:       in.SenderID,
		Body:           in.Body,
		Image:          in.Image,
	}, uc.Now())
	if err != nil {
		return nil, err
	}

	// Persist letting the store assign id and sequence
	if err := uc.Repo.SaveMessage(ctx, msg); err != nil {
		return nil, storeError(err)
	}
	conv.LastMessageAt = *agg.LastMessageAt

	uc.Events.Notify(ctx, chat.MessageNew{Message: msg})
	summary := conv.Summarize(msg)
	for _, uid := range conv.MemberIDs() {
		uc.Events.Notify(ctx, chat.ConversationUpdated{UserID: uid, Summary: summary})
	}
	return msg, nil
}
