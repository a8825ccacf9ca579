package usecase

import (
	"context"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// Presence is the slice of the presence tracker the use cases touch. A nil
// Presence is allowed and means nobody is online.
type Presence interface {
	EnterRoom(ctx context.Context, room string, userIDs ...string)
	CloseRoom(room string)
	IsOnline(userID string) bool
}

func markOnline(p Presence, users []chat.User) {
	if p == nil {
		return
	}
	for i := range users {
		users[i].Online = p.IsOnline(users[i].ID)
	}
}

func markConversationsOnline(p Presence, convs []chat.Conversation) {
	for i := range convs {
		markOnline(p, convs[i].Members)
	}
}
