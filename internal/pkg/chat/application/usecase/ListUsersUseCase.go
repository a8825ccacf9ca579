package usecase

import (
	"context"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// ListUsersUseCase returns the roster: everyone except the caller, newest
// first, with the online flag filled from presence.
type ListUsersUseCase struct {
	Users       *UserDirectory
	Presence    Presence
	ReadRetries int
}

func NewListUsersUseCase(users *UserDirectory, p Presence, readRetries int) *ListUsersUseCase {
	return &ListUsersUseCase{Users: users, Presence: p, ReadRetries: readRetries}
}

func (uc *ListUsersUseCase) Execute(ctx context.Context, userID string) ([]chat.User, error) {
	users, err := retryRead(ctx, uc.ReadRetries, func(ctx context.Context) ([]chat.User, error) {
		return uc.Users.ListExcept(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []chat.User{}
	}
	markOnline(uc.Presence, users)
	return users, nil
}
