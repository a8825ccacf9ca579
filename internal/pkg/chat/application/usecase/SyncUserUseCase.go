package usecase

import (
	"context"
	"fmt"
	"strings"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// SyncUserInput mirrors a profile pushed by the registration service.
type SyncUserInput struct {
	ID    string
	Email string
	Name  string
	Image *string
}

// SyncUserUseCase upserts a user record. The directory itself belongs to the
// registration collaborator; this keeps the chat store's copy current.
type SyncUserUseCase struct {
	Users *UserDirectory
}

func NewSyncUserUseCase(users *UserDirectory) *SyncUserUseCase {
	return &SyncUserUseCase{Users: users}
}

func (uc *SyncUserUseCase) Execute(ctx context.Context, in SyncUserInput) error {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return fmt.Errorf("%w: email is required", chat.ErrValidation)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	u := chat.User{
		ID:    strings.TrimSpace(in.ID),
		Email: email,
		Name:  name,
		Image: in.Image,
	}
	if err := uc.Users.Upsert(ctx, u); err != nil {
		return storeError(err)
	}
	return nil
}
