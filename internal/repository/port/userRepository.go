package repository

import (
	"context"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// UserRepository reads the user directory maintained by the registration
// collaborator. Upsert and TouchLastSeen are the only writes the core makes.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*chat.User, error)
	FindByEmail(ctx context.Context, email string) (*chat.User, error)
	// ListExcept returns every user but userID, newest first.
	ListExcept(ctx context.Context, userID string) ([]chat.User, error)
	Upsert(ctx context.Context, u chat.User) error
	TouchLastSeen(ctx context.Context, userID string, at time.Time) error
}
