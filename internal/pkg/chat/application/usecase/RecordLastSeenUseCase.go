package usecase

import (
	"context"
	"errors"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
)

// LastSeenRecorder stores the moment a user went offline.
type LastSeenRecorder interface {
	RecordLastSeen(ctx context.Context, userID string, at time.Time) error
}

// RecordLastSeenUseCase writes lastSeenAt directly. Unknown users are
// ignored; the attribute only ever moves forward.
type RecordLastSeenUseCase struct {
	Users *UserDirectory
}

var _ LastSeenRecorder = (*RecordLastSeenUseCase)(nil)

func NewRecordLastSeenUseCase(users *UserDirectory) *RecordLastSeenUseCase {
	return &RecordLastSeenUseCase{Users: users}
}

func (uc *RecordLastSeenUseCase) RecordLastSeen(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return nil
	}
	err := uc.Users.TouchLastSeen(ctx, userID, at.UTC())
	if err == nil || errors.Is(err, chat.ErrNotFound) {
		return nil
	}
	return storeError(err)
}
