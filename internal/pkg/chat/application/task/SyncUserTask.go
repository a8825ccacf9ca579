package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	qport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/queue/port"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/hibiken/asynq"
)

// SyncUserTaskType is enqueued by the registration service whenever a
// profile is created or changed.
const SyncUserTaskType = "user:upsert"

// SyncUserTaskPayload is kept decoupled from domain types to avoid tight
// coupling with JSON tags.
type SyncUserTaskPayload struct {
	ID    string  `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// NewSyncUserTask builds the queue task for p.
func NewSyncUserTask(p SyncUserTaskPayload) (qport.Task, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return qport.Task{}, err
	}
	return qport.Task{Type: SyncUserTaskType, Payload: raw}, nil
}

// RegisterSyncUserTask binds the task handler to the provided server.
// Validation failures are final; store failures are retried by the queue.
func RegisterSyncUserTask(srv qport.Server, uc *usecase.SyncUserUseCase) {
	srv.Register(SyncUserTaskType, func(ctx context.Context, t qport.Task) error {
		var p SyncUserTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		err := uc.Execute(ctx, usecase.SyncUserInput{ID: p.ID, Email: p.Email, Name: p.Name, Image: p.Image})
		if errors.Is(err, chat.ErrValidation) || errors.Is(err, chat.ErrConflict) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	})
}
