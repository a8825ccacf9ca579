package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	qport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/queue/port"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// LastSeenTaskType records when a user's final connection dropped.
const LastSeenTaskType = "user:last_seen"

// LastSeenTaskPayload is the JSON payload transported via the queue.
type LastSeenTaskPayload struct {
	UserID string    `json:"userId"`
	At     time.Time `json:"at"`
}

// RegisterLastSeenTask binds the task handler to the provided server.
func RegisterLastSeenTask(srv qport.Server, rec usecase.LastSeenRecorder) {
	srv.Register(LastSeenTaskType, func(ctx context.Context, t qport.Task) error {
		var p LastSeenTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload: do not retry indefinitely
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		return rec.RecordLastSeen(ctx, p.UserID, p.At)
	})
}

// QueuedLastSeen hands last-seen writes to the worker pool. If the enqueue
// fails the write is done inline instead.
type QueuedLastSeen struct {
	client   qport.Client
	fallback usecase.LastSeenRecorder
	log      zerolog.Logger
}

var _ usecase.LastSeenRecorder = (*QueuedLastSeen)(nil)

func NewQueuedLastSeen(client qport.Client, fallback usecase.LastSeenRecorder, log zerolog.Logger) *QueuedLastSeen {
	return &QueuedLastSeen{client: client, fallback: fallback, log: log.With().Str("component", "last_seen").Logger()}
}

func (q *QueuedLastSeen) RecordLastSeen(ctx context.Context, userID string, at time.Time) error {
	payload, err := json.Marshal(LastSeenTaskPayload{UserID: userID, At: at.UTC()})
	if err != nil {
		return err
	}
	_, err = q.client.Enqueue(ctx, qport.Task{Type: LastSeenTaskType, Payload: payload}, qport.EnqueueOption{
		Queue:    "default",
		MaxRetry: 5,
	})
	if err == nil {
		return nil
	}
	q.log.Warn().Err(err).Str("user_id", userID).Msg("enqueue last seen, writing inline")
	if q.fallback == nil {
		return err
	}
	return q.fallback.RecordLastSeen(ctx, userID, at)
}
