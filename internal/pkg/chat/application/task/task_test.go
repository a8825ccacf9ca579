package task

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	qport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/queue/port"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/adapter"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

type fakeClient struct {
	err   error
	tasks []qport.Task
	opts  [][]qport.EnqueueOption
}

func (c *fakeClient) Enqueue(_ context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.tasks = append(c.tasks, t)
	c.opts = append(c.opts, opts)
	return "task-1", nil
}

func (c *fakeClient) Close() error { return nil }

// fakeServer keeps registered handlers so tests can invoke them directly.
type fakeServer map[string]qport.Handler

func (s fakeServer) Register(taskType string, h qport.Handler) { s[taskType] = h }
func (s fakeServer) Run(context.Context) error                 { return nil }

type lastSeenCall struct {
	userID string
	at     time.Time
}

type recorder struct{ calls []lastSeenCall }

func (r *recorder) RecordLastSeen(_ context.Context, userID string, at time.Time) error {
	r.calls = append(r.calls, lastSeenCall{userID, at})
	return nil
}

func TestQueuedLastSeenEnqueues(t *testing.T) {
	client := &fakeClient{}
	fallback := &recorder{}
	q := NewQueuedLastSeen(client, fallback, zerolog.Nop())

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := q.RecordLastSeen(context.Background(), "ada", at); err != nil {
		t.Fatal(err)
	}
	if len(fallback.calls) != 0 {
		t.Fatal("fallback used although enqueue succeeded")
	}
	if len(client.tasks) != 1 || client.tasks[0].Type != LastSeenTaskType {
		t.Fatalf("tasks = %+v", client.tasks)
	}
	var p LastSeenTaskPayload
	if err := json.Unmarshal(client.tasks[0].Payload, &p); err != nil {
		t.Fatal(err)
	}
	if p.UserID != "ada" || !p.At.Equal(at) {
		t.Fatalf("payload = %+v", p)
	}
	if o := client.opts[0]; len(o) != 1 || o[0].MaxRetry != 5 {
		t.Fatalf("options = %+v", o)
	}
}

func TestQueuedLastSeenFallsBack(t *testing.T) {
	fallback := &recorder{}
	q := NewQueuedLastSeen(&fakeClient{err: errors.New("redis down")}, fallback, zerolog.Nop())

	if err := q.RecordLastSeen(context.Background(), "ada", time.Now()); err != nil {
		t.Fatal(err)
	}
	if len(fallback.calls) != 1 || fallback.calls[0].userID != "ada" {
		t.Fatalf("fallback calls = %+v", fallback.calls)
	}

	q = NewQueuedLastSeen(&fakeClient{err: errors.New("redis down")}, nil, zerolog.Nop())
	if err := q.RecordLastSeen(context.Background(), "ada", time.Now()); err == nil {
		t.Fatal("error swallowed without a fallback")
	}
}

func TestLastSeenHandler(t *testing.T) {
	srv := fakeServer{}
	rec := &recorder{}
	RegisterLastSeenTask(srv, rec)
	h := srv[LastSeenTaskType]

	err := h(context.Background(), qport.Task{Type: LastSeenTaskType, Payload: []byte("{")})
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("malformed payload err = %v, want SkipRetry", err)
	}

	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	raw, _ := json.Marshal(LastSeenTaskPayload{UserID: "ada", At: at})
	if err := h(context.Background(), qport.Task{Type: LastSeenTaskType, Payload: raw}); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) != 1 || rec.calls[0].userID != "ada" || !rec.calls[0].at.Equal(at) {
		t.Fatalf("calls = %+v", rec.calls)
	}
}

func TestSyncUserHandler(t *testing.T) {
	repo := adapter.NewMemoryChatRepository()
	users := usecase.NewUserDirectory(repo, nil, time.Minute, zerolog.Nop())
	srv := fakeServer{}
	RegisterSyncUserTask(srv, usecase.NewSyncUserUseCase(users))
	h := srv[SyncUserTaskType]

	task, err := NewSyncUserTask(SyncUserTaskPayload{ID: "ada", Email: " Ada@Example.com "})
	if err != nil {
		t.Fatal(err)
	}
	if err := h(context.Background(), task); err != nil {
		t.Fatal(err)
	}
	u, err := repo.FindByID(context.Background(), "ada")
	if err != nil {
		t.Fatal(err)
	}
	if u.Email != "ada@example.com" || u.Name != "ada" {
		t.Fatalf("synced user = %+v", u)
	}

	for name, p := range map[string]SyncUserTaskPayload{
		"missing email": {ID: "bob"},
		"taken email":   {ID: "bob", Email: "ada@example.com"},
	} {
		task, _ := NewSyncUserTask(p)
		if err := h(context.Background(), task); !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("%s: err = %v, want SkipRetry", name, err)
		}
	}
	if _, err := repo.FindByID(context.Background(), "bob"); !errors.Is(err, chat.ErrNotFound) {
		t.Fatalf("rejected profile was stored: %v", err)
	}
}
