package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	busport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"
	cacheadapter "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/cache/adapter"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/adapter"

	"github.com/rs/zerolog"
)

func init() { retryBackoff = 0 }

type published struct {
	channel string
	name    string
	payload []byte
}

// recordingBus captures publishes synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []published
}

func (b *recordingBus) Publish(_ context.Context, channel, name string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, published{channel, name, payload})
	return nil
}

func (b *recordingBus) Subscribe(string, busport.Handler) (busport.Subscription, error) {
	return nil, errors.New("recordingBus: subscribe not supported")
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) all() []published {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]published(nil), b.events...)
}

func (b *recordingBus) named(name string) []published {
	var out []published
	for _, ev := range b.all() {
		if ev.name == name {
			out = append(out, ev)
		}
	}
	return out
}

// stepClock advances one second per call.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	repo   *adapter.MemoryChatRepository
	bus    *recordingBus
	events *Emitter
	users  *UserDirectory
}

func newFixture(t *testing.T, userIDs ...string) *fixture {
	t.Helper()
	repo := adapter.NewMemoryChatRepository()
	for _, id := range userIDs {
		if err := repo.Upsert(context.Background(), chat.User{ID: id, Email: id + "@example.com", Name: id}); err != nil {
			t.Fatal(err)
		}
	}
	bus := &recordingBus{}
	return &fixture{
		repo:   repo,
		bus:    bus,
		events: NewEmitter(bus, zerolog.Nop()),
		users:  NewUserDirectory(repo, cacheadapter.NewMemoryCache(), time.Minute, zerolog.Nop()),
	}
}

func (f *fixture) direct(t *testing.T, a, b string) *chat.Conversation {
	t.Helper()
	conv, _, err := NewFindOrCreateDirectUseCase(f.repo, f.users, f.events, nil, 1).Execute(context.Background(), FindOrCreateDirectInput{UserID: a, OtherUserID: b})
	if err != nil {
		t.Fatal(err)
	}
	return conv
}

func strp(s string) *string { return &s }
