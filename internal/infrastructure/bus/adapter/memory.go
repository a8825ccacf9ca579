package adapter

import (
	"context"
	"sync"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultQueueSize = 256

// MemoryBus fans events out to in-process subscribers. Each subscriber owns
// a buffered queue drained by its own goroutine, so Publish never waits on
// a handler; a subscriber whose queue is full drops the event.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[uint64]*subscriber // channel -> id -> subscriber
	nextID uint64
	closed bool

	queueSize int
	log       zerolog.Logger

	// onFirst/onLast fire under mu when a channel gains its first or loses
	// its last local subscriber. They must not block.
	onFirst func(channel string)
	onLast  func(channel string)
}

var _ port.Bus = (*MemoryBus)(nil)

func NewMemoryBus(log zerolog.Logger) *MemoryBus {
	return &MemoryBus{
		subs:      make(map[string]map[uint64]*subscriber),
		queueSize: defaultQueueSize,
		log:       log.With().Str("component", "bus").Logger(),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, channel, name string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.deliver(newEvent(channel, name, payload))
}

func newEvent(channel, name string, payload []byte) port.Event {
	return port.Event{
		ID:      uuid.NewString(),
		Channel: channel,
		Name:    name,
		At:      time.Now().UTC(),
		Payload: payload,
	}
}

// deliver enqueues ev for every local subscriber of ev.Channel. Holding mu
// across the enqueue keeps concurrent publishes on a channel in one order
// for all subscribers.
func (b *MemoryBus) deliver(ev port.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return port.ErrClosed
	}
	for _, s := range b.subs[ev.Channel] {
		select {
		case s.queue <- ev:
		default:
			b.log.Warn().Str("channel", ev.Channel).Str("event", ev.Name).Msg("subscriber queue full, dropping event")
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(channel string, h port.Handler) (port.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, port.ErrClosed
	}
	b.nextID++
	s := &subscriber{
		bus:     b,
		id:      b.nextID,
		channel: channel,
		handler: h,
		queue:   make(chan port.Event, b.queueSize),
		done:    make(chan struct{}),
	}
	room := b.subs[channel]
	if room == nil {
		room = make(map[uint64]*subscriber)
		b.subs[channel] = room
		if b.onFirst != nil {
			b.onFirst(channel)
		}
	}
	room[s.id] = s
	go s.run()
	return s, nil
}

func (b *MemoryBus) remove(s *subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	room := b.subs[s.channel]
	if _, ok := room[s.id]; !ok {
		return
	}
	delete(room, s.id)
	if len(room) == 0 {
		delete(b.subs, s.channel)
		if b.onLast != nil && !b.closed {
			b.onLast(s.channel)
		}
	}
}

// Subscribers reports how many local handlers listen on channel.
func (b *MemoryBus) Subscribers(channel string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[channel])
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	var all []*subscriber
	for _, room := range b.subs {
		for _, s := range room {
			all = append(all, s)
		}
	}
	b.subs = make(map[string]map[uint64]*subscriber)
	b.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
	return nil
}

type subscriber struct {
	bus     *MemoryBus
	id      uint64
	channel string
	handler port.Handler
	queue   chan port.Event
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) Channel() string { return s.channel }

func (s *subscriber) Unsubscribe() {
	s.bus.remove(s)
	s.stop()
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	for {
		select {
		case <-s.done:
			return
		case ev := <-s.queue:
			s.invoke(ev)
		}
	}
}

func (s *subscriber) invoke(ev port.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.bus.log.Error().Interface("panic", r).Str("channel", ev.Channel).Msg("subscriber handler panicked")
		}
	}()
	s.handler(ev)
}
