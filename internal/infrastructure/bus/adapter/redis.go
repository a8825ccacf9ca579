package adapter

import (
	"context"
	"strings"
	"sync"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/codec"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "chat:bus:"

// RedisBus spreads events across API nodes with Redis pub/sub. Publish only
// writes to Redis; every node, the publisher included, receives the frame
// back on its subscription and fans it out to local handlers. A Redis
// channel is subscribed while at least one local handler listens on it.
//
// SUBSCRIBE and UNSUBSCRIBE are queued in transition order and sent by a
// dedicated goroutine, so a slow Redis never holds the local bus lock.
type RedisBus struct {
	client *redis.Client
	ps     *redis.PubSub
	local  *MemoryBus
	log    zerolog.Logger

	cmdMu   sync.Mutex
	pending []subCommand
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

var _ port.Bus = (*RedisBus)(nil)

func NewRedisBus(client *redis.Client, log zerolog.Logger) *RedisBus {
	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBus{
		client: client,
		ps:     client.Subscribe(ctx),
		local:  NewMemoryBus(log),
		log:    log.With().Str("component", "bus.redis").Logger(),
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	b.local.onFirst = func(channel string) { b.queue(subCommand{channel: channel, subscribe: true}) }
	b.local.onLast = func(channel string) { b.queue(subCommand{channel: channel}) }

	b.wg.Add(2)
	go b.receive()
	go b.commands()
	return b
}

type subCommand struct {
	channel   string
	subscribe bool
}

func (b *RedisBus) queue(cmd subCommand) {
	b.cmdMu.Lock()
	b.pending = append(b.pending, cmd)
	b.cmdMu.Unlock()
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *RedisBus) commands() {
	defer b.wg.Done()
	for {
		select {
		case <-b.ctx.Done():
			return
		case <-b.wake:
		}
		b.cmdMu.Lock()
		batch := b.pending
		b.pending = nil
		b.cmdMu.Unlock()

		for _, cmd := range batch {
			if b.ctx.Err() != nil {
				return
			}
			b.apply(cmd)
		}
	}
}

func (b *RedisBus) apply(cmd subCommand) {
	name := redisChannelPrefix + cmd.channel
	if cmd.subscribe {
		if err := b.ps.Subscribe(b.ctx, name); err != nil {
			b.log.Warn().Err(err).Str("channel", cmd.channel).Msg("redis subscribe failed")
		}
		return
	}
	if err := b.ps.Unsubscribe(b.ctx, name); err != nil {
		b.log.Warn().Err(err).Str("channel", cmd.channel).Msg("redis unsubscribe failed")
	}
}

func (b *RedisBus) Publish(ctx context.Context, channel, name string, payload []byte) error {
	data, err := codec.Marshal(newEvent(channel, name, payload))
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, redisChannelPrefix+channel, data).Err()
}

func (b *RedisBus) Subscribe(channel string, h port.Handler) (port.Subscription, error) {
	return b.local.Subscribe(channel, h)
}

func (b *RedisBus) receive() {
	defer b.wg.Done()
	for msg := range b.ps.Channel(redis.WithChannelSize(1024)) {
		var ev port.Event
		if err := codec.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			b.log.Warn().Err(err).Str("redis_channel", msg.Channel).Msg("dropping undecodable frame")
			continue
		}
		if ev.Channel == "" {
			ev.Channel = strings.TrimPrefix(msg.Channel, redisChannelPrefix)
		}
		if err := b.local.deliver(ev); err != nil {
			return
		}
	}
}

// Close stops local delivery and the Redis subscription. The client is
// owned by the caller and stays open.
func (b *RedisBus) Close() error {
	var err error
	b.once.Do(func() {
		_ = b.local.Close()
		b.cancel()
		err = b.ps.Close()
		b.wg.Wait()
	})
	return err
}
