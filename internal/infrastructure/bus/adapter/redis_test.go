package adapter

import (
	"context"
	"net"
	"os"
	"testing"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func TestRedisBusCrossNodeDelivery(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	client := redis.NewClient(opt)
	defer client.Close()

	nodeA := NewRedisBus(client, zerolog.Nop())
	defer nodeA.Close()
	nodeB := NewRedisBus(client, zerolog.Nop())
	defer nodeB.Close()

	rec := newRecorder()
	if _, err := nodeB.Subscribe("conversation:redis-test", rec.handle); err != nil {
		t.Fatal(err)
	}
	// Subscription is asynchronous on the Redis side.
	time.Sleep(200 * time.Millisecond)

	if err := nodeA.Publish(context.Background(), "conversation:redis-test", "message:new", []byte(`{"id":"m1"}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	got := rec.wait(t, 1)
	if got[0].Name != "message:new" || string(got[0].Payload) != `{"id":"m1"}` {
		t.Fatalf("unexpected event %+v", got[0])
	}
}

// stalledRedis accepts connections and never answers, so every Redis
// command waits out the client's read timeout.
func stalledRedis(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			conns = append(conns, c)
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		<-done
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestSlowRedisSubscribeDoesNotStallOtherChannels(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        stalledRedis(t),
		DialTimeout: time.Second,
		ReadTimeout: 2 * time.Second,
		MaxRetries:  -1,
	})
	defer client.Close()

	b := NewRedisBus(client, zerolog.Nop())
	defer b.Close()

	rec := newRecorder()
	if _, err := b.Subscribe("conversation:other", rec.handle); err != nil {
		t.Fatal(err)
	}

	started := time.Now()
	if _, err := b.Subscribe("conversation:slow", func(port.Event) {}); err != nil {
		t.Fatal(err)
	}
	if err := b.local.deliver(newEvent("conversation:other", "message:new", []byte(`{}`))); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(started); elapsed > 500*time.Millisecond {
		t.Fatalf("subscribe and unrelated delivery took %v", elapsed)
	}
	if got := rec.wait(t, 1); got[0].Channel != "conversation:other" {
		t.Fatalf("unexpected event %+v", got[0])
	}
}
