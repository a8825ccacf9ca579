package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/realtime"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// sweptTracker reports every connection as already gone.
type sweptTracker struct {
	presence.Tracker
	beats int
}

func (s *sweptTracker) Heartbeat(string) error {
	s.beats++
	return presence.ErrUnknownConnection
}

func socketPair(t *testing.T) (*realtime.Connection, *websocket.Conn) {
	t.Helper()
	accepted := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- ws
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	select {
	case ws := <-accepted:
		return realtime.NewConnection("alice", ws), client
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the socket")
		return nil, nil
	}
}

func TestExpiredHeartbeatClosesSocket(t *testing.T) {
	tracker := &sweptTracker{}
	ctl := &ChatSocketController{presence: tracker, log: zerolog.Nop()}
	conn, client := socketPair(t)

	ctl.heartbeat(conn, "gone")

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("connection left open after presence expired")
	}
	if tracker.beats != 1 {
		t.Fatalf("heartbeats = %d", tracker.beats)
	}
	_ = client.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		_, _, err := client.ReadMessage()
		if err == nil {
			continue
		}
		if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
			t.Fatalf("client read err = %v, want policy violation", err)
		}
		return
	}
}
