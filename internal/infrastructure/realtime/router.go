package realtime

import (
	"sync"

	busport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Router coordinates the websocket sessions of this node and the bus
// channels they listen on. Each channel with at least one local session
// holds exactly one bus subscription; its events are encoded once and
// written to every session in the room.
type Router struct {
	bus busport.Bus
	log zerolog.Logger

	mu           sync.RWMutex
	sessions     map[string]*Connection         // sessionID -> connection
	rooms        map[string]*room               // channel -> room
	sessionRooms map[string]map[string]struct{} // sessionID -> set of channels
}

type room struct {
	sub   busport.Subscription
	conns map[string]*Connection
}

// NewRouter constructs an initialized Router.
func NewRouter(bus busport.Bus, log zerolog.Logger) *Router {
	return &Router{
		bus:          bus,
		log:          log.With().Str("component", "realtime").Logger(),
		sessions:     make(map[string]*Connection),
		rooms:        make(map[string]*room),
		sessionRooms: make(map[string]map[string]struct{}),
	}
}

// Attach registers a connection and starts its write loop.
func (r *Router) Attach(conn *Connection) {
	r.mu.Lock()
	r.sessions[conn.ID] = conn
	r.sessionRooms[conn.ID] = make(map[string]struct{})
	r.mu.Unlock()

	conn.Start()
}

// Detach removes a connection and releases its channels.
func (r *Router) Detach(conn *Connection) {
	r.mu.Lock()
	subs := r.detachLocked(conn.ID)
	r.mu.Unlock()
	release(subs)
}

// Join adds the connection to channel, subscribing to the bus if this is the
// channel's first local session. Joining twice is a no-op. The bus
// subscription is made without holding the router lock; when two sessions
// race to open the same room, the loser's subscription is dropped.
func (r *Router) Join(channel string, conn *Connection) error {
	if r.joinExisting(channel, conn) {
		return nil
	}
	if err := r.checkAttached(conn); err != nil {
		return err
	}

	sub, err := r.bus.Subscribe(channel, func(ev busport.Event) { r.fanout(ev) })
	if err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.sessions[conn.ID]; !ok {
		r.mu.Unlock()
		sub.Unsubscribe()
		return ErrConnectionClosed
	}
	var extra busport.Subscription
	rm := r.rooms[channel]
	if rm == nil {
		rm = &room{sub: sub, conns: make(map[string]*Connection)}
		r.rooms[channel] = rm
	} else {
		extra = sub
	}
	rm.conns[conn.ID] = conn
	r.sessionRooms[conn.ID][channel] = struct{}{}
	r.mu.Unlock()

	if extra != nil {
		extra.Unsubscribe()
	}
	return nil
}

// joinExisting adds conn to an already open room.
func (r *Router) joinExisting(channel string, conn *Connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[conn.ID]; !ok {
		return false
	}
	rm := r.rooms[channel]
	if rm == nil {
		return false
	}
	rm.conns[conn.ID] = conn
	r.sessionRooms[conn.ID][channel] = struct{}{}
	return true
}

func (r *Router) checkAttached(conn *Connection) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.sessions[conn.ID]; !ok {
		return ErrConnectionClosed
	}
	return nil
}

// Leave removes the connection from channel. Other sessions on the channel
// keep receiving.
func (r *Router) Leave(channel string, conn *Connection) {
	r.mu.Lock()
	sub := r.leaveLocked(channel, conn.ID)
	r.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

// Joined reports whether the connection currently listens on channel.
func (r *Router) Joined(channel string, conn *Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessionRooms[conn.ID][channel]
	return ok
}

// Channels returns how many channels hold a bus subscription on this node.
func (r *Router) Channels() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Broadcast writes payload to all sessions in channel.
// excludeUserID, when non-empty, prevents delivering to that user.
func (r *Router) Broadcast(channel string, payload []byte, excludeUserID string) int {
	r.mu.RLock()
	rm := r.rooms[channel]
	if rm == nil || len(rm.conns) == 0 {
		r.mu.RUnlock()
		return 0
	}
	targets := make([]*Connection, 0, len(rm.conns))
	for _, conn := range rm.conns {
		if excludeUserID != "" && conn.UserID == excludeUserID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

func (r *Router) fanout(ev busport.Event) {
	payload, err := EventFrame(ev)
	if err != nil {
		r.log.Error().Err(err).Str("channel", ev.Channel).Msg("encode event frame")
		return
	}
	r.Broadcast(ev.Channel, payload, "")
}

// Close terminates all tracked connections and clears router state.
func (r *Router) Close() {
	r.mu.Lock()
	sessions := make([]*Connection, 0, len(r.sessions))
	for _, conn := range r.sessions {
		sessions = append(sessions, conn)
	}
	subs := make([]busport.Subscription, 0, len(r.rooms))
	for _, rm := range r.rooms {
		subs = append(subs, rm.sub)
	}
	r.sessions = make(map[string]*Connection)
	r.rooms = make(map[string]*room)
	r.sessionRooms = make(map[string]map[string]struct{})
	r.mu.Unlock()

	release(subs)
	for _, conn := range sessions {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (r *Router) detachLocked(sessionID string) []busport.Subscription {
	if _, ok := r.sessions[sessionID]; !ok {
		return nil
	}
	delete(r.sessions, sessionID)

	var subs []busport.Subscription
	for channel := range r.sessionRooms[sessionID] {
		if sub := r.leaveLocked(channel, sessionID); sub != nil {
			subs = append(subs, sub)
		}
	}
	delete(r.sessionRooms, sessionID)
	return subs
}

// leaveLocked returns the room's subscription when the last session left;
// the caller unsubscribes it after dropping the lock.
func (r *Router) leaveLocked(channel string, sessionID string) busport.Subscription {
	if memberships, ok := r.sessionRooms[sessionID]; ok {
		delete(memberships, channel)
	}
	rm := r.rooms[channel]
	if rm == nil {
		return nil
	}
	delete(rm.conns, sessionID)
	if len(rm.conns) > 0 {
		return nil
	}
	delete(r.rooms, channel)
	return rm.sub
}

func release(subs []busport.Subscription) {
	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
