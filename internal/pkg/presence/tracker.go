package presence

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// GlobalRoom holds every connected user.
const GlobalRoom = "global"

// ConversationRoom is the presence room shared by a conversation's members.
func ConversationRoom(conversationID string) string {
	return "conversation:" + conversationID
}

var ErrUnknownConnection = errors.New("presence: unknown connection")

// Tracker owns who is online. Implementations are process-scoped: state
// starts empty and is discarded on shutdown.
type Tracker interface {
	// Connect registers a new connection for userID and returns its id and
	// the current online set of each room the user was placed in.
	Connect(ctx context.Context, userID string) (string, []chat.PresenceSync, error)
	Heartbeat(connID string) error
	Disconnect(ctx context.Context, connID string)
	// EnterRoom adds the live connections of userIDs to room, e.g. after a
	// conversation is created.
	EnterRoom(ctx context.Context, room string, userIDs ...string)
	// CloseRoom forgets room without announcing departures.
	CloseRoom(room string)
	Online(room string) []string
	IsOnline(userID string) bool
	// Sync republishes the full set of room, or of every room when room is empty.
	Sync(ctx context.Context, room string)
	// Sweep disconnects connections silent for longer than the timeout.
	Sweep(ctx context.Context) int
	Run(ctx context.Context)
}

// Notifier publishes presence events. The chat event emitter satisfies it.
type Notifier interface {
	Notify(ctx context.Context, n chat.Notification)
}

// RoomSource lists the conversation ids a user belongs to.
type RoomSource interface {
	ConversationIDs(ctx context.Context, userID string) ([]string, error)
}

// OfflineFunc runs when a user's last connection goes away.
type OfflineFunc func(ctx context.Context, userID string, at time.Time)

type Options struct {
	Timeout       time.Duration
	SweepInterval time.Duration
	SyncInterval  time.Duration
	OnOffline     OfflineFunc
	Now           func() time.Time
}

type connection struct {
	mu       sync.Mutex
	id       string
	userID   string
	rooms    []string
	closed   bool
	lastBeat time.Time
}

type room struct {
	mu      sync.Mutex
	name    string
	members map[string]int // user id -> live connections in this room
	dead    bool
}

// InProcess keeps presence in memory. Each room has its own lock, and the
// read-modify-publish for a room happens under it; different rooms never
// contend.
type InProcess struct {
	notifier Notifier
	source   RoomSource
	opts     Options
	log      zerolog.Logger

	connMu sync.Mutex
	conns  map[string]*connection
	byUser map[string]map[string]*connection

	roomsMu sync.Mutex
	rooms   map[string]*room
}

var _ Tracker = (*InProcess)(nil)

func NewInProcess(notifier Notifier, source RoomSource, opts Options, log zerolog.Logger) *InProcess {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = 10 * time.Second
	}
	if opts.SyncInterval <= 0 {
		opts.SyncInterval = 30 * time.Second
	}
	return &InProcess{
		notifier: notifier,
		source:   source,
		opts:     opts,
		log:      log.With().Str("component", "presence").Logger(),
		conns:    make(map[string]*connection),
		byUser:   make(map[string]map[string]*connection),
		rooms:    make(map[string]*room),
	}
}

func (t *InProcess) Connect(ctx context.Context, userID string) (string, []chat.PresenceSync, error) {
	if userID == "" {
		return "", nil, chat.ErrValidation
	}
	rooms := []string{GlobalRoom}
	if t.source != nil {
		ids, err := t.source.ConversationIDs(ctx, userID)
		if err != nil {
			return "", nil, err
		}
		for _, id := range ids {
			rooms = append(rooms, ConversationRoom(id))
		}
	}

	c := &connection{id: uuid.NewString(), userID: userID, lastBeat: t.opts.Now()}
	c.mu.Lock()
	defer c.mu.Unlock()

	t.connMu.Lock()
	t.conns[c.id] = c
	userConns := t.byUser[userID]
	if userConns == nil {
		userConns = make(map[string]*connection)
		t.byUser[userID] = userConns
	}
	userConns[c.id] = c
	t.connMu.Unlock()

	snapshots := make([]chat.PresenceSync, 0, len(rooms))
	for _, name := range rooms {
		members := t.join(ctx, name, userID)
		c.rooms = append(c.rooms, name)
		snapshots = append(snapshots, chat.PresenceSync{Room: name, Members: members})
	}
	return c.id, snapshots, nil
}

func (t *InProcess) Heartbeat(connID string) error {
	t.connMu.Lock()
	c, ok := t.conns[connID]
	t.connMu.Unlock()
	if !ok {
		return ErrUnknownConnection
	}
	c.mu.Lock()
	c.lastBeat = t.opts.Now()
	c.mu.Unlock()
	return nil
}

func (t *InProcess) Disconnect(ctx context.Context, connID string) {
	t.connMu.Lock()
	c, ok := t.conns[connID]
	if !ok {
		t.connMu.Unlock()
		return
	}
	delete(t.conns, connID)
	last := false
	if userConns := t.byUser[c.userID]; userConns != nil {
		delete(userConns, connID)
		if len(userConns) == 0 {
			delete(t.byUser, c.userID)
			last = true
		}
	}
	t.connMu.Unlock()

	c.mu.Lock()
	c.closed = true
	rooms := c.rooms
	c.rooms = nil
	c.mu.Unlock()

	for _, name := range rooms {
		t.leave(ctx, name, c.userID)
	}
	if last && t.opts.OnOffline != nil {
		t.opts.OnOffline(ctx, c.userID, t.opts.Now())
	}
}

func (t *InProcess) EnterRoom(ctx context.Context, name string, userIDs ...string) {
	for _, uid := range userIDs {
		for _, c := range t.connectionsOf(uid) {
			c.mu.Lock()
			if !c.closed && !containsRoom(c.rooms, name) {
				t.join(ctx, name, uid)
				c.rooms = append(c.rooms, name)
			}
			c.mu.Unlock()
		}
	}
}

func (t *InProcess) CloseRoom(name string) {
	t.roomsMu.Lock()
	r, ok := t.rooms[name]
	if ok {
		delete(t.rooms, name)
	}
	t.roomsMu.Unlock()
	if ok {
		r.mu.Lock()
		r.dead = true
		r.members = nil
		r.mu.Unlock()
	}

	t.connMu.Lock()
	all := make([]*connection, 0, len(t.conns))
	for _, c := range t.conns {
		all = append(all, c)
	}
	t.connMu.Unlock()
	for _, c := range all {
		c.mu.Lock()
		c.rooms = removeRoom(c.rooms, name)
		c.mu.Unlock()
	}
}

func (t *InProcess) Online(name string) []string {
	t.roomsMu.Lock()
	r, ok := t.rooms[name]
	t.roomsMu.Unlock()
	if !ok {
		return []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

func (t *InProcess) IsOnline(userID string) bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return len(t.byUser[userID]) > 0
}

func (t *InProcess) Sync(ctx context.Context, name string) {
	var targets []*room
	t.roomsMu.Lock()
	if name == "" {
		for _, r := range t.rooms {
			targets = append(targets, r)
		}
	} else if r, ok := t.rooms[name]; ok {
		targets = append(targets, r)
	}
	t.roomsMu.Unlock()

	for _, r := range targets {
		r.mu.Lock()
		if !r.dead {
			t.notify(ctx, chat.PresenceSync{Room: r.name, Members: r.snapshotLocked()})
		}
		r.mu.Unlock()
	}
}

func (t *InProcess) Sweep(ctx context.Context) int {
	cutoff := t.opts.Now().Add(-t.opts.Timeout)

	t.connMu.Lock()
	all := make([]*connection, 0, len(t.conns))
	for _, c := range t.conns {
		all = append(all, c)
	}
	t.connMu.Unlock()

	var stale []*connection
	for _, c := range all {
		c.mu.Lock()
		if c.lastBeat.Before(cutoff) {
			stale = append(stale, c)
		}
		c.mu.Unlock()
	}
	for _, c := range stale {
		t.log.Warn().Str("user_id", c.userID).Str("conn_id", c.id).Msg("presence heartbeat timeout")
		t.Disconnect(ctx, c.id)
	}
	return len(stale)
}

// Run sweeps and resyncs on the configured intervals until ctx is done.
func (t *InProcess) Run(ctx context.Context) {
	sweep := time.NewTicker(t.opts.SweepInterval)
	defer sweep.Stop()
	resync := time.NewTicker(t.opts.SyncInterval)
	defer resync.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			t.Sweep(ctx)
		case <-resync.C:
			t.Sync(ctx, "")
		}
	}
}

// join adds one connection of userID to the room and returns the resulting
// online set. presence:join goes out only for the user's first connection.
func (t *InProcess) join(ctx context.Context, name, userID string) []string {
	for {
		r := t.room(name)
		r.mu.Lock()
		if r.dead {
			r.mu.Unlock()
			continue
		}
		r.members[userID]++
		if r.members[userID] == 1 {
			t.notify(ctx, chat.PresenceJoin{Room: name, UserID: userID})
		}
		members := r.snapshotLocked()
		r.mu.Unlock()
		return members
	}
}

func (t *InProcess) leave(ctx context.Context, name, userID string) {
	t.roomsMu.Lock()
	r, ok := t.rooms[name]
	t.roomsMu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	if r.dead || r.members[userID] == 0 {
		r.mu.Unlock()
		return
	}
	r.members[userID]--
	gone := r.members[userID] == 0
	if gone {
		delete(r.members, userID)
		t.notify(ctx, chat.PresenceLeave{Room: name, UserID: userID})
	}
	empty := len(r.members) == 0
	r.mu.Unlock()

	if empty {
		t.reap(r)
	}
}

// reap drops an empty room. Lock order is roomsMu then room.mu.
func (t *InProcess) reap(r *room) {
	t.roomsMu.Lock()
	defer t.roomsMu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dead || len(r.members) > 0 {
		return
	}
	r.dead = true
	if t.rooms[r.name] == r {
		delete(t.rooms, r.name)
	}
}

func (t *InProcess) room(name string) *room {
	t.roomsMu.Lock()
	defer t.roomsMu.Unlock()
	r, ok := t.rooms[name]
	if !ok {
		r = &room{name: name, members: make(map[string]int)}
		t.rooms[name] = r
	}
	return r
}

func (t *InProcess) connectionsOf(userID string) []*connection {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	out := make([]*connection, 0, len(t.byUser[userID]))
	for _, c := range t.byUser[userID] {
		out = append(out, c)
	}
	return out
}

func (t *InProcess) notify(ctx context.Context, n chat.Notification) {
	if t.notifier != nil {
		t.notifier.Notify(ctx, n)
	}
}

func (r *room) snapshotLocked() []string {
	out := make([]string, 0, len(r.members))
	for uid := range r.members {
		out = append(out, uid)
	}
	sort.Strings(out)
	return out
}

func containsRoom(rooms []string, name string) bool {
	for _, r := range rooms {
		if r == name {
			return true
		}
	}
	return false
}

func removeRoom(rooms []string, name string) []string {
	out := rooms[:0]
	for _, r := range rooms {
		if r != name {
			out = append(out, r)
		}
	}
	return out
}
