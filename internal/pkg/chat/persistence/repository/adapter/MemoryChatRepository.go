package adapter

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	repository "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/persistence/repository/port"
	userport "github.com/LingwalAnkit/NavShiksha-Chat/internal/repository/port"

	"github.com/google/uuid"
)

// MemoryChatRepository keeps conversations, messages and users in process
// memory. It backs single-node development runs and tests; it enforces the
// same direct-pair uniqueness as the SQL adapters.
type MemoryChatRepository struct {
	mu sync.RWMutex

	users        map[string]chat.User
	usersByEmail map[string]string

	conversations map[string]*memConversation
	direct        map[string]string // direct key -> conversation id

	messages map[string]*chat.Message
	byConv   map[string][]string // conversation id -> message ids in insertion order
	seq      int64
}

type memConversation struct {
	conv          chat.Conversation
	members       []string
	lastMessageID string
}

var (
	_ repository.ChatRepository = (*MemoryChatRepository)(nil)
	_ userport.UserRepository   = (*MemoryChatRepository)(nil)
)

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		users:         make(map[string]chat.User),
		usersByEmail:  make(map[string]string),
		conversations: make(map[string]*memConversation),
		direct:        make(map[string]string),
		messages:      make(map[string]*chat.Message),
		byConv:        make(map[string][]string),
	}
}

// ===================== Users =====================

func (r *MemoryChatRepository) FindByID(ctx context.Context, id string) (*chat.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return &u, nil
}

func (r *MemoryChatRepository) FindByEmail(ctx context.Context, email string) (*chat.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, chat.ErrNotFound
	}
	u := r.users[id]
	return &u, nil
}

func (r *MemoryChatRepository) ListExcept(ctx context.Context, userID string) ([]chat.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]chat.User, 0, len(r.users))
	for id, u := range r.users {
		if id == userID {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryChatRepository) Upsert(ctx context.Context, u chat.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	email := strings.ToLower(u.Email)
	if owner, ok := r.usersByEmail[email]; ok && owner != u.ID {
		return chat.ErrConflict
	}
	if prev, ok := r.users[u.ID]; ok {
		delete(r.usersByEmail, strings.ToLower(prev.Email))
		if u.CreatedAt.IsZero() {
			u.CreatedAt = prev.CreatedAt
		}
		if u.LastSeenAt == nil {
			u.LastSeenAt = prev.LastSeenAt
		}
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	u.Online = false
	r.users[u.ID] = u
	r.usersByEmail[email] = u.ID
	return nil
}

func (r *MemoryChatRepository) TouchLastSeen(ctx context.Context, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return chat.ErrNotFound
	}
	if u.LastSeenAt != nil && u.LastSeenAt.After(at) {
		return nil
	}
	at = at.UTC()
	u.LastSeenAt = &at
	r.users[userID] = u
	return nil
}

// ===================== Conversations =====================

func (r *MemoryChatRepository) CreateConversation(ctx context.Context, c *chat.Conversation, memberIDs []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.IsGroup && c.DirectKey != nil {
		if _, exists := r.direct[*c.DirectKey]; exists {
			return chat.ErrConflict
		}
	}

	c.ID = uuid.NewString()
	rec := &memConversation{conv: *c, members: append([]string(nil), memberIDs...)}
	rec.conv.Members = nil
	rec.conv.LastMessage = nil
	r.conversations[c.ID] = rec
	if !c.IsGroup && c.DirectKey != nil {
		r.direct[*c.DirectKey] = c.ID
	}
	c.Members = r.expandMembersLocked(rec.members)
	return nil
}

func (r *MemoryChatRepository) FindDirect(ctx context.Context, directKey string) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.direct[directKey]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return r.hydrateLocked(r.conversations[id]), nil
}

func (r *MemoryChatRepository) GetConversation(ctx context.Context, conversationID string) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conversations[conversationID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return r.hydrateLocked(rec), nil
}

func (r *MemoryChatRepository) ListConversationsForUser(ctx context.Context, userID string) ([]chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []chat.Conversation
	for _, rec := range r.conversations {
		if !containsID(rec.members, userID) {
			continue
		}
		out = append(out, *r.hydrateLocked(rec))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MemoryChatRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conversations[conversationID]
	if !ok {
		return chat.ErrNotFound
	}
	for _, mid := range r.byConv[conversationID] {
		delete(r.messages, mid)
	}
	delete(r.byConv, conversationID)
	if rec.conv.DirectKey != nil {
		delete(r.direct, *rec.conv.DirectKey)
	}
	delete(r.conversations, conversationID)
	return nil
}

func (r *MemoryChatRepository) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.conversations[conversationID]
	if !ok {
		return false, nil
	}
	return containsID(rec.members, userID), nil
}

// ===================== Messages =====================

func (r *MemoryChatRepository) SaveMessage(ctx context.Context, m *chat.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.conversations[m.ConversationID]
	if !ok {
		return chat.ErrNotFound
	}

	r.seq++
	m.ID = uuid.NewString()
	m.Seq = r.seq
	m.Seen = chat.SeenBy{}
	m.Seen.Add(m.SenderID, m.CreatedAt)

	stored := *m
	stored.Sender = nil
	stored.Seen = m.Seen.Clone()
	r.messages[m.ID] = &stored
	r.byConv[m.ConversationID] = append(r.byConv[m.ConversationID], m.ID)

	if !m.CreatedAt.Before(rec.conv.LastMessageAt) {
		rec.conv.LastMessageAt = m.CreatedAt
		rec.lastMessageID = m.ID
	}

	expanded := r.expandMessageLocked(&stored)
	*m = *expanded
	return nil
}

func (r *MemoryChatRepository) GetMessage(ctx context.Context, messageID string) (*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.messages[messageID]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return r.expandMessageLocked(m), nil
}

func (r *MemoryChatRepository) LatestMessage(ctx context.Context, conversationID string) (*chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	latest := r.latestLocked(conversationID)
	if latest == nil {
		return nil, chat.ErrNotFound
	}
	return r.expandMessageLocked(latest), nil
}

func (r *MemoryChatRepository) GetMessagesByConversation(ctx context.Context, conversationID string, before *chat.Cursor, limit int) ([]chat.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.byConv[conversationID]
	all := make([]*chat.Message, 0, len(ids))
	for _, id := range ids {
		m := r.messages[id]
		if before != nil && !before.Older(*m) {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[j].Before(all[i]) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]chat.Message, 0, len(all))
	for _, m := range all {
		out = append(out, *r.expandMessageLocked(m))
	}
	return out, nil
}

func (r *MemoryChatRepository) AddSeen(ctx context.Context, messageID string, userID string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.messages[messageID]
	if !ok {
		return false, chat.ErrNotFound
	}
	return m.Seen.Add(userID, at.UTC()), nil
}

// ===================== helpers =====================

func (r *MemoryChatRepository) latestLocked(conversationID string) *chat.Message {
	var latest *chat.Message
	for _, id := range r.byConv[conversationID] {
		m := r.messages[id]
		if latest == nil || latest.Before(m) {
			latest = m
		}
	}
	return latest
}

func (r *MemoryChatRepository) hydrateLocked(rec *memConversation) *chat.Conversation {
	c := rec.conv
	c.Members = r.expandMembersLocked(rec.members)
	if rec.lastMessageID != "" {
		if m, ok := r.messages[rec.lastMessageID]; ok {
			c.LastMessage = r.expandMessageLocked(m)
		}
	}
	return &c
}

func (r *MemoryChatRepository) expandMembersLocked(ids []string) []chat.User {
	out := make([]chat.User, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.userLocked(id))
	}
	return out
}

func (r *MemoryChatRepository) expandMessageLocked(m *chat.Message) *chat.Message {
	out := *m
	sender := r.userLocked(m.SenderID)
	out.Sender = &sender
	out.Seen = chat.SeenBy{}
	for _, e := range m.Seen.Entries() {
		u := r.userLocked(e.UserID)
		e.User = &u
		out.Seen.AddEntry(e)
	}
	return &out
}

func (r *MemoryChatRepository) userLocked(id string) chat.User {
	if u, ok := r.users[id]; ok {
		return u
	}
	return chat.User{ID: id}
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
