package chat

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MinGroupMembers is the smallest group size, creator included.
const MinGroupMembers = 3

// Conversation represents a direct (1:1) or group thread.
type Conversation struct {
	ID            string    `db:"id" json:"id"`
	IsGroup       bool      `db:"is_group" json:"isGroup"`
	Name          *string   `db:"name" json:"name,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	LastMessageAt time.Time `db:"last_message_at" json:"lastMessageAt"`

	// DirectKey is the canonical member pair for direct conversations and
	// nil for groups. The store enforces its uniqueness.
	DirectKey *string `db:"direct_key" json:"-"`

	Members     []User   `json:"users"`
	LastMessage *Message `json:"lastMessage,omitempty"`
}

// HasMember tells whether userID is part of this conversation.
func (c *Conversation) HasMember(userID string) bool {
	if c == nil {
		return false
	}
	for _, m := range c.Members {
		if m.ID == userID {
			return true
		}
	}
	return false
}

// MemberIDs returns the ids of all members in stored order.
func (c *Conversation) MemberIDs() []string {
	ids := make([]string, 0, len(c.Members))
	for _, m := range c.Members {
		ids = append(ids, m.ID)
	}
	return ids
}

// DirectKeyFor returns the order-independent key of a user pair.
func DirectKeyFor(userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return userA + ":" + userB
}

// NewDirect validates a 1:1 request and returns the conversation to persist.
func NewDirect(userA, userB string, now time.Time) (*Conversation, []string, error) {
	userA, userB = strings.TrimSpace(userA), strings.TrimSpace(userB)
	if userA == "" || userB == "" {
		return nil, nil, fmt.Errorf("%w: both user ids are required", ErrValidation)
	}
	if userA == userB {
		return nil, nil, fmt.Errorf("%w: cannot start a conversation with yourself", ErrValidation)
	}
	key := DirectKeyFor(userA, userB)
	conv := &Conversation{
		CreatedAt:     now.UTC(),
		LastMessageAt: now.UTC(),
		DirectKey:     &key,
	}
	return conv, []string{userA, userB}, nil
}

// NewGroup validates a group request and returns the conversation together
// with the de-duplicated, sorted member id list (creator included).
func NewGroup(creatorID string, memberIDs []string, name string, now time.Time) (*Conversation, []string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil, fmt.Errorf("%w: group name is required", ErrValidation)
	}
	if strings.TrimSpace(creatorID) == "" {
		return nil, nil, fmt.Errorf("%w: creator id is required", ErrValidation)
	}

	set := map[string]struct{}{creatorID: {}}
	for _, id := range memberIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		set[id] = struct{}{}
	}
	if len(set) < MinGroupMembers {
		return nil, nil, fmt.Errorf("%w: a group needs at least %d members including the creator", ErrValidation, MinGroupMembers)
	}

	members := make([]string, 0, len(set))
	for id := range set {
		members = append(members, id)
	}
	sort.Strings(members)

	conv := &Conversation{
		IsGroup:       true,
		Name:          &name,
		CreatedAt:     now.UTC(),
		LastMessageAt: now.UTC(),
	}
	return conv, members, nil
}

// Summary is the sidebar view pushed on user channels after a send.
type Summary struct {
	ID            string    `json:"id"`
	IsGroup       bool      `json:"isGroup"`
	Name          *string   `json:"name,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	LastMessage   *Message  `json:"lastMessage,omitempty"`
}

// Summarize builds the sidebar summary with m as the latest message.
func (c *Conversation) Summarize(m *Message) Summary {
	s := Summary{ID: c.ID, IsGroup: c.IsGroup, Name: c.Name, LastMessageAt: c.LastMessageAt, LastMessage: m}
	if m != nil && m.CreatedAt.After(s.LastMessageAt) {
		s.LastMessageAt = m.CreatedAt
	}
	return s
}
