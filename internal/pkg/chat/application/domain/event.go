package chat

// Event names emitted on the realtime bus.
const (
	EventMessageNew          = "message:new"
	EventMessageUpdate       = "message:update"
	EventConversationNew     = "conversation:new"
	EventConversationUpdated = "conversation:updated"
	EventConversationRemoved = "conversation:removed"
	EventPresenceSync        = "presence:sync"
	EventPresenceJoin        = "presence:join"
	EventPresenceLeave       = "presence:leave"
)

// Notification is one typed realtime event bound to its target channel.
// Each variant below carries exactly the payload its event name promises.
type Notification interface {
	Channel() string
	EventName() string
	Payload() any
}

// MessageNew announces a persisted message on its conversation channel.
type MessageNew struct{ Message *Message }

func (n MessageNew) Channel() string   { return ConversationChannel(n.Message.ConversationID) }
func (n MessageNew) EventName() string { return EventMessageNew }
func (n MessageNew) Payload() any      { return n.Message }

// MessageUpdate carries a message whose seen-by set grew.
type MessageUpdate struct{ Message *Message }

func (n MessageUpdate) Channel() string   { return ConversationChannel(n.Message.ConversationID) }
func (n MessageUpdate) EventName() string { return EventMessageUpdate }
func (n MessageUpdate) Payload() any      { return n.Message }

// ConversationNew tells one member about a newly created conversation.
type ConversationNew struct {
	UserID       string
	Conversation *Conversation
}

func (n ConversationNew) Channel() string   { return UserChannel(n.UserID) }
func (n ConversationNew) EventName() string { return EventConversationNew }
func (n ConversationNew) Payload() any      { return n.Conversation }

// ConversationUpdated pushes a sidebar summary to one member.
type ConversationUpdated struct {
	UserID  string
	Summary Summary
}

func (n ConversationUpdated) Channel() string   { return UserChannel(n.UserID) }
func (n ConversationUpdated) EventName() string { return EventConversationUpdated }
func (n ConversationUpdated) Payload() any      { return n.Summary }

// RemovedPayload is the body of conversation:removed.
type RemovedPayload struct {
	ID string `json:"id"`
}

// ConversationRemoved targets either a member's personal channel (UserID set)
// or the conversation's own channel (UserID empty).
type ConversationRemoved struct {
	UserID         string
	ConversationID string
}

func (n ConversationRemoved) Channel() string {
	if n.UserID == "" {
		return ConversationChannel(n.ConversationID)
	}
	return UserChannel(n.UserID)
}
func (n ConversationRemoved) EventName() string { return EventConversationRemoved }
func (n ConversationRemoved) Payload() any      { return RemovedPayload{ID: n.ConversationID} }

// PresenceMembers is the body of presence:sync.
type PresenceMembers struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

// PresenceMember is the body of presence:join and presence:leave.
type PresenceMember struct {
	Room   string `json:"room"`
	UserID string `json:"userId"`
}

// PresenceSync publishes the full online set of a room.
type PresenceSync struct {
	Room    string
	Members []string
}

func (n PresenceSync) Channel() string   { return PresenceChannel(n.Room) }
func (n PresenceSync) EventName() string { return EventPresenceSync }
func (n PresenceSync) Payload() any {
	members := n.Members
	if members == nil {
		members = []string{}
	}
	return PresenceMembers{Room: n.Room, Members: members}
}

// PresenceJoin announces a user's first connection in a room.
type PresenceJoin struct {
	Room   string
	UserID string
}

func (n PresenceJoin) Channel() string   { return PresenceChannel(n.Room) }
func (n PresenceJoin) EventName() string { return EventPresenceJoin }
func (n PresenceJoin) Payload() any      { return PresenceMember{Room: n.Room, UserID: n.UserID} }

// PresenceLeave announces a user's last connection in a room dropped.
type PresenceLeave struct {
	Room   string
	UserID string
}

func (n PresenceLeave) Channel() string   { return PresenceChannel(n.Room) }
func (n PresenceLeave) EventName() string { return EventPresenceLeave }
func (n PresenceLeave) Payload() any      { return PresenceMember{Room: n.Room, UserID: n.UserID} }
