package chat

import "strings"

const (
	conversationChannelPrefix = "conversation:"
	userChannelPrefix         = "user:"
	presenceChannelPrefix     = "presence:"
)

// ConversationChannel is the bus channel carrying a conversation's message events.
func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// UserChannel is the personal channel for cross-conversation notifications.
func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

// PresenceChannel is the bus channel for a presence room.
func PresenceChannel(room string) string {
	return presenceChannelPrefix + room
}

// ParseConversationChannel extracts the conversation id from a channel name.
func ParseConversationChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, conversationChannelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, conversationChannelPrefix)
	return id, id != ""
}

// ParseUserChannel extracts the user id from a personal channel name.
func ParseUserChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, userChannelPrefix) {
		return "", false
	}
	id := strings.TrimPrefix(channel, userChannelPrefix)
	return id, id != ""
}

// ParsePresenceChannel extracts the room key from a presence channel name.
func ParsePresenceChannel(channel string) (string, bool) {
	if !strings.HasPrefix(channel, presenceChannelPrefix) {
		return "", false
	}
	room := strings.TrimPrefix(channel, presenceChannelPrefix)
	return room, room != ""
}
