package chat

import "time"

// ParticipantRole is stored per membership row. Only plain members exist
// today; the column leaves room for group admins.
type ParticipantRole int16

const ParticipantRoleMember ParticipantRole = 0

// Participant is one (conversation, user) membership.
type Participant struct {
	ConversationID string          `db:"conversation_id"`
	UserID         string          `db:"user_id"`
	Role           ParticipantRole `db:"role"`
	JoinedAt       time.Time       `db:"joined_at"`
}

// participantsOf indexes a loaded conversation's members by user id.
// Membership is fixed at creation, so JoinedAt is the conversation's
// creation time.
func participantsOf(conv Conversation) map[string]Participant {
	out := make(map[string]Participant, len(conv.Members))
	for _, u := range conv.Members {
		out[u.ID] = Participant{
			ConversationID: conv.ID,
			UserID:         u.ID,
			Role:           ParticipantRoleMember,
			JoinedAt:       conv.CreatedAt,
		}
	}
	return out
}
