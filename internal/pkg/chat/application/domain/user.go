package chat

import "time"

// User is the identity record owned by the registration collaborator.
// The core references users and never mutates them, except for the derived
// LastSeenAt attribute.
type User struct {
	ID         string     `db:"id" json:"id"`
	Email      string     `db:"email" json:"email"`
	Name       string     `db:"name" json:"name"`
	Image      *string    `db:"image" json:"image,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"createdAt"`
	LastSeenAt *time.Time `db:"last_seen_at" json:"lastSeenAt,omitempty"`

	// Online is derived from the presence tracker at read time.
	Online bool `db:"-" json:"online"`
}

// Identity is the authenticated caller as vouched for by the auth collaborator.
type Identity struct {
	UserID string
	Email  string
}
