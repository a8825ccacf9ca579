package chat

import (
	"encoding/json"
	"time"
)

// SeenEntry records when a user saw a message.
type SeenEntry struct {
	UserID string    `json:"userId"`
	SeenAt time.Time `json:"seenAt"`
	User   *User     `json:"user,omitempty"`
}

// SeenBy is an insertion-ordered set of users who have seen a message.
// Entries are only ever appended; Add on an existing user is a no-op.
// The zero value is ready to use.
type SeenBy struct {
	entries []SeenEntry
	index   map[string]int
}

// Add appends userID unless already present and reports whether the set changed.
func (s *SeenBy) Add(userID string, at time.Time) bool {
	return s.AddEntry(SeenEntry{UserID: userID, SeenAt: at})
}

// AddEntry is Add with an already expanded entry.
func (s *SeenBy) AddEntry(e SeenEntry) bool {
	if e.UserID == "" || s.Has(e.UserID) {
		return false
	}
	if s.index == nil {
		s.index = make(map[string]int)
	}
	s.index[e.UserID] = len(s.entries)
	s.entries = append(s.entries, e)
	return true
}

// Has tells whether userID has seen the message.
func (s *SeenBy) Has(userID string) bool {
	if s.index == nil {
		return false
	}
	_, ok := s.index[userID]
	return ok
}

// SeenAt returns when userID saw the message.
func (s *SeenBy) SeenAt(userID string) (time.Time, bool) {
	if i, ok := s.index[userID]; ok {
		return s.entries[i].SeenAt, true
	}
	return time.Time{}, false
}

// Len returns the number of users in the set.
func (s *SeenBy) Len() int { return len(s.entries) }

// Entries returns a copy of the entries in insertion order.
func (s *SeenBy) Entries() []SeenEntry {
	out := make([]SeenEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// UserIDs returns the member ids in insertion order.
func (s *SeenBy) UserIDs() []string {
	out := make([]string, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e.UserID)
	}
	return out
}

// Clone returns an independent copy.
func (s SeenBy) Clone() SeenBy {
	var c SeenBy
	for _, e := range s.entries {
		c.AddEntry(e)
	}
	return c
}

func (s SeenBy) MarshalJSON() ([]byte, error) {
	if s.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.entries)
}

func (s *SeenBy) UnmarshalJSON(data []byte) error {
	var entries []SeenEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	*s = SeenBy{}
	for _, e := range entries {
		s.AddEntry(e)
	}
	return nil
}
