package chat

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Cursor marks a position in a conversation's history. Pages are read
// newest-first; a cursor selects messages strictly older than itself.
type Cursor struct {
	At  time.Time
	Seq int64
}

// CursorAfter returns the cursor pointing just past m in newest-first order.
func CursorAfter(m Message) Cursor {
	return Cursor{At: m.CreatedAt, Seq: m.Seq}
}

// Encode renders the cursor as an opaque string for clients.
func (c Cursor) Encode() string {
	return strconv.FormatInt(c.At.UnixNano(), 10) + "-" + strconv.FormatInt(c.Seq, 10)
}

// ParseCursor decodes a string produced by Encode.
func ParseCursor(s string) (*Cursor, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	at, seq, ok := strings.Cut(s, "-")
	if !ok {
		return nil, fmt.Errorf("%w: malformed cursor", ErrValidation)
	}
	nanos, err := strconv.ParseInt(at, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor time", ErrValidation)
	}
	n, err := strconv.ParseInt(seq, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor sequence", ErrValidation)
	}
	return &Cursor{At: time.Unix(0, nanos).UTC(), Seq: n}, nil
}

// Older reports whether m sorts strictly before the cursor position.
func (c Cursor) Older(m Message) bool {
	if !m.CreatedAt.Equal(c.At) {
		return m.CreatedAt.Before(c.At)
	}
	return m.Seq < c.Seq
}
