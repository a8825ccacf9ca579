package realtime

import (
	"encoding/json"
	"time"

	busport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"
)

// Server to client frame types.
const (
	FrameConnected    = "connected"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameEvent        = "event"
	FrameError        = "error"
)

// Frame is the single JSON envelope written to sockets. Unused fields are
// omitted per type.
type Frame struct {
	Type         string          `json:"type"`
	Channel      string          `json:"channel,omitempty"`
	Event        string          `json:"event,omitempty"`
	ID           string          `json:"id,omitempty"`
	At           *time.Time      `json:"at,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	UserID       string          `json:"userId,omitempty"`
	ConnectionID string          `json:"connectionId,omitempty"`
	Code         string          `json:"code,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// EventFrame renders a bus event for the wire. The payload is already JSON
// and is embedded as is.
func EventFrame(ev busport.Event) ([]byte, error) {
	at := ev.At
	f := Frame{Type: FrameEvent, Channel: ev.Channel, Event: ev.Name, ID: ev.ID, At: &at}
	if len(ev.Payload) > 0 {
		f.Payload = json.RawMessage(ev.Payload)
	}
	return json.Marshal(f)
}

// ErrorFrame renders an error reply.
func ErrorFrame(code, message string) []byte {
	raw, _ := json.Marshal(Frame{Type: FrameError, Code: code, Error: message})
	return raw
}
