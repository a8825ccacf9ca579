package port

import (
	"context"
	"errors"
	"time"
)

// Event is one delivery on a channel. Payload is the JSON encoding of the
// typed notification; the bus never inspects it.
type Event struct {
	ID      string    `cbor:"1,keyasint" json:"id"`
	Channel string    `cbor:"2,keyasint" json:"channel"`
	Name    string    `cbor:"3,keyasint" json:"event"`
	At      time.Time `cbor:"4,keyasint" json:"at"`
	Payload []byte    `cbor:"5,keyasint" json:"payload"`
}

// Handler receives events for one subscription. Calls for a single
// subscription are sequential and follow publish order.
type Handler func(Event)

// Subscription is released with Unsubscribe; releasing one never affects
// other subscribers of the same channel. Unsubscribe is idempotent.
type Subscription interface {
	Channel() string
	Unsubscribe()
}

// Bus is the realtime publish/subscribe layer. Delivery is at-least-once to
// currently subscribed handlers only; nothing is queued for absent subscribers.
type Bus interface {
	Publish(ctx context.Context, channel, name string, payload []byte) error
	Subscribe(channel string, h Handler) (Subscription, error)
	Close() error
}

var ErrClosed = errors.New("bus: closed")
