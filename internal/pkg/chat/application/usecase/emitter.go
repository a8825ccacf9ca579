package usecase

import (
	"context"
	"encoding/json"

	busport "github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/bus/port"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"

	"github.com/rs/zerolog"
)

// Emitter turns typed notifications into bus publishes. Publishing is best
// effort: failures are logged and never reach the caller.
type Emitter struct {
	bus busport.Bus
	log zerolog.Logger
}

func NewEmitter(bus busport.Bus, log zerolog.Logger) *Emitter {
	return &Emitter{bus: bus, log: log.With().Str("component", "emitter").Logger()}
}

// Notify publishes n. The request context is detached from cancellation so
// a client hanging up right after a committed write still gets the event out.
func (e *Emitter) Notify(ctx context.Context, n chat.Notification) {
	if e == nil || e.bus == nil {
		return
	}
	payload, err := json.Marshal(n.Payload())
	if err != nil {
		e.log.Error().Err(err).Str("event", n.EventName()).Msg("encode notification")
		return
	}
	if err := e.bus.Publish(context.WithoutCancel(ctx), n.Channel(), n.EventName(), payload); err != nil {
		e.log.Warn().Err(err).Str("channel", n.Channel()).Str("event", n.EventName()).Msg("publish failed")
	}
}
