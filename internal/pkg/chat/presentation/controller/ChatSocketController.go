package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/realtime"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// ChatSocketController handles the websocket endpoint for realtime chat traffic.
// Sockets only listen: writes go through the HTTP endpoints, whose events
// reach every subscribed socket through the bus.
type ChatSocketController struct {
	router          *realtime.Router
	presence        presence.Tracker
	joinUC          *usecase.JoinChannelUseCase
	log             zerolog.Logger
	inflightTimeout time.Duration
}

func NewChatSocketController(router *realtime.Router, tracker presence.Tracker, join *usecase.JoinChannelUseCase, log zerolog.Logger) *ChatSocketController {
	return &ChatSocketController{
		router:          router,
		presence:        tracker,
		joinUC:          join,
		log:             log.With().Str("component", "socket").Logger(),
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Callers are authenticated by token, not by origin.
		return true
	},
}

// Client to server frame types.
const (
	frameSubscribe    = "subscribe"
	frameUnsubscribe  = "unsubscribe"
	frameHeartbeat    = "heartbeat"
	framePresenceSync = "presence:sync"
)

type inboundFrame struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Room    string `json:"room,omitempty"`
}

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := identity(c).UserID
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			ctl.log.Debug().Err(err).Msg("websocket upgrade")
			return
		}

		conn := realtime.NewConnection(userID, ws)
		ctl.router.Attach(conn)
		defer func() {
			ctl.router.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		connectCtx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
		presenceID, snapshots, err := ctl.presence.Connect(connectCtx, userID)
		cancel()
		if err != nil {
			ctl.log.Warn().Err(err).Str("user_id", userID).Msg("presence connect")
			ctl.sendError(conn, err)
			return
		}
		defer ctl.presence.Disconnect(context.WithoutCancel(c.Request.Context()), presenceID)

		ctl.join(conn, chat.UserChannel(userID))
		for _, snap := range snapshots {
			ctl.join(conn, chat.PresenceChannel(snap.Room))
		}

		ctl.sendFrame(conn, realtime.Frame{Type: realtime.FrameConnected, UserID: userID, ConnectionID: presenceID})
		for _, snap := range snapshots {
			ctl.sendNotification(conn, snap)
		}

		err = conn.Listen(func(data []byte) {
			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				_ = conn.Send(realtime.ErrorFrame("bad_request", "invalid payload"))
				return
			}
			ctl.dispatch(c.Request.Context(), conn, presenceID, frame)
		}, func() { ctl.heartbeat(conn, presenceID) })
		if err != nil {
			ctl.log.Debug().Err(err).Str("user_id", userID).Msg("socket read")
		}
	}
}

// dispatch handles one client frame.
func (ctl *ChatSocketController) dispatch(ctx context.Context, conn *realtime.Connection, presenceID string, frame inboundFrame) {
	switch frame.Type {
	case frameSubscribe:
		ctl.handleSubscribe(ctx, conn, frame.Channel)
	case frameUnsubscribe:
		ctl.router.Leave(frame.Channel, conn)
		ctl.sendFrame(conn, realtime.Frame{Type: realtime.FrameUnsubscribed, Channel: frame.Channel})
	case frameHeartbeat:
		ctl.heartbeat(conn, presenceID)
	case framePresenceSync:
		ctl.handlePresenceSync(ctx, conn, frame.Room)
	default:
		_ = conn.Send(realtime.ErrorFrame("unsupported_type", "unknown frame type"))
	}
}

// heartbeat refreshes the presence entry from a heartbeat frame or a pong.
func (ctl *ChatSocketController) heartbeat(conn *realtime.Connection, presenceID string) {
	if err := ctl.presence.Heartbeat(presenceID); err != nil {
		// Swept while still reading: the tracker already announced the leave.
		_ = conn.Send(realtime.ErrorFrame("presence_expired", err.Error()))
		conn.Close(websocket.ClosePolicyViolation, "presence expired")
	}
}

func (ctl *ChatSocketController) handleSubscribe(parent context.Context, conn *realtime.Connection, channel string) {
	ctx, cancel := context.WithTimeout(parent, ctl.inflightTimeout)
	defer cancel()
	if err := ctl.joinUC.Execute(ctx, usecase.JoinChannelInput{UserID: conn.UserID, Channel: channel}); err != nil {
		ctl.sendError(conn, err)
		return
	}
	if err := ctl.router.Join(channel, conn); err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.sendFrame(conn, realtime.Frame{Type: realtime.FrameSubscribed, Channel: channel})
}

// handlePresenceSync answers with the room's current set on this socket only.
func (ctl *ChatSocketController) handlePresenceSync(parent context.Context, conn *realtime.Connection, room string) {
	if room == "" {
		room = presence.GlobalRoom
	}
	ctx, cancel := context.WithTimeout(parent, ctl.inflightTimeout)
	defer cancel()
	if err := ctl.joinUC.Execute(ctx, usecase.JoinChannelInput{UserID: conn.UserID, Channel: chat.PresenceChannel(room)}); err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.sendNotification(conn, chat.PresenceSync{Room: room, Members: ctl.presence.Online(room)})
}

func (ctl *ChatSocketController) join(conn *realtime.Connection, channel string) {
	if err := ctl.router.Join(channel, conn); err != nil {
		ctl.log.Warn().Err(err).Str("channel", channel).Msg("auto subscribe")
	}
}

func (ctl *ChatSocketController) sendNotification(conn *realtime.Connection, n chat.Notification) {
	payload, err := json.Marshal(n.Payload())
	if err != nil {
		return
	}
	now := time.Now().UTC()
	ctl.sendFrame(conn, realtime.Frame{
		Type:    realtime.FrameEvent,
		Channel: n.Channel(),
		Event:   n.EventName(),
		At:      &now,
		Payload: payload,
	})
}

func (ctl *ChatSocketController) sendFrame(conn *realtime.Connection, f realtime.Frame) {
	if payload, err := json.Marshal(f); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) sendError(conn *realtime.Connection, err error) {
	code := "internal_error"
	switch {
	case errors.Is(err, chat.ErrValidation):
		code = "bad_request"
	case errors.Is(err, chat.ErrForbidden):
		code = "forbidden"
	case errors.Is(err, chat.ErrNotFound):
		code = "not_found"
	case errors.Is(err, usecase.ErrPersistence):
		code = "unavailable"
	}
	_, msg := statusFor(err)
	_ = conn.Send(realtime.ErrorFrame(code, msg))
}
