package http

import (
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/auth"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/realtime"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/presentation/controller"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Services is everything the chat endpoints need, built once at startup.
type Services struct {
	Verifier *auth.Verifier
	Realtime *realtime.Router
	Presence presence.Tracker
	Log      zerolog.Logger

	FindOrCreateDirect *usecase.FindOrCreateDirectUseCase
	CreateGroup        *usecase.CreateGroupUseCase
	ListConversations  *usecase.ListConversationsUseCase
	GetConversation    *usecase.GetConversationUseCase
	DeleteConversation *usecase.DeleteConversationUseCase
	SendMessage        *usecase.SendMessageUseCase
	ListMessages       *usecase.ListMessagesUseCase
	MarkSeen           *usecase.MarkSeenUseCase
	ListUsers          *usecase.ListUsersUseCase
	JoinChannel        *usecase.JoinChannelUseCase
}

// RegisterRoutes registers chat-related HTTP endpoints under the given router group
// It constructs per-endpoint controllers and binds them directly to routes.
func RegisterRoutes(g *gin.RouterGroup, s Services) {
	authed := g.Group("", controller.RequireIdentity(s.Verifier))

	// POST /api/v1/conversations -> find-or-create direct, or create group
	authed.POST("/conversations", controller.NewCreateConversationController(s.FindOrCreateDirect, s.CreateGroup).Handle())
	authed.GET("/conversations", controller.NewListConversationsController(s.ListConversations).Handle())
	authed.GET("/conversations/:conversationId", controller.NewGetConversationController(s.GetConversation).Handle())
	authed.DELETE("/conversations/:conversationId", controller.NewDeleteConversationController(s.DeleteConversation).Handle())

	// POST /api/v1/conversations/:conversationId/messages -> send a message
	authed.POST("/conversations/:conversationId/messages", controller.NewSendMessageController(s.SendMessage).Handle())
	authed.GET("/conversations/:conversationId/messages", controller.NewListMessagesController(s.ListMessages).Handle())
	authed.POST("/conversations/:conversationId/seen", controller.NewMarkSeenController(s.MarkSeen).Handle())

	authed.GET("/users", controller.NewListUsersController(s.ListUsers).Handle())
	authed.GET("/presence", controller.NewPresenceController(s.Presence).Handle())

	// GET /api/v1/ws -> websocket endpoint for realtime events
	authed.GET("/ws", controller.NewChatSocketController(s.Realtime, s.Presence, s.JoinChannel, s.Log).Handle())
}
