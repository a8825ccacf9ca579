package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

type DeleteConversationController struct {
	UC *usecase.DeleteConversationUseCase
}

func NewDeleteConversationController(uc *usecase.DeleteConversationUseCase) *DeleteConversationController {
	return &DeleteConversationController{UC: uc}
}

func (h *DeleteConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		conversationID := c.Param("conversationId")
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		err := h.UC.Execute(ctx, usecase.DeleteConversationInput{
			ConversationID: conversationID,
			RequesterID:    identity(c).UserID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": conversationID})
	}
}
