package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

type GetConversationController struct {
	UC *usecase.GetConversationUseCase
}

func NewGetConversationController(uc *usecase.GetConversationUseCase) *GetConversationController {
	return &GetConversationController{UC: uc}
}

func (h *GetConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		conv, err := h.UC.Execute(ctx, usecase.GetConversationInput{
			ConversationID: c.Param("conversationId"),
			UserID:         identity(c).UserID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, conv)
	}
}
