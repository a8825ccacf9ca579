package controller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

type MarkSeenController struct {
	UC *usecase.MarkSeenUseCase
}

func NewMarkSeenController(uc *usecase.MarkSeenUseCase) *MarkSeenController {
	return &MarkSeenController{UC: uc}
}

type markSeenRequest struct {
	MessageID string `json:"messageId"`
}

// Handle marks the latest message (or the one named in the body) as seen.
// An empty body is allowed. Non-members and empty conversations get null.
func (h *MarkSeenController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req markSeenRequest
		// ContentLength is -1 for chunked bodies.
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		msg, err := h.UC.Execute(ctx, usecase.MarkSeenInput{
			ConversationID: c.Param("conversationId"),
			MessageID:      req.MessageID,
			UserID:         identity(c).UserID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, msg)
	}
}
