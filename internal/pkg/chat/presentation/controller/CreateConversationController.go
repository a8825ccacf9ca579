package controller

import (
	"context"
	"net/http"
	"time"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// CreateConversationController handles the conversation creation endpoint.
// A body with isGroup creates a group; otherwise userId names the other
// side of a direct conversation, which is found or created.
type CreateConversationController struct {
	Direct *usecase.FindOrCreateDirectUseCase
	Group  *usecase.CreateGroupUseCase
}

func NewCreateConversationController(direct *usecase.FindOrCreateDirectUseCase, group *usecase.CreateGroupUseCase) *CreateConversationController {
	return &CreateConversationController{Direct: direct, Group: group}
}

type createConversationRequest struct {
	UserID  string   `json:"userId"`
	IsGroup bool     `json:"isGroup"`
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

func (h *CreateConversationController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createConversationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		me := identity(c)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		if req.IsGroup {
			conv, err := h.Group.Execute(ctx, usecase.CreateGroupInput{CreatorID: me.UserID, MemberIDs: req.Members, Name: req.Name})
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusCreated, conv)
			return
		}

		conv, created, err := h.Direct.Execute(ctx, usecase.FindOrCreateDirectInput{UserID: me.UserID, OtherUserID: req.UserID})
		if err != nil {
			respondError(c, err)
			return
		}
		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		c.JSON(status, conv)
	}
}
