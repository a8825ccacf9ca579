package controller

import (
	"net/http"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/presence"

	"github.com/gin-gonic/gin"
)

// PresenceController returns this node's global online set.
type PresenceController struct {
	Tracker presence.Tracker
}

func NewPresenceController(t presence.Tracker) *PresenceController {
	return &PresenceController{Tracker: t}
}

func (h *PresenceController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"room":    presence.GlobalRoom,
			"members": h.Tracker.Online(presence.GlobalRoom),
		})
	}
}
