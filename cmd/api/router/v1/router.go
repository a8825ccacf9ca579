package v1

import (
	"net/http"

	httpHandler "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/presentation/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts all version 1 API routes under /api/v1
func RegisterRoutes(r *gin.Engine, s httpHandler.Services) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	v1 := r.Group("/api/v1")
	httpHandler.RegisterRoutes(v1, s)
}
