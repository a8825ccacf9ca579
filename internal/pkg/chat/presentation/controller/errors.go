package controller

import (
	"errors"
	"net/http"

	"github.com/LingwalAnkit/NavShiksha-Chat/internal/infrastructure/auth"
	chat "github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/domain"
	"github.com/LingwalAnkit/NavShiksha-Chat/internal/pkg/chat/application/usecase"

	"github.com/gin-gonic/gin"
)

// statusFor maps use case errors onto HTTP statuses. Persistence failures
// get a generic retryable message; the detail only goes to the log.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrValidation), errors.Is(err, chat.ErrInvalidConversation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, chat.ErrForbidden):
		return http.StatusForbidden, "not a member of this conversation"
	case errors.Is(err, chat.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, chat.ErrConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, usecase.ErrPersistence):
		return http.StatusServiceUnavailable, "temporarily unavailable, try again"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
