package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/pomodoro"
	"zenfocus/backend/internal/store"
)

const syncFailedMessage = "Could not sync your changes. They will appear once the connection recovers."

var authStatus = map[identity.AuthCode]int{
	identity.CodeInvalidCredentials:  http.StatusUnauthorized,
	identity.CodeInvalidEmail:        http.StatusBadRequest,
	identity.CodeWeakPassword:        http.StatusBadRequest,
	identity.CodeEmailInUse:          http.StatusConflict,
	identity.CodePopupClosed:         http.StatusBadRequest,
	identity.CodePopupBlocked:        http.StatusBadRequest,
	identity.CodeOperationNotAllowed: http.StatusForbidden,
	identity.CodeInvalidToken:        http.StatusUnauthorized,
}

// respondError maps domain errors onto status codes and the gin.H error
// body every handler uses.
func respondError(c *gin.Context, err error) {
	var verr *store.ValidationError
	var serr *store.SyncError
	var authErr *identity.AuthError

	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_failed",
			"field":   verr.Field,
			"message": verr.Message,
		})
	case errors.As(err, &authErr):
		status, ok := authStatus[authErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, gin.H{"error": string(authErr.Code), "message": authErr.Message})
	case errors.Is(err, store.ErrOverloaded):
		c.JSON(http.StatusConflict, gin.H{"error": "overloaded", "message": err.Error()})
	case errors.Is(err, store.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "not_pending", "message": err.Error()})
	case errors.Is(err, store.ErrTaskNotFound), errors.Is(err, gateway.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": err.Error()})
	case errors.Is(err, store.ErrNoIdentity):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no_identity", "message": identity.MessageFor(identity.CodeInvalidToken)})
	case errors.Is(err, pomodoro.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_duration", "message": err.Error()})
	case errors.As(err, &serr):
		message := serr.UserMessage()
		if message == "" {
			message = syncFailedMessage
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "sync_failed", "op": serr.Op, "message": message})
	default:
		logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "invalid_request",
		"message": "Invalid request format",
		"details": err.Error(),
	})
}
