package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/middleware"
	"zenfocus/backend/internal/session"
)

// SessionHandler serves everything scoped to the signed-in identity's
// session state.
type SessionHandler struct {
	registry *session.Registry
}

func NewSessionHandler(registry *session.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

func (h *SessionHandler) state(c *gin.Context) (*session.State, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		respondError(c, identity.NewAuthError(identity.CodeInvalidToken, nil))
		return nil, false
	}

	st, err := h.registry.Acquire(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return st, true
}

func (h *SessionHandler) respondDashboard(c *gin.Context, st *session.State, status int) {
	d, err := st.Dashboard()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, d)
}

func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.FromString(c.Param(name))
	if err != nil {
		badRequest(c, err)
		return uuid.Nil, false
	}
	return id, true
}
