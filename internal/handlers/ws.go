package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/realtime"
	"zenfocus/backend/internal/session"
)

type WSHandler struct {
	sessions *SessionHandler
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
}

func NewWSHandler(sessions *SessionHandler, hub *realtime.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{sessions: sessions, hub: hub, upgrader: realtime.NewUpgrader(allowedOrigins)}
}

// Serve upgrades the request and pushes the current dashboard, then every
// change after it.
func (h *WSHandler) Serve(c *gin.Context) {
	st, ok := h.sessions.state(c)
	if !ok {
		return
	}
	id := st.Identity()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "user_id", id.UserID, "error", err)
		return
	}

	initial, err := realtime.Encode(st, session.ChangeSession)
	if err != nil {
		logger.Error("failed to encode initial dashboard", "user_id", id.UserID, "error", err)
		initial = nil
	}
	realtime.NewClient(id.UserID, conn, h.hub).Run(initial)
}
