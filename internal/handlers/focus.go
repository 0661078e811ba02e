package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/pomodoro"
)

// ResetPrompt is asked before a running session is abandoned.
const ResetPrompt = "Will future-you be happy if you stop now? 🥺"

type FocusRequest struct {
	Minutes int `json:"minutes"`
}

func (h *SessionHandler) StartFocus(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	req := FocusRequest{Minutes: pomodoro.DefaultMinutes}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	if err := st.StartFocus(req.Minutes); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Focus())
}

// ResetFocus needs ?confirm=true while a session is running; without it
// the prompt is returned and nothing changes.
func (h *SessionHandler) ResetFocus(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	if st.Focus().Running && c.Query("confirm") != "true" {
		c.JSON(http.StatusConflict, gin.H{"error": "confirmation_required", "message": ResetPrompt})
		return
	}
	c.JSON(http.StatusOK, st.ResetFocus())
}

func (h *SessionHandler) Focus(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, st.Focus())
}
