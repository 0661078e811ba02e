package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid"
)

type SubjectRequest struct {
	Name string `json:"name"`
}

type TopicRequest struct {
	Name      string `json:"name"`
	SubjectID string `json:"subject_id"`
}

func (h *SessionHandler) CreateSubject(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	var req SubjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	subject, err := st.AddSubject(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, subject)
}

func (h *SessionHandler) DeleteSubject(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := st.DeleteSubject(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "subject deleted"})
}

// CreateTopic passes an unparsable subject id through as nil so the store
// reports the missing selection.
func (h *SessionHandler) CreateTopic(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	var req TopicRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	topic, err := st.AddTopic(c.Request.Context(), req.Name, uuid.FromStringOrNil(req.SubjectID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, topic)
}

func (h *SessionHandler) DeleteTopic(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := st.DeleteTopic(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "topic deleted"})
}
