package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/models"
	"zenfocus/backend/internal/session"
	"zenfocus/backend/internal/store"
)

type CreateTaskRequest struct {
	Title     string `json:"title"`
	SubjectID string `json:"subject_id"`
	TopicID   string `json:"topic_id"`
	DueDate   string `json:"due_date"`
	Priority  string `json:"priority"`
	// Force confirms adding past the overload warning.
	Force bool `json:"force"`
}

func (h *SessionHandler) CreateTask(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	subjectID, err := session.ParseID(req.SubjectID)
	if err != nil {
		badRequest(c, err)
		return
	}
	topicID, err := session.ParseID(req.TopicID)
	if err != nil {
		badRequest(c, err)
		return
	}

	task, err := st.AddTask(c.Request.Context(), store.TaskInput{
		Title:     req.Title,
		SubjectID: subjectID,
		TopicID:   topicID,
		DueDate:   req.DueDate,
		Priority:  models.Priority(req.Priority),
		Force:     req.Force,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task, "message": store.AddedMessage})
}

type ToggleTaskRequest struct {
	// Completed is the flag the client saw; the mirror is used when absent.
	Completed *bool `json:"completed"`
}

func (h *SessionHandler) ToggleTask(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req ToggleTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	var err error
	if req.Completed != nil {
		err = st.ToggleTask(c.Request.Context(), id, *req.Completed)
	} else {
		err = st.ToggleTaskByID(c.Request.Context(), id)
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task updated successfully"})
}

func (h *SessionHandler) SplitTask(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	parts, err := st.SplitTask(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tasks": parts})
}

// DeleteTask removes the task and answers with a guilt quote for the
// client to show.
func (h *SessionHandler) DeleteTask(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	if err := st.DeleteTask(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "task deleted", "quote": st.GuiltQuote()})
}
