package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zenfocus/backend/internal/derive"
	"zenfocus/backend/internal/session"
)

// Dashboard returns the full view-model. status, subject and topic query
// parameters update the selection first.
func (h *SessionHandler) Dashboard(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	status, hasStatus := c.GetQuery("status")
	subject, hasSubject := c.GetQuery("subject")
	topic, hasTopic := c.GetQuery("topic")
	if hasStatus || hasSubject || hasTopic {
		req := FilterRequest{}
		if hasStatus {
			req.Status = &status
		}
		if hasSubject {
			req.SubjectID = &subject
		}
		if hasTopic {
			req.TopicID = &topic
		}
		if err := applyFilter(st, req); err != nil {
			badRequest(c, err)
			return
		}
	}

	h.respondDashboard(c, st, http.StatusOK)
}

// FilterRequest fields left nil keep their current value. "all" clears a
// subject or topic.
type FilterRequest struct {
	Status    *string `json:"status"`
	SubjectID *string `json:"subject_id"`
	TopicID   *string `json:"topic_id"`
}

func (h *SessionHandler) SetFilters(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := applyFilter(st, req); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, st.Selection())
}

func applyFilter(st *session.State, req FilterRequest) error {
	next := st.Selection()
	if req.Status != nil {
		status, ok := derive.ParseStatusFilter(*req.Status)
		if !ok {
			return errors.New("status must be all, pending or completed")
		}
		next = next.WithStatus(status)
	}
	if req.SubjectID != nil {
		id, err := session.ParseID(*req.SubjectID)
		if err != nil {
			return err
		}
		next = next.WithSubject(id)
	}
	if req.TopicID != nil {
		id, err := session.ParseID(*req.TopicID)
		if err != nil {
			return err
		}
		next = next.WithTopic(id)
	}

	st.Select(func(session.Selection) session.Selection { return next })
	return nil
}

func (h *SessionHandler) ToggleExamMode(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	on := st.ToggleExamMode()
	d, err := st.Dashboard()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exam_mode": on, "boss": d.Boss})
}

type MoodRequest struct {
	Mood string `json:"mood" binding:"required"`
}

func (h *SessionHandler) SetMood(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	var req MoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	quote, encouragement := st.SetMood(req.Mood)
	c.JSON(http.StatusOK, gin.H{"quote": quote, "encouragement": encouragement})
}

// Quote draws a fresh quote, from ?category= when given.
func (h *SessionHandler) Quote(c *gin.Context) {
	st, ok := h.state(c)
	if !ok {
		return
	}

	quote := st.NextQuote(derive.Category(c.Query("category")))
	c.JSON(http.StatusOK, gin.H{"quote": quote})
}
