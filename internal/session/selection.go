package session

import (
	"strings"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/derive"
)

// AllSentinel disables a subject or topic filter.
const AllSentinel = "all"

// Selection is the dashboard filter state. A nil id selects everything.
type Selection struct {
	Status  derive.StatusFilter `json:"status"`
	Subject *uuid.UUID          `json:"subject_id"`
	Topic   *uuid.UUID          `json:"topic_id"`
}

func DefaultSelection() Selection {
	return Selection{Status: derive.StatusAll}
}

func (s Selection) Filter() derive.Filter {
	return derive.Filter{Status: s.Status, SubjectID: s.Subject, TopicID: s.Topic}
}

func (s Selection) WithStatus(status derive.StatusFilter) Selection {
	s.Status = status
	return s
}

// WithSubject changes the subject and always clears the topic.
func (s Selection) WithSubject(id *uuid.UUID) Selection {
	s.Subject = cloneID(id)
	s.Topic = nil
	return s
}

func (s Selection) WithTopic(id *uuid.UUID) Selection {
	s.Topic = cloneID(id)
	return s
}

// Forget clears any selection that points at a deleted subject or topic.
// Deleting the selected subject also clears the topic.
func (s Selection) Forget(id uuid.UUID) Selection {
	if s.Subject != nil && *s.Subject == id {
		s.Subject = nil
		s.Topic = nil
	}
	if s.Topic != nil && *s.Topic == id {
		s.Topic = nil
	}
	return s
}

// ParseID reads a subject or topic selector. Empty and "all" select
// everything.
func ParseID(raw string) (*uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, AllSentinel) {
		return nil, nil
	}
	id, err := uuid.FromString(raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
