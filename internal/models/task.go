package models

import (
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"gorm.io/gorm"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// DefaultSubjectName is stored on tasks created without a subject.
const DefaultSubjectName = "General"

// NoTopicLabel is what a task without a topic displays.
const NoTopicLabel = "No Topic"

// DateLayout is the calendar-date format used for due dates.
const DateLayout = "2006-01-02"

var ErrInvalidDate = errors.New("due date must be formatted as YYYY-MM-DD")

func ParsePriority(s string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityLow:
		return PriorityLow, true
	case PriorityMedium:
		return PriorityMedium, true
	case PriorityHigh:
		return PriorityHigh, true
	}
	return "", false
}

// Rank orders priorities for display: high > medium > low > anything else.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

type Task struct {
	ID          uuid.UUID  `json:"id" gorm:"primaryKey;type:uuid"`
	OwnerID     uuid.UUID  `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title       string     `json:"title" gorm:"not null"`
	SubjectID   *uuid.UUID `json:"subject_id" gorm:"type:uuid;index"`
	SubjectName string     `json:"subject_name"`
	TopicID     *uuid.UUID `json:"topic_id" gorm:"type:uuid;index"`
	TopicName   *string    `json:"topic_name"`
	Priority    Priority   `json:"priority" gorm:"type:varchar(10);not null;default:'low'"`
	DueDate     string     `json:"due_date" gorm:"type:varchar(10)"`
	Completed   bool       `json:"completed" gorm:"not null;default:false"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (Task) TableName() string { return "tasks" }

func (t Task) RecordID() uuid.UUID { return t.ID }

func (t Task) OwnerKey() uuid.UUID { return t.OwnerID }

func (t *Task) BeforeCreate(tx *gorm.DB) error {
	if t.ID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		t.ID = id
	}
	return nil
}

// SubjectLabel is the subject name shown on the task, "General" when unset.
func (t Task) SubjectLabel() string {
	if t.SubjectName == "" {
		return DefaultSubjectName
	}
	return t.SubjectName
}

func (t Task) TopicLabel() string {
	if t.TopicName == nil || *t.TopicName == "" {
		return NoTopicLabel
	}
	return *t.TopicName
}

// HasSubject reports whether the task references subject id.
func (t Task) HasSubject(id uuid.UUID) bool {
	return t.SubjectID != nil && *t.SubjectID == id
}

func (t Task) HasTopic(id uuid.UUID) bool {
	return t.TopicID != nil && *t.TopicID == id
}

// ParseDate parses a calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// FormatDate renders the UTC calendar date of t.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
