package store

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrOverloaded   = errors.New("overload warning: you have a lot on your plate, confirm to add more")
	ErrNoIdentity   = errors.New("no signed-in identity")
	ErrNotPending   = errors.New("only pending tasks can be split")
)

// ValidationError is raised before any write is attempted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AddTaskFailedMessage is the only write failure surfaced to the user as text.
const AddTaskFailedMessage = "Failed to add task. Please check your connection or login status."

// SyncError is a failed write or subscription against the backend.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// UserMessage is the alert text for the failure, empty when the failure is
// only logged.
func (e *SyncError) UserMessage() string {
	if e.Op == OpAddTask {
		return AddTaskFailedMessage
	}
	return ""
}

const (
	OpAddTask       = "add_task"
	OpToggleTask    = "toggle_task"
	OpDeleteTask    = "delete_task"
	OpSplitTask     = "split_task"
	OpAddSubject    = "add_subject"
	OpAddTopic      = "add_topic"
	OpDeleteSubject = "delete_subject"
	OpDeleteTopic   = "delete_topic"
	OpAwardXP       = "award_xp"
	OpLoadStats     = "load_stats"
	OpSubscribe     = "subscribe"
)

func syncErr(op string, err error) error {
	return &SyncError{Op: op, Err: err}
}
