package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/derive"
	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/models"
)

// OverloadThreshold is the pending-task count at which new tasks need
// confirmation.
const OverloadThreshold = 10

const AddedMessage = "Added! You're doing great."

// SplitPhases prefix the titles of the subtasks a split produces.
var SplitPhases = []string{"Research & Planning", "Core Development", "Testing & Review"}

type TaskInput struct {
	Title     string
	SubjectID *uuid.UUID
	TopicID   *uuid.UUID
	DueDate   string
	Priority  models.Priority
	// Force skips the overload confirmation.
	Force bool
}

type Tasks struct {
	owner   uuid.UUID
	coll    gateway.Collection[models.Task]
	mirror  *Mirror[models.Task]
	catalog *Catalog
	ledger  *Ledger
	now     func() time.Time

	sync *binding[models.Task]
}

func NewTasks(owner uuid.UUID, coll gateway.Collection[models.Task], mirror *Mirror[models.Task], catalog *Catalog, ledger *Ledger, now func() time.Time, onChange func()) *Tasks {
	if now == nil {
		now = time.Now
	}
	return &Tasks{
		owner:   owner,
		coll:    coll,
		mirror:  mirror,
		catalog: catalog,
		ledger:  ledger,
		now:     now,
		sync:    newBinding(coll, mirror, onChange),
	}
}

func (s *Tasks) Start(ctx context.Context) error {
	return s.sync.start(ctx, s.owner)
}

func (s *Tasks) Stop() {
	s.sync.stop()
}

func (s *Tasks) Snapshot() []models.Task { return s.mirror.Snapshot() }

func (s *Tasks) Get(id uuid.UUID) (models.Task, bool) { return s.mirror.Get(id) }

func (s *Tasks) ReplaceAll(tasks []models.Task) { s.mirror.ReplaceAll(tasks) }

func (s *Tasks) PendingCount() int {
	return len(s.mirror.Where(func(t models.Task) bool { return !t.Completed }))
}

// AddTask validates in, resolves subject and topic names from the catalog,
// infers the stored priority and writes the task.
func (s *Tasks) AddTask(ctx context.Context, in TaskInput) (models.Task, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Task{}, invalid("title", "Task title cannot be empty.")
	}

	manual := in.Priority
	if manual != "" && manual.Rank() == 0 {
		return models.Task{}, invalid("priority", "Priority must be low, medium or high.")
	}

	now := s.now()
	due := in.DueDate
	if strings.TrimSpace(due) == "" {
		due = models.FormatDate(now)
	}
	dueDate, err := models.ParseDate(due)
	if err != nil {
		return models.Task{}, invalid("due_date", err.Error())
	}

	task := models.Task{
		OwnerID:     s.owner,
		Title:       title,
		SubjectName: models.DefaultSubjectName,
		DueDate:     models.FormatDate(dueDate),
	}
	if in.SubjectID != nil {
		subject, ok := s.catalog.Subject(*in.SubjectID)
		if !ok {
			return models.Task{}, invalid("subject_id", "Selected subject not found.")
		}
		id := subject.ID
		task.SubjectID = &id
		task.SubjectName = subject.Name
	}
	if in.TopicID != nil {
		topic, ok := s.catalog.Topic(*in.TopicID)
		if !ok {
			return models.Task{}, invalid("topic_id", "Selected topic not found.")
		}
		id, name := topic.ID, topic.Name
		task.TopicID = &id
		task.TopicName = &name
	}

	if !in.Force && s.PendingCount() >= OverloadThreshold {
		return models.Task{}, ErrOverloaded
	}

	task.Priority = derive.InferPriority(dueDate, task.SubjectName, manual, now)

	if err := s.coll.Create(ctx, &task); err != nil {
		err = syncErr(OpAddTask, err)
		logger.Error("failed to add task", "owner", s.owner, "error", err)
		return models.Task{}, err
	}

	s.award(ctx, ReasonAddTask, XPAddTask)
	return task, nil
}

// ToggleTask flips completion from current. Only a pending to completed
// transition earns XP; undoing keeps it.
func (s *Tasks) ToggleTask(ctx context.Context, id uuid.UUID, current bool) error {
	err := s.coll.Update(ctx, s.owner, id, map[string]interface{}{"completed": !current})
	if errors.Is(err, gateway.ErrNotFound) {
		return ErrTaskNotFound
	}
	if err != nil {
		err = syncErr(OpToggleTask, err)
		logger.Error("failed to toggle task", "owner", s.owner, "task_id", id, "error", err)
		return err
	}

	if !current {
		s.award(ctx, ReasonCompleteTask, XPCompleteTask)
	}
	return nil
}

func (s *Tasks) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := s.coll.Delete(ctx, s.owner, id); err != nil {
		err = syncErr(OpDeleteTask, err)
		logger.Error("failed to delete task", "owner", s.owner, "task_id", id, "error", err)
		return err
	}
	return nil
}

// SplitTask replaces a pending task with three medium-priority parts that
// keep its subject, topic and due date.
func (s *Tasks) SplitTask(ctx context.Context, id uuid.UUID) ([]models.Task, error) {
	original, ok := s.mirror.Get(id)
	if !ok {
		return nil, ErrTaskNotFound
	}
	if original.Completed {
		return nil, ErrNotPending
	}

	parts := make([]models.Task, 0, len(SplitPhases))
	for _, phase := range SplitPhases {
		part := models.Task{
			OwnerID:     s.owner,
			Title:       fmt.Sprintf("%s: %s", phase, original.Title),
			SubjectID:   original.SubjectID,
			SubjectName: original.SubjectName,
			TopicID:     original.TopicID,
			TopicName:   original.TopicName,
			Priority:    models.PriorityMedium,
			DueDate:     original.DueDate,
		}
		if err := s.coll.Create(ctx, &part); err != nil {
			return parts, s.splitFailed(id, err)
		}
		parts = append(parts, part)
	}

	if err := s.coll.Delete(ctx, s.owner, id); err != nil {
		return parts, s.splitFailed(id, err)
	}

	s.award(ctx, ReasonSplitTask, XPSplitTask)
	return parts, nil
}

// award never fails the task operation. Award keeps the local increment and
// has already logged a failed write as a SyncError.
func (s *Tasks) award(ctx context.Context, reason string, amount int64) {
	_ = s.ledger.Award(ctx, reason, amount)
}

func (s *Tasks) splitFailed(id uuid.UUID, err error) error {
	err = syncErr(OpSplitTask, err)
	logger.Error("failed to split task", "owner", s.owner, "task_id", id, "error", err)
	return err
}
