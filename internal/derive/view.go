package derive

import (
	"math"
	"sort"
	"time"

	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/models"
)

type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusPending   StatusFilter = "pending"
	StatusCompleted StatusFilter = "completed"
)

func ParseStatusFilter(s string) (StatusFilter, bool) {
	switch StatusFilter(s) {
	case StatusAll, "":
		return StatusAll, true
	case StatusPending:
		return StatusPending, true
	case StatusCompleted:
		return StatusCompleted, true
	}
	return "", false
}

// Filter selects tasks for display. A nil subject or topic disables that
// filter.
type Filter struct {
	Status    StatusFilter `json:"status"`
	SubjectID *uuid.UUID   `json:"subject_id"`
	TopicID   *uuid.UUID   `json:"topic_id"`
}

func (f Filter) matches(t models.Task) bool {
	switch f.Status {
	case StatusPending:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if f.SubjectID != nil && !t.HasSubject(*f.SubjectID) {
		return false
	}
	if f.TopicID != nil && !t.HasTopic(*f.TopicID) {
		return false
	}
	return true
}

func FilterTasks(tasks []models.Task, f Filter) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.matches(t) {
			out = append(out, t)
		}
	}
	return out
}

// SortByPriority orders high before medium before low, keeping the
// existing order among equals.
func SortByPriority(tasks []models.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
	})
}

// HardestTask is the pending high-priority task due first. The earlier
// task in the list wins a tie. Tasks without a valid date sort last.
func HardestTask(tasks []models.Task) (uuid.UUID, bool) {
	var (
		best      uuid.UUID
		bestDue   time.Time
		bestValid bool
		found     bool
	)
	for _, t := range tasks {
		if t.Completed || t.Priority != models.PriorityHigh {
			continue
		}
		due, err := models.ParseDate(t.DueDate)
		valid := err == nil
		if !found || (valid && (!bestValid || due.Before(bestDue))) {
			best, bestDue, bestValid, found = t.ID, due, valid, true
		}
	}
	return best, found
}

type TaskItem struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	SubjectID   *uuid.UUID      `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	TopicID     *uuid.UUID      `json:"topic_id"`
	TopicName   string          `json:"topic_name"`
	Priority    models.Priority `json:"priority"`
	DueDate     string          `json:"due_date"`
	Completed   bool            `json:"completed"`
	Hardest     bool            `json:"hardest"`
	CanSplit    bool            `json:"can_split"`
}

type TaskList struct {
	Items     []TaskItem `json:"items"`
	Empty     bool       `json:"empty"`
	HardestID *uuid.UUID `json:"hardest_id"`
}

func BuildTaskList(tasks []models.Task, f Filter) TaskList {
	visible := FilterTasks(tasks, f)
	SortByPriority(visible)

	list := TaskList{Items: make([]TaskItem, 0, len(visible)), Empty: len(visible) == 0}

	hardest, ok := HardestTask(visible)
	if ok {
		list.HardestID = &hardest
	}

	for _, t := range visible {
		list.Items = append(list.Items, TaskItem{
			ID:          t.ID,
			Title:       t.Title,
			SubjectID:   t.SubjectID,
			SubjectName: t.SubjectLabel(),
			TopicID:     t.TopicID,
			TopicName:   t.TopicLabel(),
			Priority:    t.Priority,
			DueDate:     t.DueDate,
			Completed:   t.Completed,
			Hardest:     ok && t.ID == hardest,
			CanSplit:    !t.Completed,
		})
	}
	return list
}

type SubjectChip struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	OpenTasks int       `json:"open_tasks"`
	Glow      float64   `json:"glow"`
	Active    bool      `json:"active"`
}

// WorkloadGlow maps open tasks to chip intensity; five tasks saturate it.
func WorkloadGlow(open int) float64 {
	return math.Min(float64(open)/5, 1)*0.5 + 0.1
}

func BuildSubjectChips(subjects []models.Subject, tasks []models.Task, selected *uuid.UUID) []SubjectChip {
	open := make(map[uuid.UUID]int)
	for _, t := range tasks {
		if !t.Completed && t.SubjectID != nil {
			open[*t.SubjectID]++
		}
	}

	chips := make([]SubjectChip, 0, len(subjects))
	for _, s := range subjects {
		chips = append(chips, SubjectChip{
			ID:        s.ID,
			Name:      s.Name,
			OpenTasks: open[s.ID],
			Glow:      WorkloadGlow(open[s.ID]),
			Active:    selected != nil && *selected == s.ID,
		})
	}
	return chips
}

// TopicsFor lists the topics of one subject, or every topic for nil.
func TopicsFor(topics []models.Topic, subjectID *uuid.UUID) []models.Topic {
	if subjectID == nil {
		return append([]models.Topic(nil), topics...)
	}
	out := make([]models.Topic, 0)
	for _, t := range topics {
		if t.SubjectID == *subjectID {
			out = append(out, t)
		}
	}
	return out
}

type TopicTag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	SubjectID uuid.UUID `json:"subject_id"`
	Active    bool      `json:"active"`
}

func BuildTopicTags(topics []models.Topic, subject, selected *uuid.UUID) []TopicTag {
	visible := TopicsFor(topics, subject)
	tags := make([]TopicTag, 0, len(visible))
	for _, t := range visible {
		tags = append(tags, TopicTag{
			ID:        t.ID,
			Name:      t.Name,
			SubjectID: t.SubjectID,
			Active:    selected != nil && *selected == t.ID,
		})
	}
	return tags
}

const (
	BossDefeated = "DEFEATED"
	BossName     = "Semester Exams"
)

type Boss struct {
	Active bool    `json:"active"`
	HP     float64 `json:"hp"`
	Label  string  `json:"label"`
}

// BossHP is the share of tasks still open, as a percentage. With no tasks
// the boss is at full health.
func BossHP(tasks []models.Task) float64 {
	if len(tasks) == 0 {
		return 100
	}
	completed := 0
	for _, t := range tasks {
		if t.Completed {
			completed++
		}
	}
	return 100 * (1 - float64(completed)/float64(len(tasks)))
}

// BuildBoss is only meaningful in exam mode; outside it the boss is hidden.
func BuildBoss(tasks []models.Task, examMode bool) Boss {
	if !examMode {
		return Boss{}
	}
	hp := BossHP(tasks)
	label := BossName
	if hp == 0 {
		label = BossDefeated
	}
	return Boss{Active: true, HP: hp, Label: label}
}
