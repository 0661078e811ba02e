package session

import (
	"github.com/gofrs/uuid"

	"zenfocus/backend/internal/derive"
	"zenfocus/backend/internal/pomodoro"
	"zenfocus/backend/internal/store"
)

type UserView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Provider    string    `json:"provider"`
}

// Dashboard is everything the client renders after a change.
type Dashboard struct {
	User          UserView             `json:"user"`
	Visibility    Visibility           `json:"visibility"`
	XP            derive.XPBar         `json:"xp"`
	Stress        derive.Stress        `json:"stress"`
	Tasks         derive.TaskList      `json:"tasks"`
	Subjects      []derive.SubjectChip `json:"subjects"`
	SubjectsEmpty string               `json:"subjects_empty,omitempty"`
	Topics        []derive.TopicTag    `json:"topics"`
	TopicsEmpty   string               `json:"topics_empty,omitempty"`
	Boss          derive.Boss          `json:"boss"`
	ExamMode      bool                 `json:"exam_mode"`
	Selection     Selection            `json:"selection"`
	Mood          string               `json:"mood,omitempty"`
	Quote         string               `json:"quote"`
	Focus         pomodoro.State       `json:"focus"`
	Notice        string               `json:"notice,omitempty"`
}

// Dashboard derives the full view-model from the current mirrors.
func (s *State) Dashboard() (Dashboard, error) {
	s.mu.RLock()
	set := s.stores
	id := s.identity
	sel := s.selection
	examMode := s.examMode
	mood := s.mood
	quote := s.quote
	notice := s.notice
	s.mu.RUnlock()

	if set == nil {
		return Dashboard{}, store.ErrNoIdentity
	}

	tasks := set.Tasks.Snapshot()
	subjects := set.Catalog.Subjects()
	topics := set.Catalog.Topics()

	d := Dashboard{
		User: UserView{
			ID:          id.UserID,
			Email:       id.Email,
			DisplayName: id.GreetingName(),
			Provider:    id.Provider,
		},
		Visibility: Visibility{App: true},
		XP:         derive.NewXPBar(set.Ledger.XP()),
		Stress:     derive.MeasureStress(tasks),
		Tasks:      derive.BuildTaskList(tasks, sel.Filter()),
		Subjects:   derive.BuildSubjectChips(subjects, tasks, sel.Subject),
		Topics:     derive.BuildTopicTags(topics, sel.Subject, sel.Topic),
		Boss:       derive.BuildBoss(tasks, examMode),
		ExamMode:   examMode,
		Selection:  sel,
		Mood:       mood,
		Quote:      quote,
		Focus:      s.timer.State(),
		Notice:     notice,
	}
	if len(d.Subjects) == 0 {
		d.SubjectsEmpty = store.EmptySubjectsMessage
	}
	if len(d.Topics) == 0 {
		d.TopicsEmpty = store.EmptyTopicsMessage
	}
	return d, nil
}
