// Package session holds the application state of one signed-in identity:
// its stores, dashboard selection, exam mode, mood and focus timer.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"golang.org/x/exp/rand"

	"zenfocus/backend/internal/derive"
	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/identity"
	"zenfocus/backend/internal/logger"
	"zenfocus/backend/internal/models"
	"zenfocus/backend/internal/pomodoro"
	"zenfocus/backend/internal/store"
)

type ChangeKind string

const (
	ChangeSession ChangeKind = "session"
	ChangeData    ChangeKind = "data"
	ChangeView    ChangeKind = "view"
	ChangeTimer   ChangeKind = "timer"
)

type Config struct {
	Collections   store.Collections
	Stats         gateway.StatsStore
	Now           func() time.Time
	Rand          rand.Source
	TimerInterval time.Duration
}

// Visibility reports which surface the client should show.
type Visibility struct {
	App  bool `json:"app"`
	Auth bool `json:"auth"`
}

type State struct {
	cfg    Config
	timer  *pomodoro.Timer
	picker *derive.QuotePicker

	// lifecycle serializes Initialize and Teardown.
	lifecycle sync.Mutex

	mu        sync.RWMutex
	identity  identity.Identity
	stores    *store.Set
	selection Selection
	examMode  bool
	mood      string
	category  derive.Category
	quote     string
	notice    string

	lmu       sync.Mutex
	listeners map[int]func(ChangeKind)
	nextID    int
}

func New(cfg Config) *State {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.NewSource(uint64(time.Now().UnixNano()))
	}

	s := &State{
		cfg:       cfg,
		picker:    derive.NewQuotePicker(cfg.Rand, cfg.Now),
		selection: DefaultSelection(),
		category:  derive.CategoryGeneral,
		listeners: make(map[int]func(ChangeKind)),
	}
	s.timer = pomodoro.NewTimer(pomodoro.Options{
		Interval:   cfg.TimerInterval,
		OnTick:     func(pomodoro.State) { s.emit(ChangeTimer) },
		OnComplete: s.focusComplete,
	})
	return s
}

// Initialize loads the identity's stats and subscribes its stores. Calling
// it again for the same identity is a no-op; a different identity replaces
// the current one.
func (s *State) Initialize(ctx context.Context, id identity.Identity) error {
	if id.IsZero() {
		return store.ErrNoIdentity
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	current := s.Identity()
	if !current.IsZero() && current.UserID == id.UserID {
		return nil
	}
	if !current.IsZero() {
		s.teardown()
	}

	set := store.New(id.UserID, s.cfg.Collections, s.cfg.Stats, store.Options{
		Now:      s.cfg.Now,
		OnChange: func() { s.emit(ChangeData) },
	})
	if err := set.Start(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.identity = id
	s.stores = set
	s.selection = DefaultSelection()
	s.category = derive.CategoryGeneral
	s.quote = s.picker.Pick(derive.CategoryGeneral)
	s.mu.Unlock()

	logger.Info("session initialized", "user_id", id.UserID)
	s.emit(ChangeSession)
	return nil
}

// Teardown cancels every subscription, empties the stores and stops the
// timer. Snapshots arriving afterwards are discarded.
func (s *State) Teardown() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.teardown()
}

func (s *State) teardown() {
	s.mu.Lock()
	set := s.stores
	userID := s.identity.UserID
	s.stores = nil
	s.identity = identity.Identity{}
	s.selection = DefaultSelection()
	s.examMode = false
	s.mood = ""
	s.notice = ""
	s.mu.Unlock()

	if set == nil {
		return
	}
	set.Stop()
	s.timer.Reset()

	logger.Info("session torn down", "user_id", userID)
	s.emit(ChangeSession)
}

func (s *State) Identity() identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identity
}

func (s *State) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stores != nil
}

func (s *State) Visibility() Visibility {
	active := s.Active()
	return Visibility{App: active, Auth: !active}
}

// Listen registers fn for change notifications and returns its remover.
func (s *State) Listen(fn func(ChangeKind)) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *State) emit(kind ChangeKind) {
	s.lmu.Lock()
	fns := make([]func(ChangeKind), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(kind)
	}
}

func (s *State) active() (*store.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stores == nil {
		return nil, store.ErrNoIdentity
	}
	return s.stores, nil
}

func (s *State) AddTask(ctx context.Context, in store.TaskInput) (models.Task, error) {
	set, err := s.active()
	if err != nil {
		return models.Task{}, err
	}
	return set.Tasks.AddTask(ctx, in)
}

func (s *State) ToggleTask(ctx context.Context, id uuid.UUID, current bool) error {
	set, err := s.active()
	if err != nil {
		return err
	}
	return set.Tasks.ToggleTask(ctx, id, current)
}

// ToggleTaskByID toggles using the mirrored completion flag.
func (s *State) ToggleTaskByID(ctx context.Context, id uuid.UUID) error {
	set, err := s.active()
	if err != nil {
		return err
	}
	task, ok := set.Tasks.Get(id)
	if !ok {
		return store.ErrTaskNotFound
	}
	return set.Tasks.ToggleTask(ctx, id, task.Completed)
}

func (s *State) DeleteTask(ctx context.Context, id uuid.UUID) error {
	set, err := s.active()
	if err != nil {
		return err
	}
	return set.Tasks.DeleteTask(ctx, id)
}

func (s *State) SplitTask(ctx context.Context, id uuid.UUID) ([]models.Task, error) {
	set, err := s.active()
	if err != nil {
		return nil, err
	}
	return set.Tasks.SplitTask(ctx, id)
}

func (s *State) AddSubject(ctx context.Context, name string) (models.Subject, error) {
	set, err := s.active()
	if err != nil {
		return models.Subject{}, err
	}
	return set.Catalog.AddSubject(ctx, name)
}

func (s *State) AddTopic(ctx context.Context, name string, subjectID uuid.UUID) (models.Topic, error) {
	set, err := s.active()
	if err != nil {
		return models.Topic{}, err
	}
	return set.Catalog.AddTopic(ctx, name, subjectID)
}

func (s *State) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	set, err := s.active()
	if err != nil {
		return err
	}
	if err := set.Catalog.DeleteSubject(ctx, id); err != nil {
		return err
	}
	s.forget(id)
	return nil
}

func (s *State) DeleteTopic(ctx context.Context, id uuid.UUID) error {
	set, err := s.active()
	if err != nil {
		return err
	}
	if err := set.Catalog.DeleteTopic(ctx, id); err != nil {
		return err
	}
	s.forget(id)
	return nil
}

func (s *State) forget(id uuid.UUID) {
	s.mu.Lock()
	before := s.selection
	s.selection = s.selection.Forget(id)
	changed := before != s.selection
	s.mu.Unlock()

	if changed {
		s.emit(ChangeView)
	}
}

func (s *State) Selection() Selection {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection
}

// Select applies fn to the current selection.
func (s *State) Select(fn func(Selection) Selection) Selection {
	s.mu.Lock()
	s.selection = fn(s.selection)
	sel := s.selection
	s.mu.Unlock()

	s.emit(ChangeView)
	return sel
}

func (s *State) SelectStatus(status derive.StatusFilter) Selection {
	return s.Select(func(sel Selection) Selection { return sel.WithStatus(status) })
}

func (s *State) SelectSubject(id *uuid.UUID) Selection {
	return s.Select(func(sel Selection) Selection { return sel.WithSubject(id) })
}

func (s *State) SelectTopic(id *uuid.UUID) Selection {
	return s.Select(func(sel Selection) Selection { return sel.WithTopic(id) })
}

func (s *State) ToggleExamMode() bool {
	s.mu.Lock()
	s.examMode = !s.examMode
	on := s.examMode
	s.mu.Unlock()

	s.emit(ChangeView)
	return on
}

func (s *State) ExamMode() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.examMode
}

// SetMood switches the quote category and returns the new quote with the
// encouragement shown for the mood.
func (s *State) SetMood(mood string) (quote, encouragement string) {
	category := derive.CategoryForMood(mood)
	quote = s.picker.Pick(category)

	s.mu.Lock()
	s.mood = mood
	s.category = category
	s.quote = quote
	s.mu.Unlock()

	s.emit(ChangeView)
	return quote, derive.EncouragementFor(mood)
}

// NextQuote draws a new quote from category, or from the current mood's
// category when it is empty.
func (s *State) NextQuote(category derive.Category) string {
	s.mu.Lock()
	if category == "" {
		category = s.category
	}
	quote := s.picker.Pick(category)
	s.quote = quote
	s.mu.Unlock()

	s.emit(ChangeView)
	return quote
}

// GuiltQuote is shown when confirming a delete.
func (s *State) GuiltQuote() string {
	return s.picker.Pick(derive.CategoryGuilt)
}

func (s *State) StartFocus(minutes int) error {
	if !s.Active() {
		return store.ErrNoIdentity
	}
	s.mu.Lock()
	s.notice = ""
	s.mu.Unlock()
	return s.timer.Start(minutes)
}

func (s *State) ResetFocus() pomodoro.State {
	s.timer.Reset()
	return s.timer.State()
}

func (s *State) Focus() pomodoro.State {
	return s.timer.State()
}

func (s *State) focusComplete(message string) {
	s.mu.Lock()
	s.notice = message
	s.mu.Unlock()
	s.emit(ChangeTimer)
}
