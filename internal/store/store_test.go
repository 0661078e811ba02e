package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"zenfocus/backend/internal/database"
	"zenfocus/backend/internal/gateway"
	"zenfocus/backend/internal/models"
)

var errBackendDown = errors.New("backend unavailable")

// flakyCollection fails writes on demand and passes everything else through.
type flakyCollection[T gateway.Record] struct {
	gateway.Collection[T]

	mu          sync.Mutex
	failCreate  bool
	failDelete  map[uuid.UUID]bool
	deleteCalls int
}

func newFlaky[T gateway.Record](next gateway.Collection[T]) *flakyCollection[T] {
	return &flakyCollection[T]{Collection: next, failDelete: make(map[uuid.UUID]bool)}
}

func (f *flakyCollection[T]) Create(ctx context.Context, rec *T) error {
	f.mu.Lock()
	fail := f.failCreate
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Collection.Create(ctx, rec)
}

func (f *flakyCollection[T]) Delete(ctx context.Context, owner, id uuid.UUID) error {
	f.mu.Lock()
	f.deleteCalls++
	fail := f.failDelete[id]
	f.mu.Unlock()
	if fail {
		return errBackendDown
	}
	return f.Collection.Delete(ctx, owner, id)
}

func (f *flakyCollection[T]) setFailDelete(id uuid.UUID, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDelete[id] = fail
}

type failingStats struct{ gateway.StatsStore }

func (failingStats) AddXP(context.Context, uuid.UUID, int64) (models.UserStats, error) {
	return models.UserStats{}, errBackendDown
}

type StoreTestSuite struct {
	suite.Suite
	pool     *database.DatabasePool
	feed     *gateway.MemoryFeed
	subjects *flakyCollection[models.Subject]
	topics   *flakyCollection[models.Topic]
	tasks    *flakyCollection[models.Task]
	stats    gateway.StatsStore
	owner    uuid.UUID
	now      time.Time
	set      *Set
}

func (s *StoreTestSuite) SetupTest() {
	pool, err := database.NewDatabasePool(database.MemoryPoolConfig())
	s.Require().NoError(err)
	s.Require().NoError(pool.Migrate())

	s.pool = pool
	s.feed = gateway.NewMemoryFeed()
	s.subjects = newFlaky[models.Subject](gateway.NewGormCollection[models.Subject](pool.DB, s.feed))
	s.topics = newFlaky[models.Topic](gateway.NewGormCollection[models.Topic](pool.DB, s.feed))
	s.tasks = newFlaky[models.Task](gateway.NewGormCollection[models.Task](pool.DB, s.feed))
	s.stats = gateway.NewGormStats(pool.DB)
	s.owner = uuid.Must(uuid.NewV4())
	s.now = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s.set = s.newSet(s.stats)
}

func (s *StoreTestSuite) TearDownTest() {
	s.set.Stop()
	_ = s.feed.Close()
	_ = s.pool.Close()
}

func (s *StoreTestSuite) newSet(stats gateway.StatsStore) *Set {
	cols := Collections{Subjects: s.subjects, Topics: s.topics, Tasks: s.tasks}
	return New(s.owner, cols, stats, Options{Now: func() time.Time { return s.now }})
}

// refresh copies the backend state into the mirrors the way a snapshot would.
func (s *StoreTestSuite) refresh() {
	ctx := context.Background()
	subjects, err := s.subjects.List(ctx, s.owner)
	s.Require().NoError(err)
	topics, err := s.topics.List(ctx, s.owner)
	s.Require().NoError(err)
	tasks, err := s.tasks.List(ctx, s.owner)
	s.Require().NoError(err)

	s.set.Catalog.ReplaceSubjects(subjects)
	s.set.Catalog.ReplaceTopics(topics)
	s.set.Tasks.ReplaceAll(tasks)
}

func (s *StoreTestSuite) addSubject(name string) models.Subject {
	subject, err := s.set.Catalog.AddSubject(context.Background(), name)
	s.Require().NoError(err)
	s.refresh()
	return subject
}

func (s *StoreTestSuite) addTopic(name string, subject uuid.UUID) models.Topic {
	topic, err := s.set.Catalog.AddTopic(context.Background(), name, subject)
	s.Require().NoError(err)
	s.refresh()
	return topic
}

func (s *StoreTestSuite) addTask(in TaskInput) models.Task {
	task, err := s.set.Tasks.AddTask(context.Background(), in)
	s.Require().NoError(err)
	s.refresh()
	return task
}

func (s *StoreTestSuite) storedTasks() []models.Task {
	tasks, err := s.tasks.List(context.Background(), s.owner)
	s.Require().NoError(err)
	return tasks
}

func (s *StoreTestSuite) TestAddTaskRejectsEmptyTitle() {
	_, err := s.set.Tasks.AddTask(context.Background(), TaskInput{Title: "   "})

	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("title", verr.Field)
	s.Empty(s.storedTasks())
	s.Zero(s.set.Ledger.XP())
}

func (s *StoreTestSuite) TestAddTaskDefaults() {
	task := s.addTask(TaskInput{Title: "Revise notes", Priority: models.PriorityLow})

	s.Equal(models.DefaultSubjectName, task.SubjectName)
	s.Nil(task.SubjectID)
	s.Nil(task.TopicID)
	s.Equal("2024-05-01", task.DueDate)
	// due today overrides the manual choice
	s.Equal(models.PriorityHigh, task.Priority)
	s.False(task.Completed)
	s.Equal(XPAddTask, s.set.Ledger.XP())
}

func (s *StoreTestSuite) TestAddTaskKeepsManualPriorityForDistantGeneralTask() {
	task := s.addTask(TaskInput{Title: "Read", DueDate: "2024-05-20", Priority: models.PriorityMedium})
	s.Equal(models.PriorityMedium, task.Priority)

	task = s.addTask(TaskInput{Title: "Skim", DueDate: "2024-05-20"})
	s.Equal(models.PriorityLow, task.Priority)
}

func (s *StoreTestSuite) TestAddTaskResolvesCatalogNames() {
	subject := s.addSubject("DSA")
	topic := s.addTopic("Graphs", subject.ID)

	task := s.addTask(TaskInput{
		Title:     "BFS drills",
		SubjectID: &subject.ID,
		TopicID:   &topic.ID,
		DueDate:   "2024-06-30",
		Priority:  models.PriorityLow,
	})

	s.Equal("DSA", task.SubjectName)
	s.Require().NotNil(task.TopicName)
	s.Equal("Graphs", *task.TopicName)
	s.Equal(models.PriorityHigh, task.Priority)
}

func (s *StoreTestSuite) TestAddTaskRejectsUnknownSelectionsAndDates() {
	missing := uuid.Must(uuid.NewV4())
	ctx := context.Background()

	cases := []struct {
		name  string
		in    TaskInput
		field string
	}{
		{"unknown subject", TaskInput{Title: "a", SubjectID: &missing}, "subject_id"},
		{"unknown topic", TaskInput{Title: "a", TopicID: &missing}, "topic_id"},
		{"bad date", TaskInput{Title: "a", DueDate: "05/01/2024"}, "due_date"},
		{"bad priority", TaskInput{Title: "a", Priority: "urgent"}, "priority"},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.set.Tasks.AddTask(ctx, tc.in)
			var verr *ValidationError
			s.Require().ErrorAs(err, &verr)
			s.Equal(tc.field, verr.Field)
		})
	}
	s.Empty(s.storedTasks())
}

func (s *StoreTestSuite) TestAddTaskOverload() {
	for i := 0; i < OverloadThreshold; i++ {
		s.addTask(TaskInput{Title: "pending", Force: true})
	}

	_, err := s.set.Tasks.AddTask(context.Background(), TaskInput{Title: "one more"})
	s.ErrorIs(err, ErrOverloaded)
	s.Len(s.storedTasks(), OverloadThreshold)

	s.addTask(TaskInput{Title: "one more", Force: true})
	s.Len(s.storedTasks(), OverloadThreshold+1)
}

func (s *StoreTestSuite) TestAddTaskWriteFailure() {
	s.tasks.failCreate = true

	_, err := s.set.Tasks.AddTask(context.Background(), TaskInput{Title: "offline"})

	var serr *SyncError
	s.Require().ErrorAs(err, &serr)
	s.Equal(OpAddTask, serr.Op)
	s.Equal(AddTaskFailedMessage, serr.UserMessage())
	s.ErrorIs(err, errBackendDown)
	s.Zero(s.set.Ledger.XP())
}

func (s *StoreTestSuite) TestToggleAwardsOnlyOnCompletion() {
	ctx := context.Background()
	task := s.addTask(TaskInput{Title: "Lab report"})
	s.Equal(int64(5), s.set.Ledger.XP())

	s.Require().NoError(s.set.Tasks.ToggleTask(ctx, task.ID, false))
	s.Equal(int64(25), s.set.Ledger.XP())

	s.Require().NoError(s.set.Tasks.ToggleTask(ctx, task.ID, true))
	s.Equal(int64(25), s.set.Ledger.XP())

	s.Require().NoError(s.set.Tasks.ToggleTask(ctx, task.ID, false))
	s.Equal(int64(45), s.set.Ledger.XP())

	stored, err := s.stats.Get(ctx, s.owner)
	s.Require().NoError(err)
	s.Equal(int64(45), stored.XP)
}

func (s *StoreTestSuite) TestToggleMissingTask() {
	err := s.set.Tasks.ToggleTask(context.Background(), uuid.Must(uuid.NewV4()), false)
	s.ErrorIs(err, ErrTaskNotFound)
	s.Zero(s.set.Ledger.XP())
}

func (s *StoreTestSuite) TestDeleteTask() {
	task := s.addTask(TaskInput{Title: "Drop me"})

	s.Require().NoError(s.set.Tasks.DeleteTask(context.Background(), task.ID))
	s.Empty(s.storedTasks())
}

func (s *StoreTestSuite) TestSplitTask() {
	subject := s.addSubject("OS")
	topic := s.addTopic("Scheduling", subject.ID)
	task := s.addTask(TaskInput{Title: "Essay", SubjectID: &subject.ID, TopicID: &topic.ID, DueDate: "2024-05-30"})
	before := s.set.Ledger.XP()

	parts, err := s.set.Tasks.SplitTask(context.Background(), task.ID)
	s.Require().NoError(err)
	s.Len(parts, 3)

	stored := s.storedTasks()
	s.Require().Len(stored, 3)
	titles := make([]string, 0, 3)
	for _, t := range stored {
		s.NotEqual(task.ID, t.ID)
		s.Equal(models.PriorityMedium, t.Priority)
		s.Equal("OS", t.SubjectName)
		s.True(t.HasSubject(subject.ID))
		s.True(t.HasTopic(topic.ID))
		s.Equal("2024-05-30", t.DueDate)
		titles = append(titles, t.Title)
	}
	s.ElementsMatch([]string{
		"Research & Planning: Essay",
		"Core Development: Essay",
		"Testing & Review: Essay",
	}, titles)
	s.Equal(before+XPSplitTask, s.set.Ledger.XP())
}

func (s *StoreTestSuite) TestSplitRequiresPendingTask() {
	ctx := context.Background()
	task := s.addTask(TaskInput{Title: "Done already"})
	s.Require().NoError(s.set.Tasks.ToggleTask(ctx, task.ID, false))
	s.refresh()

	_, err := s.set.Tasks.SplitTask(ctx, task.ID)
	s.ErrorIs(err, ErrNotPending)

	_, err = s.set.Tasks.SplitTask(ctx, uuid.Must(uuid.NewV4()))
	s.ErrorIs(err, ErrTaskNotFound)
}

func (s *StoreTestSuite) TestSplitLeavesDuplicatesWhenDeleteFails() {
	task := s.addTask(TaskInput{Title: "Thesis"})
	s.tasks.setFailDelete(task.ID, true)

	_, err := s.set.Tasks.SplitTask(context.Background(), task.ID)

	var serr *SyncError
	s.Require().ErrorAs(err, &serr)
	s.Equal(OpSplitTask, serr.Op)
	s.Empty(serr.UserMessage())
	s.Len(s.storedTasks(), 4)
}

func (s *StoreTestSuite) TestAddSubjectAndTopicValidation() {
	ctx := context.Background()

	_, err := s.set.Catalog.AddSubject(ctx, "")
	var verr *ValidationError
	s.Require().ErrorAs(err, &verr)
	s.Equal("name", verr.Field)

	_, err = s.set.Catalog.AddTopic(ctx, "  ", uuid.Must(uuid.NewV4()))
	s.Require().ErrorAs(err, &verr)
	s.Equal("name", verr.Field)

	_, err = s.set.Catalog.AddTopic(ctx, "Trees", uuid.Nil)
	s.Require().ErrorAs(err, &verr)
	s.Equal("subject_id", verr.Field)

	_, err = s.set.Catalog.AddTopic(ctx, "Trees", uuid.Must(uuid.NewV4()))
	s.Require().ErrorAs(err, &verr)
	s.Equal("subject_id", verr.Field)

	subject := s.addSubject("DBMS")
	topic := s.addTopic("Joins", subject.ID)
	s.Equal("DBMS", topic.SubjectName)
	other := s.addSubject("Maths")
	s.addTopic("Algebra", other.ID)
	s.Len(s.set.Catalog.TopicsFor(&subject.ID), 1)
	s.Len(s.set.Catalog.TopicsFor(nil), 2)
}

func (s *StoreTestSuite) TestDeleteSubjectCascade() {
	ctx := context.Background()
	keep := s.addSubject("Maths")
	subject := s.addSubject("DSA")
	t1 := s.addTopic("Heaps", subject.ID)
	s.addTopic("Tries", subject.ID)
	s.addTopic("Algebra", keep.ID)
	s.addTask(TaskInput{Title: "heap sort", SubjectID: &subject.ID, TopicID: &t1.ID})
	s.addTask(TaskInput{Title: "tries", SubjectID: &subject.ID})
	s.addTask(TaskInput{Title: "matrices", SubjectID: &keep.ID})

	s.Require().NoError(s.set.Catalog.DeleteSubject(ctx, subject.ID))
	s.refresh()

	s.Require().Len(s.set.Catalog.Subjects(), 1)
	s.Equal(keep.ID, s.set.Catalog.Subjects()[0].ID)
	s.Len(s.set.Catalog.Topics(), 1)
	remaining := s.storedTasks()
	s.Require().Len(remaining, 1)
	s.Equal("matrices", remaining[0].Title)
}

func (s *StoreTestSuite) TestDeleteSubjectCascadeResumesAfterFailure() {
	ctx := context.Background()
	subject := s.addSubject("Projects")
	s.addTopic("Frontend", subject.ID)
	s.addTopic("Backend", subject.ID)
	task := s.addTask(TaskInput{Title: "ship it", SubjectID: &subject.ID})
	s.tasks.setFailDelete(task.ID, true)

	err := s.set.Catalog.DeleteSubject(ctx, subject.ID)
	var serr *SyncError
	s.Require().ErrorAs(err, &serr)
	s.Equal(OpDeleteSubject, serr.Op)

	// topics are gone, the task and subject survive
	s.refresh()
	s.Empty(s.set.Catalog.Topics())
	s.Len(s.storedTasks(), 1)
	_, ok := s.set.Catalog.Subject(subject.ID)
	s.True(ok)

	s.tasks.setFailDelete(task.ID, false)
	s.Require().NoError(s.set.Catalog.DeleteSubject(ctx, subject.ID))
	s.refresh()

	s.Empty(s.set.Catalog.Subjects())
	s.Empty(s.set.Catalog.Topics())
	s.Empty(s.storedTasks())
}

func (s *StoreTestSuite) TestDeleteSubjectWithStaleMirrorIsIdempotent() {
	ctx := context.Background()
	subject := s.addSubject("OS")
	s.addTopic("Paging", subject.ID)

	s.Require().NoError(s.set.Catalog.DeleteSubject(ctx, subject.ID))
	// mirror still lists the deleted records
	s.Require().NoError(s.set.Catalog.DeleteSubject(ctx, subject.ID))
}

func (s *StoreTestSuite) TestDeleteTopicDetachesTasks() {
	ctx := context.Background()
	subject := s.addSubject("DBMS")
	topic := s.addTopic("Indexes", subject.ID)
	kept := s.addTask(TaskInput{Title: "B-trees", SubjectID: &subject.ID, TopicID: &topic.ID})
	gone := s.addTask(TaskInput{Title: "hash index", SubjectID: &subject.ID, TopicID: &topic.ID})

	// removed behind the mirror's back
	s.Require().NoError(s.tasks.Collection.Delete(ctx, s.owner, gone.ID))

	s.Require().NoError(s.set.Catalog.DeleteTopic(ctx, topic.ID))
	s.refresh()

	s.Empty(s.set.Catalog.Topics())
	got, ok := s.set.Tasks.Get(kept.ID)
	s.Require().True(ok)
	s.Nil(got.TopicID)
	s.Nil(got.TopicName)
	s.Equal(models.NoTopicLabel, got.TopicLabel())
	s.True(got.HasSubject(subject.ID))
}

func (s *StoreTestSuite) TestStartMirrorsSnapshotsUntilStopped() {
	ctx := context.Background()
	s.Require().NoError(s.set.Start(ctx))

	_, err := s.set.Catalog.AddSubject(ctx, "Maths")
	s.Require().NoError(err)
	_, err = s.set.Tasks.AddTask(ctx, TaskInput{Title: "integrals"})
	s.Require().NoError(err)

	s.Eventually(func() bool {
		return len(s.set.Catalog.Subjects()) == 1 && len(s.set.Tasks.Snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	s.Equal(1, s.set.Tasks.PendingCount())

	s.set.Stop()
	s.Empty(s.set.Catalog.Subjects())
	s.Empty(s.set.Tasks.Snapshot())
	s.Zero(s.set.Ledger.XP())

	s.Require().NoError(s.subjects.Create(ctx, &models.Subject{OwnerID: s.owner, Name: "OS"}))
	s.Never(func() bool {
		return len(s.set.Catalog.Subjects()) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func (s *StoreTestSuite) TestTaskOperationsSurviveFailedXPWrite() {
	s.set.Stop()
	s.set = s.newSet(failingStats{StatsStore: s.stats})
	ctx := context.Background()

	task := s.addTask(TaskInput{Title: "revise graphs"})
	s.Equal(XPAddTask, s.set.Ledger.XP())

	s.Require().NoError(s.set.Tasks.ToggleTask(ctx, task.ID, false))
	s.Equal(XPAddTask+XPCompleteTask, s.set.Ledger.XP())

	stored, err := s.stats.Get(ctx, s.owner)
	s.Require().NoError(err)
	s.Zero(stored.XP)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestLedgerKeepsLocalXPWhenPersistFails(t *testing.T) {
	owner := uuid.Must(uuid.NewV4())
	ledger := NewLedger(owner, failingStats{}, nil)

	err := ledger.Award(context.Background(), ReasonAddTask, XPAddTask)

	var serr *SyncError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, OpAwardXP, serr.Op)
	assert.Equal(t, XPAddTask, ledger.XP())
}

func TestLedgerLoadAndNotify(t *testing.T) {
	pool, err := database.NewDatabasePool(database.MemoryPoolConfig())
	require.NoError(t, err)
	require.NoError(t, pool.Migrate())
	defer pool.Close()

	stats := gateway.NewGormStats(pool.DB)
	owner := uuid.Must(uuid.NewV4())
	_, err = stats.AddXP(context.Background(), owner, 90)
	require.NoError(t, err)

	changes := 0
	ledger := NewLedger(owner, stats, func() { changes++ })
	require.NoError(t, ledger.Load(context.Background()))
	assert.Equal(t, int64(90), ledger.XP())
	assert.Equal(t, 1, changes)

	require.NoError(t, ledger.Award(context.Background(), ReasonCompleteTask, XPCompleteTask))
	assert.Equal(t, int64(110), ledger.XP())
	assert.Equal(t, 2, changes)

	// non-positive awards are ignored
	require.NoError(t, ledger.Award(context.Background(), ReasonAddTask, 0))
	assert.Equal(t, int64(110), ledger.XP())
}

func TestMirrorReplaceAllKeepsOrder(t *testing.T) {
	m := NewMirror[models.Subject]()
	a := models.Subject{ID: uuid.Must(uuid.NewV4()), Name: "a"}
	b := models.Subject{ID: uuid.Must(uuid.NewV4()), Name: "b"}

	m.ReplaceAll([]models.Subject{b, a})
	got := m.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Name)
	assert.Equal(t, "a", got[1].Name)

	m.ReplaceAll([]models.Subject{a})
	_, ok := m.Get(b.ID)
	assert.False(t, ok)
	assert.Equal(t, 1, m.Len())

	m.Clear()
	assert.Zero(t, m.Len())
}
