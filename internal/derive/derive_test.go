package derive

import (
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"zenfocus/backend/internal/models"
)

var noon = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func dueIn(days int) time.Time {
	d, _ := models.ParseDate(models.FormatDate(noon.AddDate(0, 0, days)))
	return d
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(dueIn(0), noon), "today at midnight is already behind noon")
	assert.Equal(t, 1, DaysUntil(dueIn(1), noon))
	assert.Equal(t, 10, DaysUntil(dueIn(10), noon))
	assert.Equal(t, -2, DaysUntil(dueIn(-2), noon))
}

func TestInferPriority_HeavySubjectAlwaysHigh(t *testing.T) {
	for _, days := range []int{-5, 0, 3, 10, 60, 365} {
		for _, manual := range []models.Priority{models.PriorityLow, models.PriorityMedium, models.PriorityHigh} {
			got := InferPriority(dueIn(days), "DSA", manual, noon)
			assert.Equal(t, models.PriorityHigh, got, "days=%d manual=%s", days, manual)
		}
	}
}

func TestInferPriority_GeneralSubject(t *testing.T) {
	assert.Equal(t, models.PriorityMedium, InferPriority(dueIn(3), "General", models.PriorityLow, noon))
	assert.Equal(t, models.PriorityLow, InferPriority(dueIn(10), "General", models.PriorityLow, noon))
	assert.Equal(t, models.PriorityHigh, InferPriority(dueIn(10), "General", models.PriorityHigh, noon),
		"manual selection survives when no rule fires")
}

func TestInferPriority_Table(t *testing.T) {
	tests := []struct {
		name    string
		days    int
		subject string
		manual  models.Priority
		want    models.Priority
	}{
		{"due soon overrides", 2, "General", models.PriorityLow, models.PriorityHigh},
		{"overdue is high", -1, "Unknown", models.PriorityLow, models.PriorityHigh},
		{"weight four is medium", 30, "OS", models.PriorityLow, models.PriorityMedium},
		{"weight three is medium", 30, "Maths", models.PriorityLow, models.PriorityMedium},
		{"projects weight five", 30, "Projects", models.PriorityLow, models.PriorityHigh},
		{"unknown subject keeps manual", 30, "Chemistry", models.PriorityMedium, models.PriorityMedium},
		{"five days is medium", 5, "Chemistry", models.PriorityLow, models.PriorityMedium},
		{"six days keeps manual", 6, "Chemistry", models.PriorityLow, models.PriorityLow},
		{"empty manual defaults to low", 30, "Chemistry", "", models.PriorityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferPriority(dueIn(tt.days), tt.subject, tt.manual, noon))
		})
	}
}

func TestSubjectWeight_UnknownIsAbsent(t *testing.T) {
	w, ok := SubjectWeight("General")
	assert.True(t, ok)
	assert.Equal(t, 1, w)

	_, ok = SubjectWeight("Chemistry")
	assert.False(t, ok)
}

func TestLevel(t *testing.T) {
	assert.Equal(t, 1, Level(0))
	assert.Equal(t, 1, Level(9))
	assert.Equal(t, 2, Level(10))
	assert.Equal(t, 4, Level(90))
	assert.Equal(t, 4, Level(159))
	assert.Equal(t, 5, Level(160))
	assert.Equal(t, 1, Level(-5))
}

func TestLevelBoundsAndProgress(t *testing.T) {
	lower, upper := LevelBounds(4)
	assert.Equal(t, int64(90), lower)
	assert.Equal(t, int64(160), upper)

	assert.Equal(t, 0.0, Progress(90))
	assert.Equal(t, 0.0, Progress(0))
	assert.InDelta(t, 0.5, Progress(125), 1e-9)

	for xp := int64(0); xp < 2000; xp += 7 {
		p := Progress(xp)
		assert.True(t, p >= 0 && p <= 1, "xp=%d progress=%f", xp, p)
	}
}

func TestNewXPBar(t *testing.T) {
	bar := NewXPBar(125)
	assert.Equal(t, "Lvl 4", bar.LevelLabel)
	assert.Equal(t, 50.0, bar.Percent)
	assert.Equal(t, int64(160), bar.NextLevel)
}

func highDSA() models.Task {
	return models.Task{ID: uuid.Must(uuid.NewV4()), SubjectName: "DSA", Priority: models.PriorityHigh}
}

func TestStress_SingleHeavyTask(t *testing.T) {
	s := MeasureStress([]models.Task{highDSA()})
	assert.Equal(t, 20, s.Score)
	assert.Equal(t, StressCalm, s.Level)
	assert.Equal(t, "Chill Mode", s.Text)
}

func TestStress_ClampsAtHundred(t *testing.T) {
	tasks := []models.Task{highDSA(), highDSA(), highDSA(), highDSA(), highDSA()}
	s := MeasureStress(tasks)
	assert.Equal(t, 100, s.Score)
	assert.Equal(t, StressHigh, s.Level)
}

func TestStress_Weights(t *testing.T) {
	tasks := []models.Task{
		{SubjectName: "Chemistry", Priority: models.PriorityLow},
		{SubjectName: "", Priority: models.PriorityLow},
		{SubjectName: "OS", Priority: models.PriorityLow, Completed: true},
	}
	// unknown subject weighs 2, empty subject counts as General (1)
	assert.Equal(t, 2*2+1*2, StressScore(tasks))
	assert.Equal(t, StressModerate, StressLevelFor(30))
	assert.Equal(t, StressModerate, StressLevelFor(69))
	assert.Equal(t, StressHigh, StressLevelFor(70))
	assert.Equal(t, 0, StressScore(nil))
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestFilterTasks_StatusAndSubject(t *testing.T) {
	x := uuid.Must(uuid.NewV4())
	y := uuid.Must(uuid.NewV4())

	tasks := []models.Task{
		{ID: uuid.Must(uuid.NewV4()), SubjectID: ptr(x), Completed: true},
		{ID: uuid.Must(uuid.NewV4()), SubjectID: ptr(x), Completed: false},
		{ID: uuid.Must(uuid.NewV4()), SubjectID: ptr(y), Completed: true},
		{ID: uuid.Must(uuid.NewV4()), SubjectID: nil, Completed: true},
	}

	got := FilterTasks(tasks, Filter{Status: StatusCompleted, SubjectID: ptr(x)})
	require.Len(t, got, 1)
	assert.Equal(t, tasks[0].ID, got[0].ID)
	for _, task := range got {
		assert.True(t, task.Completed)
		assert.True(t, task.HasSubject(x))
	}

	assert.Len(t, FilterTasks(tasks, Filter{Status: StatusAll}), 4)
	assert.Len(t, FilterTasks(tasks, Filter{Status: StatusPending}), 1)
}

func TestFilterTasks_Topic(t *testing.T) {
	topic := uuid.Must(uuid.NewV4())
	tasks := []models.Task{
		{ID: uuid.Must(uuid.NewV4()), TopicID: ptr(topic)},
		{ID: uuid.Must(uuid.NewV4())},
	}
	assert.Len(t, FilterTasks(tasks, Filter{TopicID: ptr(topic)}), 1)
}

func TestParseStatusFilter(t *testing.T) {
	f, ok := ParseStatusFilter("")
	assert.True(t, ok)
	assert.Equal(t, StatusAll, f)

	_, ok = ParseStatusFilter("archived")
	assert.False(t, ok)
}

func TestSortByPriority_Stable(t *testing.T) {
	tasks := []models.Task{
		{Title: "low-1", Priority: models.PriorityLow},
		{Title: "high-1", Priority: models.PriorityHigh},
		{Title: "med-1", Priority: models.PriorityMedium},
		{Title: "high-2", Priority: models.PriorityHigh},
		{Title: "low-2", Priority: models.PriorityLow},
	}
	SortByPriority(tasks)

	var titles []string
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	assert.Equal(t, []string{"high-1", "high-2", "med-1", "low-1", "low-2"}, titles)
}

func TestHardestTask(t *testing.T) {
	early := models.Task{ID: uuid.Must(uuid.NewV4()), Priority: models.PriorityHigh, DueDate: "2024-03-11"}
	tie := models.Task{ID: uuid.Must(uuid.NewV4()), Priority: models.PriorityHigh, DueDate: "2024-03-11"}
	late := models.Task{ID: uuid.Must(uuid.NewV4()), Priority: models.PriorityHigh, DueDate: "2024-04-01"}
	done := models.Task{ID: uuid.Must(uuid.NewV4()), Priority: models.PriorityHigh, DueDate: "2024-01-01", Completed: true}
	medium := models.Task{ID: uuid.Must(uuid.NewV4()), Priority: models.PriorityMedium, DueDate: "2024-01-01"}

	id, ok := HardestTask([]models.Task{late, done, medium, early, tie})
	require.True(t, ok)
	assert.Equal(t, early.ID, id, "earliest due wins and the first of a tie is kept")

	_, ok = HardestTask([]models.Task{done, medium})
	assert.False(t, ok)
}

func TestBuildTaskList(t *testing.T) {
	hard := models.Task{ID: uuid.Must(uuid.NewV4()), Title: "Graphs", Priority: models.PriorityHigh, DueDate: "2024-03-11"}
	easy := models.Task{ID: uuid.Must(uuid.NewV4()), Title: "Notes", Priority: models.PriorityLow, Completed: true}

	list := BuildTaskList([]models.Task{easy, hard}, Filter{Status: StatusAll})
	require.Len(t, list.Items, 2)
	assert.False(t, list.Empty)
	assert.Equal(t, hard.ID, list.Items[0].ID)
	assert.True(t, list.Items[0].Hardest)
	assert.True(t, list.Items[0].CanSplit)
	assert.False(t, list.Items[1].CanSplit, "completed tasks are not offered for splitting")
	assert.Equal(t, "General", list.Items[1].SubjectName)
	assert.Equal(t, "No Topic", list.Items[1].TopicName)

	empty := BuildTaskList(nil, Filter{Status: StatusPending})
	assert.True(t, empty.Empty)
	assert.Nil(t, empty.HardestID)
}

func TestBuildSubjectChips(t *testing.T) {
	dsa := models.Subject{ID: uuid.Must(uuid.NewV4()), Name: "DSA"}
	os := models.Subject{ID: uuid.Must(uuid.NewV4()), Name: "OS"}

	var tasks []models.Task
	for i := 0; i < 7; i++ {
		tasks = append(tasks, models.Task{SubjectID: ptr(dsa.ID)})
	}
	tasks = append(tasks, models.Task{SubjectID: ptr(os.ID), Completed: true})

	chips := BuildSubjectChips([]models.Subject{dsa, os}, tasks, ptr(os.ID))
	require.Len(t, chips, 2)
	assert.Equal(t, 7, chips[0].OpenTasks)
	assert.InDelta(t, 0.6, chips[0].Glow, 1e-9)
	assert.False(t, chips[0].Active)
	assert.Equal(t, 0, chips[1].OpenTasks)
	assert.InDelta(t, 0.1, chips[1].Glow, 1e-9)
	assert.True(t, chips[1].Active)
}

func TestTopicTags(t *testing.T) {
	subject := uuid.Must(uuid.NewV4())
	other := uuid.Must(uuid.NewV4())
	topics := []models.Topic{
		{ID: uuid.Must(uuid.NewV4()), Name: "Trees", SubjectID: subject},
		{ID: uuid.Must(uuid.NewV4()), Name: "Paging", SubjectID: other},
	}

	assert.Len(t, TopicsFor(topics, nil), 2)
	tags := BuildTopicTags(topics, ptr(subject), ptr(topics[0].ID))
	require.Len(t, tags, 1)
	assert.Equal(t, "Trees", tags[0].Name)
	assert.True(t, tags[0].Active)
}

func TestBoss(t *testing.T) {
	assert.Equal(t, 100.0, BossHP(nil))
	assert.Equal(t, Boss{}, BuildBoss(nil, false))

	tasks := []models.Task{{Completed: true}, {Completed: false}, {Completed: true}, {Completed: false}}
	boss := BuildBoss(tasks, true)
	assert.True(t, boss.Active)
	assert.Equal(t, 50.0, boss.HP)
	assert.Equal(t, BossName, boss.Label)

	defeated := BuildBoss([]models.Task{{Completed: true}}, true)
	assert.Equal(t, 0.0, defeated.HP)
	assert.Equal(t, BossDefeated, defeated.Label)
}

func TestResolveCategory(t *testing.T) {
	assert.Equal(t, CategoryMorning, ResolveCategory(CategoryGeneral, 9))
	assert.Equal(t, CategoryGeneral, ResolveCategory(CategoryGeneral, 10))
	assert.Equal(t, CategoryGeneral, ResolveCategory(CategoryGeneral, 22))
	assert.Equal(t, CategoryNight, ResolveCategory(CategoryGeneral, 23))
	assert.Equal(t, CategoryExam, ResolveCategory(CategoryExam, 3), "explicit categories ignore the clock")
	assert.Equal(t, CategoryGeneral, ResolveCategory(Category("nonsense"), 8), "unknown falls back to general before the clock")
	assert.Equal(t, CategoryGeneral, ResolveCategory(Category("nonsense"), 23))
}

func TestMood(t *testing.T) {
	assert.Equal(t, CategoryStress, CategoryForMood("tired"))
	assert.Equal(t, CategoryStress, CategoryForMood("stressed"))
	assert.Equal(t, CategoryMotivated, CategoryForMood("motivated"))
	assert.Equal(t, CategoryGeneral, CategoryForMood("happy"))
	assert.Equal(t, "Take it easy 💙", EncouragementFor("tired"))
	assert.Equal(t, "Let's go! 🔥", EncouragementFor("motivated"))
}

func TestQuotePicker_DeterministicWithSeed(t *testing.T) {
	at := func(h int) func() time.Time {
		return func() time.Time { return time.Date(2024, 3, 10, h, 0, 0, 0, time.UTC) }
	}

	a := NewQuotePicker(rand.NewSource(42), at(12))
	b := NewQuotePicker(rand.NewSource(42), at(12))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Pick(CategoryGeneral), b.Pick(CategoryGeneral))
	}

	night := NewQuotePicker(rand.NewSource(1), at(23))
	assert.Contains(t, QuotesIn(CategoryNight), night.Pick(CategoryGeneral))

	guilt := NewQuotePicker(rand.NewSource(7), at(12))
	assert.Contains(t, QuotesIn(CategoryGuilt), guilt.Pick(CategoryGuilt))
	assert.Nil(t, QuotesIn(Category("nope")))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "25:00", FormatClock(25*60))
	assert.Equal(t, "09:05", FormatClock(9*60+5))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "00:00", FormatClock(-3))
}
