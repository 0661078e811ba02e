package derive

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/exp/rand"
)

type Category string

const (
	CategoryGeneral   Category = "general"
	CategoryExam      Category = "exam"
	CategoryCoding    Category = "coding"
	CategoryPlacement Category = "placement"
	CategoryMorning   Category = "morning"
	CategoryNight     Category = "night"
	CategoryStress    Category = "stress"
	CategoryMotivated Category = "motivated"
	CategoryGuilt     Category = "guilt"
)

var quotes = map[Category][]string{
	CategoryGeneral: {
		"Backlogs don’t define you, clearing them does. Start now 💪",
		"Engineering is the closest thing to magic that exists.",
		"Focus on progress, not perfection.",
		"Code is like humor. When you have to explain it, it’s bad.",
		"No one becomes an engineer by motivation alone. Discipline builds degrees 🎓",
		"Your CGPA won’t improve by scrolling reels. Just saying 👀📱",
		"One focused hour beats ten distracted ones. Start the task 🚀",
		"Engineering is hard. Staying average is harder.",
	},
	CategoryExam: {
		"Study now so future-you doesn’t cry during results 😴📖",
		"You’ve studied enough to start. Open the book 📘",
		"Yes, others are chilling. No, they won’t write your exam.",
		"Syllabus is huge, but your will is stronger. (Hopefully) 📚",
	},
	CategoryCoding: {
		"Every error you debug today is one less regret in placements 💻🔥",
		"Debug life like your code: step by step.",
		"Skills pay more than excuses. Open VS Code.",
		"It works on my machine... but that doesn't count. Fix it. 🐛",
	},
	CategoryPlacement: {
		"Companies don’t ask how stressed you were. They ask what you know.",
		"One project can change your resume. Start it.",
		"Backlogs don’t define you, clearing them does. Start now 💪",
	},
	CategoryMorning: {
		"Start early. Engineers who plan suffer less later ☀️",
		"Coffee ☕ + Code 💻 = Progress 📈",
		"Morning grind sets the CGPA mind.",
	},
	CategoryNight: {
		"Late nights are okay. Wasted nights are not 🌙",
		"The compiler doesn't sleep, but you should eventually. Finish this first.",
		"3 AM motivation is fake. Do it now.",
	},
	CategoryStress: {
		"You don’t need perfection, just progress.",
		"Even 20 minutes of study beats zero.",
		"Take a deep breath. You got this. 🧘",
	},
	CategoryMotivated: {
		"This is the grind moment. Don’t waste it. 🔥",
		"You’re officially serious now 😎",
		"This is how toppers are built 🧠",
	},
	CategoryGuilt: {
		"Skipping today = stress tomorrow. Choose wisely 😏",
		"Your future self is watching this decision 👀",
		"Procrastination is like a credit card: it's a lot of fun until you get the bill.",
	},
}

// QuotesIn returns a copy of the fixed list for c, or nil for an unknown
// category.
func QuotesIn(c Category) []string {
	list, ok := quotes[c]
	if !ok {
		return nil
	}
	return append([]string(nil), list...)
}

// ResolveCategory applies the time-of-day switch to the general category.
// Unknown categories fall back to general without the switch.
func ResolveCategory(c Category, hour int) Category {
	if c == CategoryGeneral {
		switch {
		case hour < 10:
			return CategoryMorning
		case hour > 22:
			return CategoryNight
		}
	}
	if _, ok := quotes[c]; !ok {
		return CategoryGeneral
	}
	return c
}

func CategoryForMood(mood string) Category {
	switch mood {
	case "tired", "stressed":
		return CategoryStress
	case "motivated":
		return CategoryMotivated
	}
	return CategoryGeneral
}

func EncouragementFor(mood string) string {
	if CategoryForMood(mood) == CategoryStress {
		return "Take it easy 💙"
	}
	return "Let's go! 🔥"
}

// QuotePicker draws quotes uniformly at random. Inject a seeded source and
// a fixed clock to make it deterministic.
type QuotePicker struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewQuotePicker(src rand.Source, now func() time.Time) *QuotePicker {
	if src == nil {
		src = rand.NewSource(uint64(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &QuotePicker{rng: rand.New(src), now: now}
}

func (p *QuotePicker) Pick(c Category) string {
	list := quotes[ResolveCategory(c, p.now().Hour())]

	p.mu.Lock()
	i := p.rng.Intn(len(list))
	p.mu.Unlock()

	return list[i]
}

// FormatClock renders a countdown as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
