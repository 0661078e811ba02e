package derive

import "zenfocus/backend/internal/models"

type StressLevel string

const (
	StressCalm     StressLevel = "calm"
	StressModerate StressLevel = "moderate"
	StressHigh     StressLevel = "high"
)

const defaultStressWeight = 2

type Stress struct {
	Score int         `json:"score"`
	Level StressLevel `json:"level"`
	Text  string      `json:"text"`
}

// StressScore sums the load of every incomplete task, clamped to [0,100].
func StressScore(tasks []models.Task) int {
	score := 0
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		weight, ok := SubjectWeight(t.SubjectLabel())
		if !ok {
			weight = defaultStressWeight
		}
		score += weight * 2
		if t.Priority == models.PriorityHigh {
			score += 10
		}
	}
	return clampInt(score, 0, 100)
}

func StressLevelFor(score int) StressLevel {
	switch {
	case score < 30:
		return StressCalm
	case score < 70:
		return StressModerate
	default:
		return StressHigh
	}
}

var stressText = map[StressLevel]string{
	StressCalm:     "Chill Mode",
	StressModerate: "Moderate Load",
	StressHigh:     "High Stress! Take a break.",
}

func MeasureStress(tasks []models.Task) Stress {
	score := StressScore(tasks)
	level := StressLevelFor(score)
	return Stress{Score: score, Level: level, Text: stressText[level]}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
