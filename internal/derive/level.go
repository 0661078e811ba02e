package derive

import (
	"fmt"
	"math"
)

// Level is floor(sqrt(xp/10)) + 1. Negative xp counts as zero.
func Level(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(xp)/10))) + 1
}

// LevelBounds is the half-open xp band [lower, upper) of level l.
func LevelBounds(l int) (lower, upper int64) {
	if l < 1 {
		l = 1
	}
	prev := int64(l - 1)
	cur := int64(l)
	return 10 * prev * prev, 10 * cur * cur
}

// Progress is the fraction of the current level already earned, in [0,1].
func Progress(xp int64) float64 {
	lower, upper := LevelBounds(Level(xp))
	p := float64(xp-lower) / float64(upper-lower)
	return math.Min(math.Max(p, 0), 1)
}

type XPBar struct {
	XP         int64   `json:"xp"`
	Level      int     `json:"level"`
	LevelLabel string  `json:"level_label"`
	Percent    float64 `json:"percent"`
	NextLevel  int64   `json:"next_level_xp"`
}

func NewXPBar(xp int64) XPBar {
	level := Level(xp)
	_, upper := LevelBounds(level)
	return XPBar{
		XP:         xp,
		Level:      level,
		LevelLabel: fmt.Sprintf("Lvl %d", level),
		Percent:    math.Round(Progress(xp)*10000) / 100,
		NextLevel:  upper,
	}
}
