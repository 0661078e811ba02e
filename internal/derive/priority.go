// Package derive computes every number and view-model the dashboard shows
// from the in-memory stores. Nothing here performs I/O.
package derive

import (
	"math"
	"time"

	"zenfocus/backend/internal/models"
)

var subjectWeights = map[string]int{
	"DSA":      5,
	"OS":       4,
	"DBMS":     4,
	"Maths":    3,
	"Projects": 5,
	"General":  1,
}

// SubjectWeight looks up the difficulty weight of a subject by name.
// Unknown subjects have no weight at all, which is not the same as zero.
func SubjectWeight(name string) (int, bool) {
	w, ok := subjectWeights[name]
	return w, ok
}

// DaysUntil is the whole number of days, rounded up, from now until the
// start (UTC midnight) of the due date.
func DaysUntil(due, now time.Time) int {
	return int(math.Ceil(due.Sub(now).Hours() / 24))
}

// InferPriority applies the creation-time override. The result is never
// re-evaluated as the due date approaches.
func InferPriority(due time.Time, subjectName string, manual models.Priority, now time.Time) models.Priority {
	diff := DaysUntil(due, now)
	weight, known := SubjectWeight(subjectName)

	switch {
	case diff <= 2 || (known && weight >= 5):
		return models.PriorityHigh
	case diff <= 5 || (known && weight >= 3):
		return models.PriorityMedium
	}

	if manual == "" {
		return models.PriorityLow
	}
	return manual
}
