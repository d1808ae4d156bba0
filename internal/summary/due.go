package summary

import (
	"time"

	"checklist-tracker/internal/models"
)

// DueSet is the outcome of evaluating the recurrence rule for one date.
type DueSet struct {
	Due      map[string]bool
	ByPeriod map[int]int
	Count    int
}

// IsDue applies the recurrence rule for a single item on date d.
//
// A periodic item is not due when its last completion is strictly before d and fewer
// than PeriodDays whole days have passed. A completion on d itself does not count.
func IsDue(item models.ChecklistItem, d time.Time, completions CompletionMap) bool {
	period := item.Period()
	if period == 0 {
		return true
	}
	last, ok := completions[item.ID]
	if !ok {
		return true
	}
	lastDate, err := ParseDate(last)
	if err != nil {
		return true
	}
	if !lastDate.Before(d) {
		return true
	}
	return daysBetween(lastDate, d) >= period
}

// ComputeDueSet evaluates every catalog item for date d.
func ComputeDueSet(d time.Time, catalog []models.ChecklistItem, completions CompletionMap) DueSet {
	ds := DueSet{
		Due:      make(map[string]bool, len(catalog)),
		ByPeriod: make(map[int]int),
	}
	for _, item := range catalog {
		due := IsDue(item, d, completions)
		ds.Due[item.ID] = due
		if due {
			ds.ByPeriod[item.Period()]++
			ds.Count++
		}
	}
	return ds
}
