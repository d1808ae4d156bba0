package summary

import (
	"sort"

	"checklist-tracker/internal/models"
)

// Record is a decoded daily record with its derived calendar date.
type Record struct {
	Key     string
	Date    string
	Checked models.CheckedMap
}

// DayTally is what the daily aggregator derives from the records of one date.
type DayTally struct {
	Submitted    bool
	TotalChecked int
	PeriodChecks map[int]int
	Users        map[string]int
	Lines        []string
}

// AggregateDay folds all records sharing one calendar date. An item counts once per record
// however many users checked it; records for different lines are never deduplicated.
// periodByID maps item IDs to their grouping period; unknown items fall under 0.
func AggregateDay(records []Record, periodByID map[string]int) DayTally {
	t := DayTally{
		Submitted:    len(records) > 0,
		PeriodChecks: make(map[int]int),
		Users:        make(map[string]int),
		Lines:        make([]string, 0, len(records)),
	}
	for _, r := range records {
		t.Lines = append(t.Lines, r.Key)
		for itemID, entries := range r.Checked {
			seen := false
			for user, e := range entries {
				if !e.Checked {
					continue
				}
				t.Users[user]++
				seen = true
			}
			if seen {
				t.TotalChecked++
				t.PeriodChecks[periodByID[itemID]]++
			}
		}
	}
	sort.Strings(t.Lines)
	return t
}

// GroupByDate buckets records by derived calendar date.
func GroupByDate(records []Record) map[string][]Record {
	out := make(map[string][]Record)
	for _, r := range records {
		out[r.Date] = append(out[r.Date], r)
	}
	return out
}
