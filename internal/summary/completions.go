package summary

import "checklist-tracker/internal/models"

// CompletionMap maps an item ID to the most recent calendar date (YYYY-MM-DD) on which
// any user checked it on any line. It is rebuilt for every request.
type CompletionMap map[string]string

// Observe folds one record's check entries, dated date, into the map.
func (m CompletionMap) Observe(date string, checked models.CheckedMap) {
	for itemID := range checked {
		if !checked.AnyChecked(itemID) {
			continue
		}
		if prev, ok := m[itemID]; !ok || date > prev {
			m[itemID] = date
		}
	}
}

// LastCompletions builds a CompletionMap from already-decoded records.
func LastCompletions(records []Record) CompletionMap {
	m := make(CompletionMap)
	for _, r := range records {
		m.Observe(r.Date, r.Checked)
	}
	return m
}
