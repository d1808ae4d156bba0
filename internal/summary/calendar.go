package summary

import (
	"time"

	"checklist-tracker/internal/models"
)

// BuildCalendar produces the DaySummary of every date in [start, end], ascending.
// It is pure: catalog, completions and grouped records must already be loaded.
func BuildCalendar(start, end time.Time, catalog []models.ChecklistItem, completions CompletionMap, byDate map[string][]Record) models.CalendarSummary {
	periodByID := make(map[string]int, len(catalog))
	for _, item := range catalog {
		periodByID[item.ID] = item.Period()
	}

	out := models.CalendarSummary{
		SummaryByDate:     make(map[string]models.DaySummary),
		TotalCatalogItems: len(catalog),
	}
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(DateLayout)
		due := ComputeDueSet(d, catalog, completions)
		tally := AggregateDay(byDate[date], periodByID)

		// totalDue is always the bucket sum. With an empty catalog this is the
		// catalog-size fallback (0); a non-empty catalog with nothing due reports 0.
		totalDue := 0
		for _, n := range due.ByPeriod {
			totalDue += n
		}

		out.SummaryByDate[date] = models.DaySummary{
			Date:            date,
			Submitted:       tally.Submitted,
			TotalChecked:    tally.TotalChecked,
			TotalDue:        totalDue,
			PeriodChecks:    tally.PeriodChecks,
			PeriodDueCounts: due.ByPeriod,
			Users:           tally.Users,
			Lines:           tally.Lines,
		}
	}
	return out
}
