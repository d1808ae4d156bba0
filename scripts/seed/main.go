// Seed writes a demo catalog and two weeks of daily records. Run from project root: go run ./scripts/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"checklist-tracker/internal/database"
	"checklist-tracker/internal/models"
	"checklist-tracker/internal/repository"
	"checklist-tracker/internal/summary"

	"github.com/joho/godotenv"
)

var lines = []string{"", "Line1", "Line2"}

func period(n int) *int { return &n }

func main() {
	_ = godotenv.Load(".env")

	ctx := context.Background()
	if database.InitDB(ctx) == nil {
		fmt.Fprintln(os.Stderr, "DATABASE_URL not set or DB connection failed")
		os.Exit(1)
	}
	if err := database.MigrateOrCreateSchema(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Schema failed:", err)
		os.Exit(1)
	}

	catalog := []models.ChecklistItem{
		{ID: "item_2", Process: "Assembly", Equipment: "Vision", Category: "Camera", Item: "Lens clean", PeriodDays: period(1), Order: 0},
		{ID: "item_3", Process: "Assembly", Equipment: "Vision", Category: "Lighting", Item: "Light level", PeriodDays: period(7), Order: 1},
		{ID: "item_4", Process: "Packing", Equipment: "Scale", Category: "Calibration", Item: "Zero check", PeriodDays: period(30), Order: 2},
		{ID: "item_5", Process: "Packing", Equipment: "Conveyor", Category: "Safety", Item: "E-stop test", Order: 3},
	}
	if err := repository.SaveCatalog(ctx, catalog); err != nil {
		fmt.Fprintln(os.Stderr, "Catalog failed:", err)
		os.Exit(1)
	}

	start := time.Now().AddDate(0, 0, -14)
	written := 0
	for d := 0; d < 14; d++ {
		date := start.AddDate(0, 0, d).Format(summary.DateLayout)
		for i, line := range lines {
			if (d+i)%3 == 0 {
				continue
			}
			key := date
			if line != "" {
				key = date + summary.LineSeparator + line
			}
			checked := models.CheckedMap{}
			for j, item := range catalog {
				if p := item.Period(); p == 0 || (d+j)%p == 0 {
					repository.ToggleEntry(checked, item.ID, fmt.Sprintf("operator-%d", i+1), "", time.Now().UTC())
				}
			}
			if err := repository.SaveRecord(ctx, &models.DailyRecord{Key: key, Checked: checked}); err != nil {
				fmt.Fprintln(os.Stderr, "Record failed:", err)
				os.Exit(1)
			}
			written++
		}
	}
	fmt.Printf("Done: %d catalog items, %d daily records\n", len(catalog), written)
}
