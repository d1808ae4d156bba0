package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"checklist-tracker/internal/models"
	"checklist-tracker/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// Store is the slice of the record store the summary engine reads from.
type Store interface {
	LoadCatalog(ctx context.Context) ([]models.ChecklistItem, error)
	StreamDailyRecords(ctx context.Context, fn func(models.StoredRecord) error) error
}

// Service answers completion and calendar questions. It holds no per-request state;
// catalog, completion map and grouped records are rebuilt on every call.
type Service struct {
	store   Store
	maxDays int
	now     func() time.Time
}

// NewService returns a Service over store. maxDays <= 0 disables the range length limit.
func NewService(store Store, maxDays int) *Service {
	return &Service{store: store, maxDays: maxDays, now: time.Now}
}

// ComputeLastCompletions scans the full history once and returns itemID -> last completion date.
func (s *Service) ComputeLastCompletions(ctx context.Context) CompletionMap {
	completions, _ := s.scanHistory(ctx, nil)
	return completions
}

// ComputeCalendarSummary builds the per-date summary for the inclusive range [startDate, endDate].
func (s *Service) ComputeCalendarSummary(ctx context.Context, startDate, endDate string) (models.CalendarSummary, error) {
	start, end, err := s.parseRange(startDate, endDate)
	if err != nil {
		return models.CalendarSummary{}, err
	}

	var (
		catalog     []models.ChecklistItem
		completions CompletionMap
		records     []Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		catalog = s.loadCatalog(gctx)
		return nil
	})
	g.Go(func() error {
		completions, records = s.scanHistory(gctx, func(date string) bool {
			return date >= startDate && date <= endDate
		})
		return nil
	})
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return models.CalendarSummary{}, err
	}

	out := BuildCalendar(start, end, catalog, completions, GroupByDate(records))
	logger.Debug(ctx, "Calendar summary built",
		"start", startDate, "end", endDate,
		"catalog_items", len(catalog), "records_in_range", len(records), "completions", len(completions))
	return out, nil
}

func (s *Service) parseRange(startDate, endDate string) (time.Time, time.Time, error) {
	start, err := ParseDate(startDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrInvalidRange, err)
	}
	end, err := ParseDate(endDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrInvalidRange, err)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, startDate, endDate)
	}
	if s.maxDays > 0 && daysBetween(start, end)+1 > s.maxDays {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range exceeds %d days", ErrInvalidRange, s.maxDays)
	}
	return start, end, nil
}

func (s *Service) loadCatalog(ctx context.Context) []models.ChecklistItem {
	items, err := s.store.LoadCatalog(ctx)
	if err != nil {
		logger.Warn(ctx, "Catalog unavailable; continuing with empty catalog", "error", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		return nil
	}
	if len(items) == 0 {
		logger.Warn(ctx, "Catalog is empty; due counts fall back to catalog size 0")
	}
	return items
}

// scanHistory streams every stored record once. It returns the completion map over the
// whole history (dates up to today) and the decoded records for which keep reports true.
// A failed scan degrades to an empty map and no records.
func (s *Service) scanHistory(ctx context.Context, keep func(date string) bool) (CompletionMap, []Record) {
	today := s.now().Format(DateLayout)
	completions := make(CompletionMap)
	var kept []Record
	skipped := 0

	err := s.store.StreamDailyRecords(ctx, func(sr models.StoredRecord) error {
		r, err := decodeRecord(sr)
		if err != nil {
			skipped++
			logger.Warn(ctx, "Skipping malformed daily record", "key", sr.Key, "error", err)
			return nil
		}
		if r.Date <= today {
			completions.Observe(r.Date, r.Checked)
		}
		if keep != nil && keep(r.Date) {
			kept = append(kept, r)
		}
		return nil
	})
	if err != nil {
		logger.Warn(ctx, "History scan failed; continuing with empty history", "error", fmt.Errorf("%w: %v", ErrStoreUnavailable, err))
		return make(CompletionMap), nil
	}
	if skipped > 0 {
		logger.Info(ctx, "History scan finished with skipped records", "skipped", skipped)
	}
	return completions, kept
}

func decodeRecord(sr models.StoredRecord) (Record, error) {
	date := DateFromKey(sr.Key)
	if _, err := ParseDate(date); err != nil {
		return Record{}, fmt.Errorf("%w: key %q: %v", ErrMalformedRecord, sr.Key, err)
	}
	checked := models.CheckedMap{}
	if len(sr.Checked) > 0 {
		if err := json.Unmarshal(sr.Checked, &checked); err != nil {
			return Record{}, fmt.Errorf("%w: key %q: %v", ErrMalformedRecord, sr.Key, err)
		}
	}
	return Record{Key: sr.Key, Date: date, Checked: checked}, nil
}
