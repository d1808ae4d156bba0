package controller

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"checklist-tracker/internal/config"
	"checklist-tracker/internal/repository"
	"checklist-tracker/internal/summary"
	"checklist-tracker/pkg/logger"

	"github.com/gin-gonic/gin"
)

var (
	summaries     *summary.Service
	summariesOnce sync.Once
)

// SetSummaryService overrides the summary service (tests, alternate stores).
func SetSummaryService(s *summary.Service) {
	summariesOnce.Do(func() {})
	summaries = s
}

func summaryService() *summary.Service {
	summariesOnce.Do(func() {
		summaries = summary.NewService(repository.Store{}, config.Get().SummaryMaxDays)
	})
	return summaries
}

func requestTimeout() time.Duration {
	if n := config.Get().RequestTimeoutSec; n > 0 {
		return time.Duration(n) * time.Second
	}
	return 15 * time.Second
}

// LastCompletions returns {"lastCompletions": itemID -> most recent completion date} over the full history.
func LastCompletions(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout())
	defer cancel()
	c.JSON(http.StatusOK, gin.H{"lastCompletions": summaryService().ComputeLastCompletions(ctx)})
}

// queryEither returns the first non-empty query parameter among names.
func queryEither(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := c.Query(n); v != "" {
			return v
		}
	}
	return ""
}

// CalendarSummary returns the per-date summary for the inclusive range given as
// ?start=&end= or ?start_date=&end_date=.
func CalendarSummary(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), requestTimeout())
	defer cancel()

	start, end := queryEither(c, "start", "start_date"), queryEither(c, "end", "end_date")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}
	out, err := summaryService().ComputeCalendarSummary(ctx, start, end)
	if errors.Is(err, summary.ErrInvalidRange) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		if c.Request.Context().Err() != nil {
			return
		}
		logger.Error(ctx, "CalendarSummary failed", "error", err, "start", start, "end", end)
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "Calendar summary timed out"})
		return
	}
	c.JSON(http.StatusOK, out)
}
