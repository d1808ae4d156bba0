package summary

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the fixed-width calendar date format. Completion dates are compared
// as strings, which is only order-correct because every date has this exact width.
const DateLayout = "2006-01-02"

// LineSeparator splits a record key into its calendar date and line suffix.
const LineSeparator = "_"

// DateFromKey returns the calendar date part of a record key ("2026-01-29_Line1" -> "2026-01-29").
func DateFromKey(key string) string {
	date, _, _ := strings.Cut(key, LineSeparator)
	return date
}

// LineFromKey returns the line suffix of a record key, or "" for a plain date key.
func LineFromKey(key string) string {
	_, line, _ := strings.Cut(key, LineSeparator)
	return line
}

// ParseDate parses a YYYY-MM-DD string strictly, rejecting variable-width forms.
func ParseDate(s string) (time.Time, error) {
	if len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("date %q: want %s", s, DateLayout)
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, err)
	}
	return t, nil
}

// daysBetween returns whole days from a to b. Both must be UTC midnights as produced by ParseDate.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
