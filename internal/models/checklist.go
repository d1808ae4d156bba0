package models

import (
	"encoding/json"
	"time"
)

// ChecklistItem is one entry of the master checklist. PeriodDays nil or <= 0 means daily.
type ChecklistItem struct {
	ID         string `json:"id"`
	PeriodDays *int   `json:"periodDays"`
	Process    string `json:"process,omitempty"`
	Equipment  string `json:"equipment,omitempty"`
	Category   string `json:"category,omitempty"`
	Item       string `json:"item,omitempty"`
	ItemEN     string `json:"item_en,omitempty"`
	Text       string `json:"text,omitempty"`
	Order      int    `json:"order"`
}

// Period returns the recurrence period used for grouping; daily items report 0.
func (i ChecklistItem) Period() int {
	if i.PeriodDays == nil || *i.PeriodDays <= 0 {
		return 0
	}
	return *i.PeriodDays
}

// PhotoRef points at an uploaded photo; the binary lives outside this service.
type PhotoRef struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// CheckEntry is a single user's check action on an item.
type CheckEntry struct {
	Checked   bool       `json:"checked"`
	Timestamp time.Time  `json:"timestamp"`
	Note      string     `json:"note"`
	Photos    []PhotoRef `json:"photos,omitempty"`
}

// CheckedMap is itemID -> userID -> entry.
type CheckedMap map[string]map[string]CheckEntry

// AnyChecked reports whether at least one user has a truthy entry for the item.
func (m CheckedMap) AnyChecked(itemID string) bool {
	for _, e := range m[itemID] {
		if e.Checked {
			return true
		}
	}
	return false
}

// DailyRecord is one stored submission. Key is "YYYY-MM-DD" optionally followed by "_<line>".
type DailyRecord struct {
	Key         string          `json:"date"`
	Items       json.RawMessage `json:"items"`
	Checked     CheckedMap      `json:"checked"`
	LastUpdated time.Time       `json:"lastUpdated,omitzero"`
}

// StoredRecord is a daily record as it comes off the full-history scan, before decoding.
type StoredRecord struct {
	Key     string
	Checked []byte
}

// DaySummary is the per-date output of the calendar summary.
type DaySummary struct {
	Date            string         `json:"date"`
	Submitted       bool           `json:"submitted"`
	TotalChecked    int            `json:"total_checked"`
	TotalDue        int            `json:"total_due"`
	PeriodChecks    map[int]int    `json:"period_checks"`
	PeriodDueCounts map[int]int    `json:"period_due_counts"`
	Users           map[string]int `json:"users"`
	Lines           []string       `json:"lines"`
}

// CalendarSummary is the response of a calendar summary request.
type CalendarSummary struct {
	SummaryByDate     map[string]DaySummary `json:"summaryData"`
	TotalCatalogItems int                   `json:"totalMasterItems"`
}

// Command actions carried on the queue.
const (
	ActionToggle      = "toggle"
	ActionAttachPhoto = "attach_photo"
)

// ChecklistCommand is the message payload for Kafka (toggle / attach photo).
type ChecklistCommand struct {
	Action      string    `json:"action"`
	RecordKey   string    `json:"date"`
	ItemID      string    `json:"item_id"`
	User        string    `json:"user"`
	Note        string    `json:"note,omitempty"`
	Photo       *PhotoRef `json:"photo,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}
