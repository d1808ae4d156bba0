package repository

import (
	"time"

	"checklist-tracker/internal/models"
)

// ToggleEntry flips the user's entry under itemID: an existing entry is removed (and the
// item with it once empty), a missing one is created as checked.
func ToggleEntry(checked models.CheckedMap, itemID, user, note string, now time.Time) {
	users := checked[itemID]
	if _, ok := users[user]; ok {
		delete(users, user)
		if len(users) == 0 {
			delete(checked, itemID)
		}
		return
	}
	if users == nil {
		users = make(map[string]models.CheckEntry)
		checked[itemID] = users
	}
	users[user] = models.CheckEntry{Checked: true, Timestamp: now, Note: note}
}

// AttachPhoto appends a photo reference to the user's entry, creating a checked entry if needed.
func AttachPhoto(checked models.CheckedMap, itemID, user string, photo models.PhotoRef, now time.Time) {
	users := checked[itemID]
	if users == nil {
		users = make(map[string]models.CheckEntry)
		checked[itemID] = users
	}
	e, ok := users[user]
	if !ok {
		e = models.CheckEntry{Checked: true, Timestamp: now}
	}
	if photo.UploadedAt.IsZero() {
		photo.UploadedAt = now
	}
	e.Photos = append(e.Photos, photo)
	users[user] = e
}
