package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checklist-tracker/internal/database"
	"checklist-tracker/internal/models"
	"checklist-tracker/pkg/logger"
)

const catalogRowID = 1

var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("database unavailable")

	// ErrInvalidCommand marks a command that can never apply, however often it is retried.
	ErrInvalidCommand = errors.New("invalid command")
)

// Store exposes the package functions as a value, for consumers that take an interface.
type Store struct{}

func (Store) LoadCatalog(ctx context.Context) ([]models.ChecklistItem, error) {
	return LoadCatalog(ctx)
}

func (Store) StreamDailyRecords(ctx context.Context, fn func(models.StoredRecord) error) error {
	return StreamDailyRecords(ctx, fn)
}

// LoadCatalog returns the master checklist items in stored order. A missing row is an empty catalog.
func LoadCatalog(ctx context.Context) ([]models.ChecklistItem, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, ErrUnavailable
	}
	var raw []byte
	err := db.QueryRowContext(ctx, `SELECT items FROM checklist_catalog WHERE id = $1`, catalogRowID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return []models.ChecklistItem{}, nil
	}
	if err != nil {
		logger.Error(ctx, "Repository LoadCatalog failed", "error", err)
		return nil, err
	}
	items := []models.ChecklistItem{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return items, nil
}

// SaveCatalog replaces the master checklist wholesale.
func SaveCatalog(ctx context.Context, items []models.ChecklistItem) error {
	db := database.DB(ctx)
	if db == nil {
		return ErrUnavailable
	}
	if items == nil {
		items = []models.ChecklistItem{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO checklist_catalog (id, items, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET items = EXCLUDED.items, updated_at = EXCLUDED.updated_at`,
		catalogRowID, string(b), time.Now())
	if err != nil {
		logger.Error(ctx, "Repository SaveCatalog failed", "error", err)
		return err
	}
	return nil
}

// GetRecord returns the daily record stored under key.
func GetRecord(ctx context.Context, key string) (*models.DailyRecord, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, ErrUnavailable
	}
	var items, checked []byte
	rec := &models.DailyRecord{Key: key}
	err := db.QueryRowContext(ctx,
		`SELECT items, checked, updated_at FROM daily_records WHERE record_key = $1`, key).
		Scan(&items, &checked, &rec.LastUpdated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		logger.Error(ctx, "Repository GetRecord failed", "error", err, "key", key)
		return nil, err
	}
	rec.Items = json.RawMessage(items)
	if err := json.Unmarshal(checked, &rec.Checked); err != nil {
		return nil, fmt.Errorf("decode record %q: %w", key, err)
	}
	if rec.Checked == nil {
		rec.Checked = models.CheckedMap{}
	}
	return rec, nil
}

// SaveRecord upserts items and checked for rec.Key.
func SaveRecord(ctx context.Context, rec *models.DailyRecord) error {
	db := database.DB(ctx)
	if db == nil {
		return ErrUnavailable
	}
	items := rec.Items
	if len(items) == 0 {
		items = json.RawMessage("[]")
	}
	checked := rec.Checked
	if checked == nil {
		checked = models.CheckedMap{}
	}
	cb, err := json.Marshal(checked)
	if err != nil {
		return err
	}
	rec.LastUpdated = time.Now()
	_, err = db.ExecContext(ctx,
		`INSERT INTO daily_records (record_key, items, checked, updated_at) VALUES ($1, $2, $3, $4)
		 ON CONFLICT (record_key) DO UPDATE SET items = EXCLUDED.items, checked = EXCLUDED.checked, updated_at = EXCLUDED.updated_at`,
		rec.Key, string(items), string(cb), rec.LastUpdated)
	if err != nil {
		logger.Error(ctx, "Repository SaveRecord failed", "error", err, "key", rec.Key)
		return err
	}
	return nil
}

// StreamDailyRecords calls fn for every stored record in key order. Decoding is left to fn.
func StreamDailyRecords(ctx context.Context, fn func(models.StoredRecord) error) error {
	db := database.DB(ctx)
	if db == nil {
		return ErrUnavailable
	}
	rows, err := db.QueryContext(ctx, `SELECT record_key, checked FROM daily_records ORDER BY record_key`)
	if err != nil {
		logger.Error(ctx, "Repository StreamDailyRecords failed", "error", err)
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var r models.StoredRecord
		if err := rows.Scan(&r.Key, &r.Checked); err != nil {
			return err
		}
		if err := fn(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ApplyCommand applies a toggle or photo command to the record it targets and returns the
// resulting checked map. The read-modify-write runs in one transaction with the row locked,
// including for a key that has no row yet.
func ApplyCommand(ctx context.Context, cmd *models.ChecklistCommand) (models.CheckedMap, error) {
	db := database.DB(ctx)
	if db == nil {
		return nil, ErrUnavailable
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Materialize the row first so FOR UPDATE always has something to lock;
	// otherwise two first writers on a new key both read an empty map.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO daily_records (record_key) VALUES ($1) ON CONFLICT (record_key) DO NOTHING`, cmd.RecordKey); err != nil {
		logger.Error(ctx, "Repository ApplyCommand ensure row failed", "error", err, "key", cmd.RecordKey)
		return nil, err
	}

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT checked FROM daily_records WHERE record_key = $1 FOR UPDATE`, cmd.RecordKey).Scan(&raw)
	if err != nil {
		logger.Error(ctx, "Repository ApplyCommand read failed", "error", err, "key", cmd.RecordKey)
		return nil, err
	}
	checked := models.CheckedMap{}
	if err := json.Unmarshal(raw, &checked); err != nil {
		return nil, fmt.Errorf("%w: decode record %q: %v", ErrInvalidCommand, cmd.RecordKey, err)
	}
	if checked == nil {
		checked = models.CheckedMap{}
	}

	now := time.Now().UTC()
	switch cmd.Action {
	case models.ActionToggle:
		ToggleEntry(checked, cmd.ItemID, cmd.User, cmd.Note, now)
	case models.ActionAttachPhoto:
		if cmd.Photo == nil {
			return nil, fmt.Errorf("%w: attach photo to %q: missing photo", ErrInvalidCommand, cmd.ItemID)
		}
		AttachPhoto(checked, cmd.ItemID, cmd.User, *cmd.Photo, now)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrInvalidCommand, cmd.Action)
	}

	b, err := json.Marshal(checked)
	if err != nil {
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE daily_records SET checked = $2, updated_at = $3 WHERE record_key = $1`,
		cmd.RecordKey, string(b), now)
	if err != nil {
		logger.Error(ctx, "Repository ApplyCommand write failed", "error", err, "key", cmd.RecordKey)
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return checked, nil
}
