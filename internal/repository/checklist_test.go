package repository

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"checklist-tracker/internal/database"
	"checklist-tracker/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	database.Use(db)
	t.Cleanup(func() { _ = db.Close() })
	return mock
}

// checkedArg matches a JSON-encoded CheckedMap argument satisfying fn.
type checkedArg func(models.CheckedMap) bool

func (f checkedArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var m models.CheckedMap
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return false
	}
	return f(m)
}

func TestLoadCatalog_Success(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT items FROM checklist_catalog WHERE id = $1`)).
		WithArgs(catalogRowID).
		WillReturnRows(sqlmock.NewRows([]string{"items"}).
			AddRow([]byte(`[{"id":"item_2","periodDays":7,"category":"Vision"},{"id":"item_3","periodDays":null}]`)))

	items, err := LoadCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "item_2", items[0].ID)
	require.Equal(t, 7, items[0].Period())
	require.Nil(t, items[1].PeriodDays)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCatalog_NoRowIsEmpty(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT items FROM checklist_catalog`).
		WillReturnRows(sqlmock.NewRows([]string{"items"}))

	items, err := LoadCatalog(context.Background())
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestLoadCatalog_QueryError(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT items FROM checklist_catalog`).WillReturnError(errors.New("db is down"))

	_, err := LoadCatalog(context.Background())
	require.Error(t, err)
}

func TestSaveCatalog_Upserts(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO checklist_catalog .* ON CONFLICT \(id\) DO UPDATE`).
		WithArgs(catalogRowID, `[{"id":"a","periodDays":null,"order":0}]`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, SaveCatalog(context.Background(), []models.ChecklistItem{{ID: "a"}}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetRecord(t *testing.T) {
	mock := newMock(t)
	ts := time.Date(2026, 1, 29, 8, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT items, checked, updated_at FROM daily_records WHERE record_key = \$1`).
		WithArgs("2026-01-29_Line1").
		WillReturnRows(sqlmock.NewRows([]string{"items", "checked", "updated_at"}).
			AddRow([]byte(`[]`), []byte(`{"item_5":{"alice":{"checked":true,"note":"ok"}}}`), ts))

	rec, err := GetRecord(context.Background(), "2026-01-29_Line1")
	require.NoError(t, err)
	require.Equal(t, "2026-01-29_Line1", rec.Key)
	require.True(t, rec.Checked["item_5"]["alice"].Checked)
	require.Equal(t, "ok", rec.Checked["item_5"]["alice"].Note)
	require.Equal(t, ts, rec.LastUpdated)
}

func TestGetRecord_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT items, checked, updated_at FROM daily_records`).
		WithArgs("2026-01-30").
		WillReturnRows(sqlmock.NewRows([]string{"items", "checked", "updated_at"}))

	_, err := GetRecord(context.Background(), "2026-01-30")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRecord_DefaultsEmptyFields(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`INSERT INTO daily_records .* ON CONFLICT \(record_key\) DO UPDATE`).
		WithArgs("2026-01-29", "[]", "{}", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := &models.DailyRecord{Key: "2026-01-29"}
	require.NoError(t, SaveRecord(context.Background(), rec))
	require.False(t, rec.LastUpdated.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStreamDailyRecords(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT record_key, checked FROM daily_records ORDER BY record_key`).
		WillReturnRows(sqlmock.NewRows([]string{"record_key", "checked"}).
			AddRow("2026-01-28", []byte(`{}`)).
			AddRow("2026-01-29_Line1", []byte(`{"a":{}}`)))

	var keys []string
	err := StreamDailyRecords(context.Background(), func(r models.StoredRecord) error {
		keys = append(keys, r.Key)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"2026-01-28", "2026-01-29_Line1"}, keys)
}

func TestStreamDailyRecords_CallbackErrorStops(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery(`SELECT record_key, checked FROM daily_records`).
		WillReturnRows(sqlmock.NewRows([]string{"record_key", "checked"}).
			AddRow("2026-01-28", []byte(`{}`)).
			AddRow("2026-01-29", []byte(`{}`)))

	stop := errors.New("stop")
	calls := 0
	err := StreamDailyRecords(context.Background(), func(models.StoredRecord) error {
		calls++
		return stop
	})
	require.ErrorIs(t, err, stop)
	require.Equal(t, 1, calls)
}

func expectEnsureRow(mock sqlmock.Sqlmock, key string, inserted int64) {
	mock.ExpectExec(`INSERT INTO daily_records \(record_key\) VALUES \(\$1\) ON CONFLICT \(record_key\) DO NOTHING`).
		WithArgs(key).
		WillReturnResult(sqlmock.NewResult(0, inserted))
}

func TestApplyCommand_ToggleOnNewRecord(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	expectEnsureRow(mock, "2026-01-29", 1)
	mock.ExpectQuery(`SELECT checked FROM daily_records WHERE record_key = \$1 FOR UPDATE`).
		WithArgs("2026-01-29").
		WillReturnRows(sqlmock.NewRows([]string{"checked"}).AddRow([]byte(`{}`)))
	mock.ExpectExec(`UPDATE daily_records SET checked = \$2, updated_at = \$3 WHERE record_key = \$1`).
		WithArgs("2026-01-29", checkedArg(func(m models.CheckedMap) bool {
			e, ok := m["item_1"]["bob"]
			return ok && e.Checked && e.Note == "looks fine"
		}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	checked, err := ApplyCommand(context.Background(), &models.ChecklistCommand{
		Action: models.ActionToggle, RecordKey: "2026-01-29", ItemID: "item_1", User: "bob", Note: "looks fine",
	})
	require.NoError(t, err)
	require.True(t, checked["item_1"]["bob"].Checked)
	require.NoError(t, mock.ExpectationsWereMet())
}

// A second writer on a key created moments ago must see the first writer's
// check under the row lock and keep it.
func TestApplyCommand_SecondWriterKeepsFirstCheck(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	expectEnsureRow(mock, "2026-01-29_Line1", 0)
	mock.ExpectQuery(`SELECT checked FROM daily_records WHERE record_key = \$1 FOR UPDATE`).
		WithArgs("2026-01-29_Line1").
		WillReturnRows(sqlmock.NewRows([]string{"checked"}).
			AddRow([]byte(`{"i1":{"u1":{"checked":true}}}`)))
	mock.ExpectExec(`UPDATE daily_records SET checked`).
		WithArgs("2026-01-29_Line1", checkedArg(func(m models.CheckedMap) bool {
			return m["i1"]["u1"].Checked && m["i2"]["u2"].Checked
		}), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	checked, err := ApplyCommand(context.Background(), &models.ChecklistCommand{
		Action: models.ActionToggle, RecordKey: "2026-01-29_Line1", ItemID: "i2", User: "u2",
	})
	require.NoError(t, err)
	require.Len(t, checked, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCommand_EnsureRowErrorRollsBack(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO daily_records \(record_key\)`).WillReturnError(errors.New("db is down"))
	mock.ExpectRollback()

	_, err := ApplyCommand(context.Background(), &models.ChecklistCommand{
		Action: models.ActionToggle, RecordKey: "2026-01-29", ItemID: "i1", User: "u1",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyCommand_ToggleOffRemovesItem(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	expectEnsureRow(mock, "2026-01-29_Line1", 0)
	mock.ExpectQuery(`SELECT checked FROM daily_records`).
		WithArgs("2026-01-29_Line1").
		WillReturnRows(sqlmock.NewRows([]string{"checked"}).
			AddRow([]byte(`{"item_1":{"bob":{"checked":true}}}`)))
	mock.ExpectExec(`UPDATE daily_records SET checked`).
		WithArgs("2026-01-29_Line1", "{}", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	checked, err := ApplyCommand(context.Background(), &models.ChecklistCommand{
		Action: models.ActionToggle, RecordKey: "2026-01-29_Line1", ItemID: "item_1", User: "bob",
	})
	require.NoError(t, err)
	require.Empty(t, checked)
}

func TestApplyCommand_UnknownActionRollsBack(t *testing.T) {
	mock := newMock(t)
	mock.ExpectBegin()
	expectEnsureRow(mock, "2026-01-29", 1)
	mock.ExpectQuery(`SELECT checked FROM daily_records`).
		WillReturnRows(sqlmock.NewRows([]string{"checked"}).AddRow([]byte(`{}`)))
	mock.ExpectRollback()

	_, err := ApplyCommand(context.Background(), &models.ChecklistCommand{Action: "explode", RecordKey: "2026-01-29"})
	require.ErrorIs(t, err, ErrInvalidCommand)
	require.NoError(t, mock.ExpectationsWereMet())
}
