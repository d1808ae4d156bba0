package database

import (
	"context"
	"errors"

	"checklist-tracker/pkg/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS checklist_catalog (
		id         SMALLINT PRIMARY KEY,
		items      JSONB NOT NULL DEFAULT '[]',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS daily_records (
		record_key TEXT PRIMARY KEY,
		items      JSONB NOT NULL DEFAULT '[]',
		checked    JSONB NOT NULL DEFAULT '{}',
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// MigrateOrCreateSchema creates the tables if they do not exist.
func MigrateOrCreateSchema(ctx context.Context) error {
	db := DB(ctx)
	if db == nil {
		return errors.New("database not initialized")
	}
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	logger.Info(ctx, "Schema ready")
	return nil
}
