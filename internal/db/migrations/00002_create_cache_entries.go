package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upCreateCacheEntries, downCreateCacheEntries)
}

// expires_at is unix milliseconds; 0 means the entry never expires.
func upCreateCacheEntries(ctx context.Context, tx *sql.Tx) error {
	var ddl string
	switch dialect {
	case "postgres":
		ddl = `CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key  TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    expires_at BIGINT NOT NULL DEFAULT 0
)`
	case "mysql":
		ddl = `CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key  VARCHAR(191) PRIMARY KEY,
    value      LONGBLOB NOT NULL,
    expires_at BIGINT NOT NULL DEFAULT 0
)`
	default: // sqlite3
		ddl = `CREATE TABLE IF NOT EXISTS cache_entries (
    cache_key  TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    expires_at INTEGER NOT NULL DEFAULT 0
)`
	}
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create cache_entries table: %w", err)
	}
	return nil
}

func downCreateCacheEntries(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS cache_entries`)
	return err
}
