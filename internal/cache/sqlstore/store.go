// Package sqlstore implements cache.Store on the cache_entries table so cached
// results survive restarts.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/joestump/gqlboot/internal/cache"
)

// Store is the sqlx-backed cache store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// New creates a Store. The cache_entries table must already exist
// (see db.Migrate).
func New(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// q rebinds ? placeholders to the driver's native format.
func (s *Store) q(query string) string { return s.db.Rebind(query) }

type row struct {
	Value     []byte `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
}

// Get returns the stored value, dropping it if it has expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var r row
	err := s.db.GetContext(ctx, &r, s.q(`SELECT value, expires_at FROM cache_entries WHERE cache_key = ?`), key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, cache.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select cache entry: %w", err)
	}

	if r.ExpiresAt != 0 && s.now().UnixMilli() >= r.ExpiresAt {
		if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cache_entries WHERE cache_key = ? AND expires_at = ?`), key, r.ExpiresAt); err != nil {
			return nil, fmt.Errorf("delete expired cache entry: %w", err)
		}
		return nil, cache.ErrNotFound
	}

	return r.Value, nil
}

// Set upserts value.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	if value == nil {
		value = []byte{}
	}

	var stmt string
	switch s.db.DriverName() {
	case "mysql":
		stmt = `INSERT INTO cache_entries (cache_key, value, expires_at) VALUES (?, ?, ?)
			ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)`
	default: // sqlite, postgres
		stmt = `INSERT INTO cache_entries (cache_key, value, expires_at) VALUES (?, ?, ?)
			ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`
	}

	if _, err := s.db.ExecContext(ctx, s.q(stmt), key, value, expiresAt); err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cache_entries WHERE cache_key = ?`), key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

// Reset empties the table.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("reset cache entries: %w", err)
	}
	return nil
}

// PruneExpired deletes every expired entry and returns how many were removed.
func (s *Store) PruneExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM cache_entries WHERE expires_at <> 0 AND expires_at <= ?`), s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune cache entries: %w", err)
	}
	return res.RowsAffected()
}
