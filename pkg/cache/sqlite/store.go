// Package sqlite is a key/value cache backend with an optional byte quota,
// stored in a single SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/medsynth/medsynth/pkg/cache/backend"
)

// Store is a SQLite-backed backend.Backend.
type Store struct {
	db       *sql.DB
	maxBytes int64
}

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_entries (
	key TEXT PRIMARY KEY,
	value BLOB NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// New opens the database at dbPath. maxBytes limits the total size of stored
// values; zero means unlimited.
func New(dbPath string, maxBytes int64) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}
	// Set reads the quota and writes in one transaction; a single
	// connection serializes those transactions instead of failing with
	// SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Store{db: db, maxBytes: maxBytes}, nil
}

// Name implements backend.Backend.
func (s *Store) Name() string { return "sqlite" }

// Get implements backend.Backend.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, backend.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv get: %w", err)
	}
	return value, nil
}

// Set implements backend.Backend. The quota check and the write share one
// transaction.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	defer tx.Rollback()

	if s.maxBytes > 0 {
		var used int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(LENGTH(value)), 0) FROM kv_entries WHERE key != ?`, key,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("kv usage: %w", err)
		}
		if used+int64(len(value)) > s.maxBytes {
			return backend.ErrQuotaExceeded
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("kv set: %w", err)
	}
	return tx.Commit()
}

// Delete implements backend.Backend.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("kv delete: %w", err)
	}
	return nil
}

// Keys implements backend.Backend.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key FROM kv_entries WHERE substr(key, 1, ?) = ? ORDER BY key`,
		len(prefix), prefix,
	)
	if err != nil {
		return nil, fmt.Errorf("kv keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
