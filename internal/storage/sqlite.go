package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLiteStore keeps records in the kv_records table.
type SQLiteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewSQLiteStore creates a store on a migrated database connection.
func NewSQLiteStore(db *sqlx.DB) *SQLiteStore {
	return &SQLiteStore{db: db, now: time.Now}
}

type kvRecord struct {
	Key       string `db:"key"`
	Value     string `db:"value"`
	UpdatedAt int64  `db:"updated_at"`
}

// Get reads the record stored for key.
func (s *SQLiteStore) Get(key string) ([]byte, error) {
	var rec kvRecord
	err := s.db.Get(&rec, `SELECT key, value, updated_at FROM kv_records WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query record %s: %w", key, err)
	}
	return []byte(rec.Value), nil
}

// Put inserts or replaces the record for key.
func (s *SQLiteStore) Put(key string, value []byte) error {
	rec := kvRecord{Key: key, Value: string(value), UpdatedAt: s.now().UnixMilli()}
	_, err := s.db.NamedExec(`
		INSERT INTO kv_records (key, value, updated_at)
		VALUES (:key, :value, :updated_at)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`, rec)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s: %w", key, err)
	}
	return nil
}

// Delete removes the record for key.
func (s *SQLiteStore) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv_records WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete record %s: %w", key, err)
	}
	return nil
}

// UpdatedAt returns when the record for key was last written.
func (s *SQLiteStore) UpdatedAt(key string) (time.Time, error) {
	var ms int64
	err := s.db.Get(&ms, `SELECT updated_at FROM kv_records WHERE key = ?`, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, fmt.Errorf("failed to query record %s: %w", key, err)
	}
	return time.UnixMilli(ms), nil
}
