package database

import (
	"path/filepath"
	"testing"
)

func TestNewDB(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"kv_records", "execution_metrics"} {
		var count int
		err := db.SQL.Get(&count, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table)
		if err != nil {
			t.Fatalf("Failed to query schema: %v", err)
		}
		if count != 1 {
			t.Errorf("Expected table %s to exist", table)
		}
	}

	t.Run("MigrationsIdempotent", func(t *testing.T) {
		if err := RunMigrations(dbPath); err != nil {
			t.Errorf("Expected re-running migrations to succeed, got %v", err)
		}
	})
}
