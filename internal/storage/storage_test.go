package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"baby-meal-planner/internal/database"
)

type snapshot struct {
	IDs []string `json:"ids"`
}

func newBackends(t *testing.T) map[string]KV {
	t.Helper()

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "records"))
	if err != nil {
		t.Fatalf("Failed to create FileStore: %v", err)
	}

	db, err := database.NewDB(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]KV{
		"memory": NewMemoryStore(),
		"file":   fileStore,
		"sqlite": NewSQLiteStore(db.SQL),
	}
}

func TestKVBackends(t *testing.T) {
	for name, kv := range newBackends(t) {
		t.Run(name, func(t *testing.T) {
			key := "babymeal-passport-test"

			if _, err := kv.Get(key); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Expected ErrNotFound for missing key, got %v", err)
			}

			if err := kv.Put(key, []byte(`{"ids":["a"]}`)); err != nil {
				t.Fatalf("Failed to put record: %v", err)
			}
			if err := kv.Put(key, []byte(`{"ids":["a","b"]}`)); err != nil {
				t.Fatalf("Failed to overwrite record: %v", err)
			}

			data, err := kv.Get(key)
			if err != nil {
				t.Fatalf("Failed to get record: %v", err)
			}
			if string(data) != `{"ids":["a","b"]}` {
				t.Errorf("Expected overwritten record, got %s", data)
			}

			if err := kv.Delete(key); err != nil {
				t.Fatalf("Failed to delete record: %v", err)
			}
			if _, err := kv.Get(key); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound after delete, got %v", err)
			}
			if err := kv.Delete(key); err != nil {
				t.Errorf("Expected deleting a missing key to succeed, got %v", err)
			}
		})
	}
}

func TestJSONHelpers(t *testing.T) {
	kv := NewMemoryStore()

	t.Run("RoundTrip", func(t *testing.T) {
		SaveJSON(kv, "k", snapshot{IDs: []string{"x", "y"}})

		var got snapshot
		if !LoadJSON(kv, "k", &got) {
			t.Fatal("Expected LoadJSON to succeed")
		}
		if len(got.IDs) != 2 || got.IDs[0] != "x" || got.IDs[1] != "y" {
			t.Errorf("Unexpected snapshot: %+v", got)
		}
	})

	t.Run("Missing", func(t *testing.T) {
		var got snapshot
		if LoadJSON(kv, "absent", &got) {
			t.Error("Expected LoadJSON to report a missing record")
		}
	})

	t.Run("Corrupt", func(t *testing.T) {
		_ = kv.Put("bad", []byte(`{"ids": [`))
		var got snapshot
		if LoadJSON(kv, "bad", &got) {
			t.Error("Expected LoadJSON to reject corrupt data")
		}
	})
}

func TestSaveJSONSwallowsWriteFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Failed to create FileStore: %v", err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("Failed to remove dir: %v", err)
	}

	// Must not panic; the failure is only logged.
	SaveJSON(store, "k", snapshot{IDs: []string{"x"}})

	if _, err := store.Get("k"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected no record after failed write, got %v", err)
	}
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("Failed to create FileStore: %v", err)
	}
	if err := store.Put("a/b:c", []byte("{}")); err != nil {
		t.Fatalf("Failed to put record: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "a_b-c.json")); err != nil {
		t.Errorf("Expected sanitized file name, got %v", err)
	}
}
