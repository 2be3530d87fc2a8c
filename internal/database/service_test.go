package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"invest-platform-go/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestStore(t *testing.T) (*Service, func()) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	service, err := NewServiceWithDB(db)
	if err != nil {
		t.Fatalf("Failed to initialize document store: %v", err)
	}

	cleanup := func() {
		db.Close()
	}

	return service, cleanup
}

func TestLoad_MissingCollection(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	records, revision, err := service.Load(context.Background(), "transactions")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty collection, got %d records", len(records))
	}
	if revision != "" {
		t.Errorf("Expected empty revision for missing collection, got %q", revision)
	}
}

func TestSave_InitializesMissingCollection(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	records := []store.Record{{"id": "1", "email": "a@example.com"}}

	revision, err := service.Save(ctx, "users", records, "")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if revision == "" {
		t.Fatal("Expected non-empty revision after first save")
	}

	loaded, loadedRevision, err := service.Load(ctx, "users")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loadedRevision != revision {
		t.Errorf("Expected revision %q, got %q", revision, loadedRevision)
	}
	if len(loaded) != 1 || loaded[0]["id"] != "1" {
		t.Errorf("Unexpected records after save: %v", loaded)
	}
}

func TestSave_StaleRevisionConflicts(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	first, err := service.Save(ctx, "wallets", []store.Record{{"id": "w1"}}, "")
	if err != nil {
		t.Fatalf("Initial save failed: %v", err)
	}

	second, err := service.Save(ctx, "wallets", []store.Record{{"id": "w1"}, {"id": "w2"}}, first)
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	// A writer still holding the first revision must lose.
	_, err = service.Save(ctx, "wallets", []store.Record{{"id": "only"}}, first)
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict for stale revision, got %v", err)
	}

	// The winning write is intact.
	records, revision, err := service.Load(ctx, "wallets")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if revision != second {
		t.Errorf("Expected revision %q, got %q", second, revision)
	}
	if len(records) != 2 {
		t.Errorf("Expected 2 records to survive, got %d", len(records))
	}
}

func TestSave_EmptyRevisionOnExistingCollectionConflicts(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.Save(ctx, "plans", []store.Record{{"id": "p1"}}, ""); err != nil {
		t.Fatalf("Initial save failed: %v", err)
	}

	_, err := service.Save(ctx, "plans", []store.Record{}, "")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("Expected ErrConflict when re-initializing existing collection, got %v", err)
	}
}

func TestLoad_CorruptContentSubstitutesEmpty(t *testing.T) {
	service, cleanup := setupTestStore(t)
	defer cleanup()

	ctx := context.Background()
	if _, err := service.db.ExecContext(ctx, queryInsertDocument, "settings", "{not json", "rev-1"); err != nil {
		t.Fatalf("Failed to seed corrupt content: %v", err)
	}

	records, revision, err := service.Load(ctx, "settings")
	if err != nil {
		t.Fatalf("Load must not surface parse failures, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("Expected empty records for corrupt content, got %v", records)
	}
	if revision != "rev-1" {
		t.Errorf("Expected stored revision to be preserved, got %q", revision)
	}
}
