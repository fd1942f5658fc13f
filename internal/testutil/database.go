// Package testutil provides shared test fixtures for workitem-scout packages.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/workitem-scout/internal/service"
	"github.com/Veraticus/workitem-scout/internal/storage"
)

// TestDB is a migrated in-memory history database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory history database and seeds it with runs.
// It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t, &service.SearchRun{Project: "Contoso", SourceID: 1, Scope: "specific", Mode: "title-keyword"})
func SetupTestDB(t *testing.T, runs ...*service.SearchRun) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, run := range runs {
		if err := store.SaveSearchRun(ctx, run); err != nil {
			_ = store.Close()
			t.Fatalf("failed to seed search run for %d: %v", run.SourceID, err)
		}
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
	}
}

// MustRecentRuns returns up to limit recorded runs or fails the test.
func (db *TestDB) MustRecentRuns(limit int) []service.SearchRun {
	db.t.Helper()
	runs, err := db.Storage.GetRecentSearchRuns(context.Background(), limit)
	if err != nil {
		db.t.Fatalf("failed to list search runs: %v", err)
	}
	return runs
}

// Unclosable wraps the storage so code under test cannot close the shared database.
func (db *TestDB) Unclosable() service.HistoryStore {
	return unclosable{db.Storage}
}

type unclosable struct {
	service.HistoryStore
}

func (unclosable) Close() error { return nil }
