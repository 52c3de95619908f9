package database

import (
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "harvest.db"))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Expected migrations to apply, got: %v", err)
	}
	return db
}

func TestInsertAndGetRecentRuns(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	first := Run{
		Product:        "mobiles",
		StartedAt:      time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Duration:       90 * time.Second,
		Listed:         5000,
		Batch:          100,
		Fetched:        98,
		Skipped:        2,
		TotalProcessed: 98,
	}
	second := first
	second.StartedAt = first.StartedAt.Add(24 * time.Hour)
	second.Fetched = 100
	second.Skipped = 0
	second.TotalProcessed = 198

	if err := repo.InsertRun(first); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := repo.InsertRun(second); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	runs, err := repo.GetRecentRuns("mobiles", 10)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got: %d", len(runs))
	}

	// Most recent first.
	if runs[0].Fetched != 100 {
		t.Errorf("Expected latest run first, got fetched=%d", runs[0].Fetched)
	}
	if runs[1].Duration != 90*time.Second {
		t.Errorf("Expected duration round-trip, got: %v", runs[1].Duration)
	}
	if runs[1].Listed != 5000 {
		t.Errorf("Expected listed=5000, got: %d", runs[1].Listed)
	}
}

func TestGetRecentRunsLimit(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	for i := 0; i < 5; i++ {
		run := Run{
			Product:   "mobiles",
			StartedAt: time.Date(2024, 5, 1+i, 0, 0, 0, 0, time.UTC),
		}
		if err := repo.InsertRun(run); err != nil {
			t.Fatal(err)
		}
	}

	runs, err := repo.GetRecentRuns("mobiles", 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Errorf("Expected 3 runs, got: %d", len(runs))
	}
}

func TestGetRunStats(t *testing.T) {
	repo := NewRunRepository(setupTestDB(t))

	stats, err := repo.GetRunStats("mobiles")
	if err != nil {
		t.Fatalf("Expected no error for empty ledger, got: %v", err)
	}
	if stats.Runs != 0 || stats.TotalFetched != 0 {
		t.Errorf("Expected empty stats, got: %+v", stats)
	}

	for _, run := range []Run{
		{Product: "mobiles", StartedAt: time.Now(), Fetched: 10, Skipped: 1},
		{Product: "mobiles", StartedAt: time.Now(), Fetched: 20, Skipped: 0},
		{Product: "tablets", StartedAt: time.Now(), Fetched: 7},
	} {
		if err := repo.InsertRun(run); err != nil {
			t.Fatal(err)
		}
	}

	stats, err = repo.GetRunStats("mobiles")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Runs != 2 {
		t.Errorf("Expected 2 runs, got: %d", stats.Runs)
	}
	if stats.TotalFetched != 30 {
		t.Errorf("Expected 30 fetched, got: %d", stats.TotalFetched)
	}
	if stats.TotalSkipped != 1 {
		t.Errorf("Expected 1 skipped, got: %d", stats.TotalSkipped)
	}
}
