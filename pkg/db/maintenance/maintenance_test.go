package maintenance

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tripkit/pkg/db"
	"tripkit/pkg/store"
)

func TestMaintenance(t *testing.T) {
	// Setup DB
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "maint_test.db")
	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()

	s := store.NewSQLiteStore(d)
	ctx := context.Background()

	// 1. Custom destination CSV
	csvPath := filepath.Join(tempDir, "destinations.csv")
	// Simulate BOM by prepending
	csvContent := "\ufeffID,Name,Locality,Country,Description,Photogenic,Safety,Tags,Vibes\n" +
		"dest-test,Testville,Testshire,Testland,A quiet test town,8,9,quiet;stone,peaceful;pastoral\n"
	if err := os.WriteFile(csvPath, []byte(csvContent), 0o644); err != nil {
		t.Fatal(err)
	}

	// 2. Cache entries for pruning
	oldDeadline := time.Now().Add(-40 * 24 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	_, err = d.Exec("INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", "old-key", "old-val", oldDeadline)
	if err != nil {
		t.Fatal(err)
	}
	newDeadline := time.Now().Add(-1 * 24 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	_, err = d.Exec("INSERT INTO cache (key, value, created_at) VALUES (?, ?, ?)", "new-key", "new-val", newDeadline)
	if err != nil {
		t.Fatal(err)
	}

	// 3. Stale session for pruning
	staleTime := time.Now().Add(-48 * time.Hour).UTC().Format("2006-01-02 15:04:05")
	_, err = d.Exec("INSERT INTO sessions (session_id, state, seq, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		"stale", "complete", 5, staleTime, staleTime)
	if err != nil {
		t.Fatal(err)
	}

	// Run Maintenance
	if err := Run(ctx, s, d, csvPath, 24*time.Hour); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Verify Import (incl. BOM handling on the ID column)
	dest, err := s.GetDestination(ctx, "dest-test")
	if err != nil {
		t.Fatalf("Failed to query imported destination: %v", err)
	}
	if dest == nil {
		t.Fatal("Imported destination not found. Suspect BOM issue.")
	}
	if dest.Photogenic != 8 {
		t.Errorf("Expected Photogenic 8, got %d", dest.Photogenic)
	}
	if len(dest.Vibes) != 2 || dest.Vibes[0] != "peaceful" {
		t.Errorf("Vibes not parsed: %v", dest.Vibes)
	}
	// Verify State
	_, found := s.GetState(ctx, destinationsCSVStateKey)
	if !found {
		t.Error("State not updated after import")
	}

	// Verify Cache Pruning
	var count int
	if err := d.QueryRow("SELECT count(*) FROM cache WHERE key = ?", "old-key").Scan(&count); err != nil {
		t.Errorf("Failed to query cache count: %v", err)
	}
	if count != 0 {
		t.Error("Old cache entry was not pruned")
	}
	if err := d.QueryRow("SELECT count(*) FROM cache WHERE key = ?", "new-key").Scan(&count); err != nil {
		t.Errorf("Failed to query cache count: %v", err)
	}
	if count != 1 {
		t.Error("New cache entry was incorrectly pruned")
	}

	// Verify Session Pruning
	if err := d.QueryRow("SELECT count(*) FROM sessions WHERE session_id = ?", "stale").Scan(&count); err != nil {
		t.Errorf("Failed to query sessions: %v", err)
	}
	if count != 0 {
		t.Error("Stale session was not pruned")
	}
}
