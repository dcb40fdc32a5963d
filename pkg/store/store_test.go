package store

import (
	"context"
	"path/filepath"
	"testing"

	"tripkit/pkg/db"
	"tripkit/pkg/model"
)

// setupTestStore creates a test database and store for each test.
func setupTestStore(t *testing.T) (*SQLiteStore, func()) {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "test.db")

	d, err := db.Init(dbPath)
	if err != nil {
		t.Fatalf("Failed to init DB: %v", err)
	}

	store := NewSQLiteStore(d)
	cleanup := func() { d.Close() }
	return store, cleanup
}

// =============================================================================
// CheckpointStore Tests
// =============================================================================

func TestCheckpointStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	snapshot := []byte(`{"profile":{"mood":"romantic"},"status":"recommendation"}`)
	cp := &model.Checkpoint{
		SessionID: "s1",
		Seq:       1,
		State:     "recommendation",
		Snapshot:  snapshot,
	}
	if err := store.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatalf("SaveCheckpoint failed: %v", err)
	}

	got, err := store.GetLatestCheckpoint(ctx, "s1")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetLatestCheckpoint returned nil")
	}
	if got.State != "recommendation" {
		t.Errorf("expected state 'recommendation', got '%s'", got.State)
	}
	if string(got.Snapshot) != string(snapshot) {
		t.Errorf("snapshot mismatch: got %s", got.Snapshot)
	}
}

func TestCheckpointStore_Latest(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	for seq := 1; seq <= 3; seq++ {
		cp := &model.Checkpoint{
			SessionID: "s1",
			Seq:       seq,
			State:     "conversation",
			Snapshot:  []byte(`{}`),
		}
		if err := store.SaveCheckpoint(ctx, cp); err != nil {
			t.Fatalf("SaveCheckpoint seq %d failed: %v", seq, err)
		}
	}

	got, err := store.GetLatestCheckpoint(ctx, "s1")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint failed: %v", err)
	}
	if got == nil || got.Seq != 3 {
		t.Fatalf("expected latest seq 3, got %+v", got)
	}

	// Unknown session returns nil, nil
	missing, err := store.GetLatestCheckpoint(ctx, "nope")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint for unknown session: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown session, got %+v", missing)
	}
}

func TestCheckpointStore_DeleteSession(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	cp := &model.Checkpoint{SessionID: "s1", Seq: 1, State: "init", Snapshot: []byte(`{}`)}
	if err := store.SaveCheckpoint(ctx, cp); err != nil {
		t.Fatal(err)
	}

	ids, err := store.ListSessionIDs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 1 || ids[0] != "s1" {
		t.Fatalf("expected [s1], got %v", ids)
	}

	if err := store.DeleteSession(ctx, "s1"); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}

	got, err := store.GetLatestCheckpoint(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Error("checkpoint should be gone after DeleteSession")
	}
}

// =============================================================================
// CatalogStore Tests
// =============================================================================

func TestCatalogStore_Destinations(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	d := &model.Destination{
		ID:          "dest-rovaniemi",
		Name:        "Rovaniemi",
		Locality:    "Lapland",
		Country:     "Finland",
		Description: "Arctic silence and northern lights",
		Photogenic:  9,
		Safety:      9,
		Tags:        []string{"arctic", "aurora"},
		Vibes:       []string{"peaceful", "remote", "wintry"},
	}
	if err := store.SaveDestination(ctx, d); err != nil {
		t.Fatalf("SaveDestination failed: %v", err)
	}

	got, err := store.GetDestination(ctx, "dest-rovaniemi")
	if err != nil {
		t.Fatalf("GetDestination failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetDestination returned nil")
	}
	if got.Country != "Finland" {
		t.Errorf("expected Finland, got %s", got.Country)
	}
	if len(got.Vibes) != 3 || got.Vibes[0] != "peaceful" {
		t.Errorf("vibes round-trip failed: %v", got.Vibes)
	}

	count, err := store.CountDestinations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected 1 destination, got %d", count)
	}

	// Unknown ID is nil, nil
	missing, err := store.GetDestination(ctx, "nope")
	if err != nil {
		t.Fatal(err)
	}
	if missing != nil {
		t.Error("expected nil for unknown destination")
	}
}

func TestCatalogStore_ListOrdering(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_ = store.SaveDestination(ctx, &model.Destination{ID: "a", Name: "A", Photogenic: 5})
	_ = store.SaveDestination(ctx, &model.Destination{ID: "b", Name: "B", Photogenic: 9})
	_ = store.SaveDestination(ctx, &model.Destination{ID: "c", Name: "C", Photogenic: 7})

	list, err := store.ListDestinations(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 results, got %d", len(list))
	}
	if list[0].ID != "b" || list[1].ID != "c" {
		t.Errorf("expected [b c], got [%s %s]", list[0].ID, list[1].ID)
	}
}

func TestCatalogStore_Spots(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	spot := &model.HiddenSpot{
		ID:            "spot-1",
		DestinationID: "dest-gordes",
		Name:          "Lavender terrace",
		Lat:           43.91,
		Lon:           5.2,
		PhotoTips:     []string{"shoot at golden hour", "bring a polarizer"},
		Crowd:         model.CrowdQuiet,
		BestVisitTime: "golden hour",
		Authenticity:  0.9,
		Photogenic:    0.8,
		Accessibility: 0.6,
		Safety:        0.95,
	}
	if err := store.SaveSpot(ctx, spot); err != nil {
		t.Fatalf("SaveSpot failed: %v", err)
	}

	spots, err := store.GetSpots(ctx, "dest-gordes")
	if err != nil {
		t.Fatalf("GetSpots failed: %v", err)
	}
	if len(spots) != 1 {
		t.Fatalf("expected 1 spot, got %d", len(spots))
	}
	got := spots[0]
	if got.Crowd != model.CrowdQuiet {
		t.Errorf("crowd round-trip failed: %s", got.Crowd)
	}
	if len(got.PhotoTips) != 2 {
		t.Errorf("photo tips round-trip failed: %v", got.PhotoTips)
	}
	if got.Authenticity != 0.9 {
		t.Errorf("authenticity mismatch: %v", got.Authenticity)
	}
}

// =============================================================================
// ImageStore Tests
// =============================================================================

func TestImageStore(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	img := &model.GeneratedImage{
		ID:        "img-1",
		SessionID: "s1",
		SpotID:    "spot-1",
		Prompt:    "a lavender terrace at golden hour",
		AssetRef:  "file:///data/images/img-1.png",
		Width:     1024,
		Height:    1024,
		Attempts:  2,
		Failures: []model.AttemptFailure{
			{Attempt: 1, Reason: "content_policy"},
		},
	}
	if err := store.SaveImage(ctx, img); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}

	got, err := store.GetImage(ctx, "img-1")
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetImage returned nil")
	}
	if got.Attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", got.Attempts)
	}
	if len(got.Failures) != 1 || got.Failures[0].Reason != "content_policy" {
		t.Errorf("failures round-trip failed: %v", got.Failures)
	}

	imgs, err := store.GetSessionImages(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(imgs) != 1 {
		t.Errorf("expected 1 session image, got %d", len(imgs))
	}
}

// =============================================================================
// CacheStore Tests
// =============================================================================

func TestCacheStore(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	val := []byte("cached payload")
	if err := store.SetCache(ctx, "enrich:spot-1", val); err != nil {
		t.Fatalf("SetCache failed: %v", err)
	}

	got, found := store.GetCache(ctx, "enrich:spot-1")
	if !found {
		t.Fatal("expected cache hit")
	}
	if string(got) != string(val) {
		t.Errorf("cache round-trip failed: %s", got)
	}

	_, found = store.GetCache(ctx, "missing")
	if found {
		t.Error("expected cache miss")
	}
}

// =============================================================================
// StateStore Tests
// =============================================================================

func TestStateStore(t *testing.T) {
	ctx := context.Background()
	store, cleanup := setupTestStore(t)
	defer cleanup()

	if err := store.SetState(ctx, "catalog_seed_version", "1"); err != nil {
		t.Fatalf("SetState failed: %v", err)
	}

	val, found := store.GetState(ctx, "catalog_seed_version")
	if !found || val != "1" {
		t.Errorf("GetState = %q, %v", val, found)
	}

	// Overwrites replace the value in place.
	if err := store.SetState(ctx, "catalog_seed_version", "2"); err != nil {
		t.Fatal(err)
	}
	val, found = store.GetState(ctx, "catalog_seed_version")
	if !found || val != "2" {
		t.Errorf("GetState after overwrite = %q, %v", val, found)
	}

	_, found = store.GetState(ctx, "missing_key")
	if found {
		t.Error("expected miss for unknown key")
	}
}
