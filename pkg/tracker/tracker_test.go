package tracker

import (
	"errors"
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	provider := "test.provider"

	// Test Initial State
	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	// Test Tracking
	tr.TrackCacheHit(provider)
	tr.TrackCacheMiss(provider)
	tr.TrackAPISuccess(provider)
	tr.TrackAPIFailure(provider)
	tr.TrackRateLimit(provider)
	tr.TrackPolicyBlock(provider)

	// Verify Snapshot
	stats = tr.Snapshot()
	pStats, ok := stats[provider]
	if !ok {
		t.Fatalf("Expected stats for provider %s", provider)
	}

	if pStats.CacheHits != 1 {
		t.Errorf("Expected 1 CacheHit, got %d", pStats.CacheHits)
	}
	if pStats.CacheMisses != 1 {
		t.Errorf("Expected 1 CacheMiss, got %d", pStats.CacheMisses)
	}
	if pStats.APISuccess != 1 {
		t.Errorf("Expected 1 APISuccess, got %d", pStats.APISuccess)
	}
	if pStats.APIFailures != 1 {
		t.Errorf("Expected 1 APIFailure, got %d", pStats.APIFailures)
	}
	if pStats.RateLimits != 1 {
		t.Errorf("Expected 1 RateLimit, got %d", pStats.RateLimits)
	}
	if pStats.PolicyBlocks != 1 {
		t.Errorf("Expected 1 PolicyBlock, got %d", pStats.PolicyBlocks)
	}
}

func TestTrackError(t *testing.T) {
	tr := New()
	provider := "gemini"

	tr.TrackError(provider, errors.New("quota exceeded"))

	stats := tr.Snapshot()
	s, ok := stats[provider]
	if !ok {
		t.Fatal("Expected stats for provider")
	}
	if s.APIFailures != 1 {
		t.Errorf("Expected 1 APIFailure, got %d", s.APIFailures)
	}
	if s.LastError != "quota exceeded" {
		t.Errorf("Expected last error recorded, got %q", s.LastError)
	}
	if s.LastErrorAt.IsZero() {
		t.Error("Expected LastErrorAt to be set")
	}
}
