package tracker

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tracker tracks usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Counter fields are accessed atomically.
type ProviderStats struct {
	CacheHits    int64
	CacheMisses  int64
	APISuccess   int64
	APIFailures  int64
	RateLimits   int64
	PolicyBlocks int64

	lastErrMu   sync.Mutex
	LastError   string
	LastErrorAt time.Time
}

// StatsSnapshot is an immutable copy of a provider's stats.
type StatsSnapshot struct {
	CacheHits    int64     `json:"cache_hits"`
	CacheMisses  int64     `json:"cache_misses"`
	APISuccess   int64     `json:"api_success"`
	APIFailures  int64     `json:"api_failures"`
	RateLimits   int64     `json:"rate_limits"`
	PolicyBlocks int64     `json:"policy_blocks"`
	LastError    string    `json:"last_error,omitempty"`
	LastErrorAt  time.Time `json:"last_error_at,omitempty"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackCacheHit increments the cache hit counter.
func (t *Tracker) TrackCacheHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

// TrackRateLimit records a throttling response from the provider.
func (t *Tracker) TrackRateLimit(provider string) {
	atomic.AddInt64(&t.getStats(provider).RateLimits, 1)
}

// TrackPolicyBlock records a content policy rejection.
func (t *Tracker) TrackPolicyBlock(provider string) {
	atomic.AddInt64(&t.getStats(provider).PolicyBlocks, 1)
}

// TrackError records the most recent error message for a provider.
// It also counts as an API failure.
func (t *Tracker) TrackError(provider string, err error) {
	s := t.getStats(provider)
	atomic.AddInt64(&s.APIFailures, 1)

	s.lastErrMu.Lock()
	s.LastError = err.Error()
	s.LastErrorAt = time.Now()
	s.lastErrMu.Unlock()
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]StatsSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]StatsSnapshot)
	for k, v := range t.stats {
		v.lastErrMu.Lock()
		lastErr, lastErrAt := v.LastError, v.LastErrorAt
		v.lastErrMu.Unlock()

		result[k] = StatsSnapshot{
			CacheHits:    atomic.LoadInt64(&v.CacheHits),
			CacheMisses:  atomic.LoadInt64(&v.CacheMisses),
			APISuccess:   atomic.LoadInt64(&v.APISuccess),
			APIFailures:  atomic.LoadInt64(&v.APIFailures),
			RateLimits:   atomic.LoadInt64(&v.RateLimits),
			PolicyBlocks: atomic.LoadInt64(&v.PolicyBlocks),
			LastError:    lastErr,
			LastErrorAt:  lastErrAt,
		}
	}
	return result
}
