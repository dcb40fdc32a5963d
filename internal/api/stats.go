package api

import (
	"encoding/json"
	"net/http"

	"tripkit/pkg/session"
	"tripkit/pkg/tracker"
)

// StatsHandler exposes provider usage counters and session registry state.
type StatsHandler struct {
	tracker  *tracker.Tracker
	registry *session.Registry
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(t *tracker.Tracker, reg *session.Registry) *StatsHandler {
	return &StatsHandler{tracker: t, registry: reg}
}

type providerStatsDTO struct {
	CacheHits    int64  `json:"cache_hits"`
	CacheMisses  int64  `json:"cache_misses"`
	APISuccess   int64  `json:"api_success"`
	APIFailures  int64  `json:"api_errors"`
	RateLimits   int64  `json:"rate_limits"`
	PolicyBlocks int64  `json:"policy_blocks"`
	HitRate      int64  `json:"hit_rate"`
	LastError    string `json:"last_error,omitempty"`
}

type statsResponse struct {
	ActiveSessions int                         `json:"active_sessions"`
	Providers      map[string]providerStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := statsResponse{
		ActiveSessions: h.registry.Len(),
		Providers:      make(map[string]providerStatsDTO),
	}

	for provider, stats := range snapshot {
		totalCache := stats.CacheHits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (stats.CacheHits * 100) / totalCache
		}
		resp.Providers[provider] = providerStatsDTO{
			CacheHits:    stats.CacheHits,
			CacheMisses:  stats.CacheMisses,
			APISuccess:   stats.APISuccess,
			APIFailures:  stats.APIFailures,
			RateLimits:   stats.RateLimits,
			PolicyBlocks: stats.PolicyBlocks,
			HitRate:      hitRate,
			LastError:    stats.LastError,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
