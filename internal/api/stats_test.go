package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripkit/pkg/session"
	"tripkit/pkg/tracker"
)

func TestStatsHandler(t *testing.T) {
	trk := tracker.New()
	trk.TrackCacheHit("gemini")
	trk.TrackCacheHit("gemini")
	trk.TrackCacheMiss("gemini")
	trk.TrackAPISuccess("gemini")
	trk.TrackRateLimit("image-synthesis")
	trk.TrackError("image-synthesis", errors.New("boom"))

	reg := session.NewRegistry(time.Hour)
	h := reg.Lock("sess-1")
	h.Replace(session.NewSnapshot("sess-1", "conversation"))
	h.Unlock()

	handler := NewStatsHandler(trk, reg)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, 1, resp.ActiveSessions)

	gem := resp.Providers["gemini"]
	assert.Equal(t, int64(2), gem.CacheHits)
	assert.Equal(t, int64(1), gem.CacheMisses)
	assert.Equal(t, int64(66), gem.HitRate)
	assert.Equal(t, int64(1), gem.APISuccess)

	img := resp.Providers["image-synthesis"]
	assert.Equal(t, int64(1), img.RateLimits)
	assert.Equal(t, int64(1), img.APIFailures)
	assert.Equal(t, "boom", img.LastError)
}
