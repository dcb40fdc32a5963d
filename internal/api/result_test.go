package api

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
)

func getResult(t *testing.T, url, sessionID string) (*http.Response, model.ResponseBundle) {
	t.Helper()
	resp, err := http.Get(url + "/api/session/" + sessionID + "/result")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var bundle model.ResponseBundle
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&bundle))
	}
	return resp, bundle
}

func TestResultUnknownSessionIs404(t *testing.T) {
	env := newTestEnv(t)
	env.registerHappyStages()
	srv := newTestServer(t, env)

	resp, _ := getResult(t, srv.URL, "no-such-session")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestResultInProgress(t *testing.T) {
	env := newTestEnv(t)
	env.registerHappyStages()
	srv := newTestServer(t, env)

	_, _ = postChat(t, srv, "sess-res-1", "hello")

	resp, bundle := getResult(t, srv.URL, "sess-res-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "in_progress", bundle.Status)
	assert.Empty(t, bundle.Recommendations)
}

func TestResultCompleteBundle(t *testing.T) {
	env := newTestEnv(t)
	env.registerHappyStages()

	ctx := context.Background()
	_, err := env.sup.Start(ctx, "sess-res-2")
	require.NoError(t, err)
	// Skip the chat: drive directly with a message then run to completion.
	_, err = env.sup.HandleMessage(ctx, "sess-res-2", "hello")
	require.NoError(t, err)
	_, err = env.sup.HandleMessage(ctx, "sess-res-2", "romantic vintage week photography")
	require.NoError(t, err)
	_, err = env.sup.Run(ctx, "sess-res-2")
	require.NoError(t, err)

	srv := newTestServer(t, env)
	resp, bundle := getResult(t, srv.URL, "sess-res-2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "complete", bundle.Status)
	require.Len(t, bundle.Recommendations, 1)
	assert.Equal(t, "Porto", bundle.Recommendations[0].Destination.Name)
	require.NotNil(t, bundle.Image)
	require.NotNil(t, bundle.Styling)
	assert.False(t, bundle.IsFallback)
}

func TestResultFailedSessionGetsFallbacks(t *testing.T) {
	env := newTestEnv(t)
	env.registerHappyStages()
	// Recommendation stage that always fails fatally.
	env.sup.Register(pipeline.StateRecommendation, func(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
		return pipeline.StageResult{
			Flags:     pipeline.Flags{FatalError: true},
			ErrorCode: pipeline.CodeNoCandidates,
		}
	})

	ctx := context.Background()
	_, err := env.sup.HandleMessage(ctx, "sess-res-3", "hello")
	require.NoError(t, err)
	_, err = env.sup.HandleMessage(ctx, "sess-res-3", "romantic vintage week photography")
	require.NoError(t, err)
	_, err = env.sup.Run(ctx, "sess-res-3")
	require.NoError(t, err)

	srv := newTestServer(t, env)
	resp, bundle := getResult(t, srv.URL, "sess-res-3")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "failed", bundle.Status)
	assert.Equal(t, pipeline.CodeNoCandidates, bundle.ErrorCode)
	assert.True(t, bundle.IsFallback)
	require.NotEmpty(t, bundle.Recommendations)
	for _, rec := range bundle.Recommendations {
		assert.NotEmpty(t, rec.Justification)
	}
}
