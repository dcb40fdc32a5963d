package imagegen

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripkit/pkg/config"
	"tripkit/pkg/llm"
	"tripkit/pkg/llm/mock"
	"tripkit/pkg/model"
	"tripkit/pkg/request"
	"tripkit/pkg/session"
)

func testCfg() config.ImageConfig {
	return config.ImageConfig{
		Size:    "1024x1024",
		Quality: "standard",
		Style:   "vivid",
		MinEdge: 1024,
		Retries: 3,
	}
}

func newStage(p *mock.Provider) *Stage {
	backoff := request.NewProviderBackoff(time.Millisecond, 5*time.Millisecond)
	return New(p, nil, nil, backoff, testCfg())
}

func testSnapshot() *session.Snapshot {
	snap := session.NewSnapshot("s1", "image_generation")
	snap.Profile = &model.PreferenceProfile{
		Mood:      model.MoodRomantic,
		Aesthetic: model.AestheticVintage,
		Duration:  model.DurationMedium,
		Interests: []string{"photography"},
		Concept:   model.ConceptFilmlog,
	}
	snap.Recommendations = []model.Recommendation{{
		DestinationID: "d1",
		Destination:   &model.Destination{ID: "d1", Name: "Porto", Country: "Portugal"},
		Score:         0.8,
		Spots: []model.HiddenSpot{{
			ID:            "spot1",
			DestinationID: "d1",
			Name:          "Miradouro da Vitoria",
			PhotoTips:     []string{"frame the rooftops"},
			BestVisitTime: "golden hour",
		}},
	}}
	return snap
}

func goodImage() *llm.SynthesizedImage {
	return &llm.SynthesizedImage{
		AssetRef: "https://assets.local/img.png",
		Width:    1024,
		Height:   1024,
	}
}

func TestFirstAttemptSuccess(t *testing.T) {
	p := mock.New()
	p.RespondImage(goodImage())
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError, res.Reason)
	require.NotNil(t, snap.Image)
	assert.Equal(t, 1, snap.Image.Attempts)
	assert.Empty(t, snap.Image.Failures)
	assert.Equal(t, "spot1", snap.Image.SpotID)
	assert.NotEmpty(t, snap.Image.ID)
}

func TestRateLimitTwiceThenSuccess(t *testing.T) {
	p := mock.New()
	p.FailImage(&llm.RateLimitError{Provider: "mock", Err: errors.New("429")})
	p.FailImage(&llm.RateLimitError{Provider: "mock", Err: errors.New("429")})
	p.RespondImage(goodImage())
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	require.NotNil(t, snap.Image)
	assert.Equal(t, 3, snap.Image.Attempts)
	require.Len(t, snap.Image.Failures, 2)
	assert.Equal(t, "rate_limit", snap.Image.Failures[0].Reason)
	assert.Equal(t, "rate_limit", snap.Image.Failures[1].Reason)
}

func TestAllAttemptsFailIsFatal(t *testing.T) {
	p := mock.New()
	for i := 0; i < 3; i++ {
		p.FailImage(&llm.RateLimitError{Provider: "mock", Err: errors.New("429")})
	}
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	assert.True(t, res.Flags.FatalError)
	assert.Equal(t, "image_budget_exhausted", res.ErrorCode)
	assert.Nil(t, snap.Image, "no image record survives a failed stage")
	assert.Equal(t, 3, snap.ImageAttempts)
}

func TestRateLimitWaitStopsOnCancellation(t *testing.T) {
	p := mock.New()
	p.FailImage(&llm.RateLimitError{Provider: "mock", Err: errors.New("429")})
	backoff := request.NewProviderBackoff(30*time.Second, time.Minute)
	stage := New(p, nil, nil, backoff, testCfg())
	snap := testSnapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	res := stage.Run(ctx, snap)

	assert.Less(t, time.Since(start), 5*time.Second, "cancelled wait must not burn the full backoff")
	assert.True(t, res.Retry)
	assert.False(t, res.Flags.FatalError)
	assert.Equal(t, 1, snap.ImageAttempts)
}

func TestContentPolicySanitizesOnce(t *testing.T) {
	p := mock.New()
	p.FailImage(&llm.ContentPolicyError{Provider: "mock", Terms: []string{"rooftops"}, Err: errors.New("blocked")})
	p.RespondImage(goodImage())
	snap := testSnapshot()

	original := BuildPrompt(snap.Recommendations[0].Destination, &snap.Recommendations[0].Spots[0], snap.Profile, nil)
	res := newStage(p).Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	require.NotNil(t, snap.Image)
	assert.Equal(t, 2, snap.Image.Attempts)
	require.Len(t, snap.Image.Failures, 1)
	assert.Equal(t, "content_policy", snap.Image.Failures[0].Reason)
	assert.NotEqual(t, original, snap.Image.Prompt, "stored prompt must be the sanitized one")
	assert.NotContains(t, snap.Image.Prompt, "rooftops")
}

func TestOtherErrorRetriedOnceThenFatal(t *testing.T) {
	p := mock.New()
	p.FailImage(&llm.ProviderError{Provider: "mock", Transient: true, Err: errors.New("boom")})
	p.FailImage(&llm.ProviderError{Provider: "mock", Transient: true, Err: errors.New("boom")})
	p.RespondImage(goodImage()) // never reached
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	assert.True(t, res.Flags.FatalError)
	assert.Equal(t, "image_budget_exhausted", res.ErrorCode)
	assert.Equal(t, 2, p.Calls("image"), "second failure must end the stage")
	assert.Equal(t, 2, snap.ImageAttempts)
}

func TestLowResolutionIsSoftFailure(t *testing.T) {
	p := mock.New()
	p.RespondImage(&llm.SynthesizedImage{AssetRef: "https://assets.local/small.png", Width: 512, Height: 512})
	p.RespondImage(goodImage())
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	require.NotNil(t, snap.Image)
	assert.Equal(t, 2, snap.Image.Attempts)
	require.Len(t, snap.Image.Failures, 1)
	assert.Contains(t, snap.Image.Failures[0].Reason, "shorter edge")
}

func TestRelativeAssetRefRejected(t *testing.T) {
	p := mock.New()
	p.RespondImage(&llm.SynthesizedImage{AssetRef: "img.png", Width: 1024, Height: 1024})
	p.RespondImage(goodImage())
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	assert.Equal(t, 2, snap.Image.Attempts)
	assert.Contains(t, snap.Image.Failures[0].Reason, "not absolute")
}

func TestUnknownDimensionsAccepted(t *testing.T) {
	p := mock.New()
	p.RespondImage(&llm.SynthesizedImage{AssetRef: "/var/assets/img.png"})
	snap := testSnapshot()

	res := newStage(p).Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	assert.Equal(t, 1, snap.Image.Attempts)
}

func TestPromptIsDeterministic(t *testing.T) {
	snap := testSnapshot()
	dest := snap.Recommendations[0].Destination
	spot := &snap.Recommendations[0].Spots[0]

	a := BuildPrompt(dest, spot, snap.Profile, nil)
	b := BuildPrompt(dest, spot, snap.Profile, nil)
	assert.Equal(t, a, b)

	assert.Contains(t, a, "Miradouro da Vitoria")
	assert.Contains(t, a, "Porto, Portugal")
	assert.Contains(t, a, "vintage-style clothing")
	assert.Contains(t, a, "golden light")
	assert.Contains(t, a, "Fujifilm Superia 400")
}

func TestPromptIncludesSearchKeywords(t *testing.T) {
	p := mock.New()
	p.SetSearchResults([]llm.SearchResult{{Title: "azulejo facades"}})
	p.RespondImage(goodImage())
	backoff := request.NewProviderBackoff(time.Millisecond, 5*time.Millisecond)
	stage := New(p, p, nil, backoff, testCfg())
	snap := testSnapshot()

	res := stage.Run(context.Background(), snap)
	require.False(t, res.Flags.FatalError)
	assert.Contains(t, snap.Image.Prompt, "azulejo facades")
}

func TestSanitizeStripsFlaggedTerms(t *testing.T) {
	out := Sanitize("a moody scene with a knife on the table", nil)
	assert.NotContains(t, strings.ToLower(out), "knife")
	assert.Contains(t, out, "family-friendly")
}

func TestMissingRecommendationsIsFatal(t *testing.T) {
	snap := session.NewSnapshot("s1", "image_generation")
	res := newStage(mock.New()).Run(context.Background(), snap)
	assert.True(t, res.Flags.FatalError)
	assert.Equal(t, "internal_error", res.ErrorCode)
}
