package styling

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripkit/pkg/llm"
	"tripkit/pkg/llm/mock"
	"tripkit/pkg/model"
	"tripkit/pkg/session"
)

func testSnapshot() *session.Snapshot {
	snap := session.NewSnapshot("s1", "enrichment")
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
		Spots: []model.HiddenSpot{{
			ID: "spot1", Name: "Miradouro da Vitoria",
			PhotoTips: []string{"frame the rooftops"}, BestVisitTime: "golden hour",
		}},
	}}
	return snap
}

func TestBuildIsDeterministic(t *testing.T) {
	spot := &model.HiddenSpot{ID: "spot1", Name: "Miradouro"}

	a := Build(spot, model.ConceptFilmlog, model.SeasonAutumn)
	b := Build(spot, model.ConceptFilmlog, model.SeasonAutumn)
	assert.Equal(t, a, b)

	assert.Equal(t, "Canon AE-1 SLR", a.Camera)
	assert.Equal(t, "Fujifilm Superia 400", a.FilmStock)
	assert.Equal(t, "f/8", a.Settings.Aperture)
	assert.Contains(t, a.Outfit.Seasonal, "burgundy")
	assert.Contains(t, a.Outfit.Fabrics, "corduroy")
}

func TestPackageBounds(t *testing.T) {
	spot := &model.HiddenSpot{ID: "spot1", Name: "Miradouro", PhotoTips: []string{"go low"}}
	for _, concept := range model.Concepts {
		for _, season := range []model.Season{model.SeasonSpring, model.SeasonSummer, model.SeasonAutumn, model.SeasonWinter} {
			pkg := Build(spot, concept, season)
			assert.NotEmpty(t, pkg.Camera, "concept %s", concept)
			assert.NotEmpty(t, pkg.FilmStock, "concept %s", concept)
			assert.GreaterOrEqual(t, len(pkg.Props), 2, "concept %s", concept)
			assert.LessOrEqual(t, len(pkg.Props), 4, "concept %s", concept)
			assert.GreaterOrEqual(t, len(pkg.Angles), 3, "concept %s", concept)
			assert.LessOrEqual(t, len(pkg.Angles), 5, "concept %s", concept)
		}
	}
}

func TestRunElaboratesProps(t *testing.T) {
	p := mock.New()
	p.Respond(intentEnrich, "Pick one up at the flea market by the river.")
	stage := New(p)
	snap := testSnapshot()

	res := stage.Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	require.NotNil(t, snap.Styling)
	for _, prop := range snap.Styling.Props {
		assert.Equal(t, "Pick one up at the flea market by the river.", prop.Tip)
	}
}

func TestElaborationFailureFallsBackSilently(t *testing.T) {
	// No scripted responses: every elaboration call fails permanently.
	stage := New(mock.New())
	snap := testSnapshot()

	res := stage.Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError, "elaboration failure must not block the pipeline")
	require.NotNil(t, snap.Styling)
	for _, prop := range snap.Styling.Props {
		assert.Empty(t, prop.Tip)
		assert.NotEmpty(t, prop.Name)
	}
}

func TestTransientElaborationRetriedOnce(t *testing.T) {
	p := mock.New()
	p.Fail(intentEnrich, &llm.ProviderError{Provider: "mock", Transient: true, Err: errors.New("timeout")})
	p.Respond(intentEnrich, "Try the stationery shop on the corner.")
	stage := New(p)

	snap := testSnapshot()
	res := stage.Run(context.Background(), snap)

	require.False(t, res.Flags.FatalError)
	tips := 0
	for _, prop := range snap.Styling.Props {
		if prop.Tip != "" {
			tips++
		}
	}
	assert.Equal(t, len(snap.Styling.Props), tips, "retried call should recover the tip")
}

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		month    time.Month
		expected model.Season
	}{
		{time.January, model.SeasonWinter},
		{time.April, model.SeasonSpring},
		{time.July, model.SeasonSummer},
		{time.October, model.SeasonAutumn},
		{time.December, model.SeasonWinter},
	}
	for _, tt := range tests {
		ts := time.Date(2026, tt.month, 15, 12, 0, 0, 0, time.UTC)
		assert.Equal(t, tt.expected, SeasonOf(ts), tt.month.String())
	}
}

func TestMissingRecommendationsIsFatal(t *testing.T) {
	stage := New(mock.New())
	snap := session.NewSnapshot("s1", "enrichment")
	res := stage.Run(context.Background(), snap)
	assert.True(t, res.Flags.FatalError)
}
