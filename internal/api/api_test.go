package api

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tripkit/pkg/catalog"
	"tripkit/pkg/config"
	"tripkit/pkg/db"
	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
	"tripkit/pkg/store"
)

// testEnv wires a supervisor over a temp sqlite store with scripted stages,
// so handler tests exercise the real routing and checkpointing paths.
type testEnv struct {
	sup     *pipeline.Supervisor
	reg     *session.Registry
	catalog *catalog.Service
	store   *store.SQLiteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	database, err := db.Init(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	st := store.NewSQLiteStore(database)
	cat := catalog.New(st, st)
	require.NoError(t, cat.EnsureSeeded(context.Background()))

	reg := session.NewRegistry(time.Hour)
	sup, err := pipeline.New(reg, st, config.PipelineConfig{StageRetries: 1, ReworkBudget: 2})
	require.NoError(t, err)

	return &testEnv{sup: sup, reg: reg, catalog: cat, store: st}
}

// registerHappyStages installs scripted stage functions that walk a session
// from conversation to complete. The conversation stage completes the profile
// on the second user message.
func (e *testEnv) registerHappyStages() {
	e.sup.Register(pipeline.StateConversation, func(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
		snap.Exchanges++
		userTurns := 0
		for _, m := range snap.Messages {
			if m.Role == "user" {
				userTurns++
			}
		}
		if userTurns < 2 {
			snap.Messages = append(snap.Messages, session.Message{Role: "assistant", Content: "What mood are you chasing?"})
			return pipeline.StageResult{}
		}
		snap.Profile = &model.PreferenceProfile{
			Mood:       model.MoodRomantic,
			Aesthetic:  model.AestheticVintage,
			Duration:   model.DurationMedium,
			Interests:  []string{"photography"},
			Concept:    model.ConceptFilmlog,
			Confidence: 0.9,
		}
		snap.Messages = append(snap.Messages, session.Message{Role: "assistant", Content: "Got it, building your trip."})
		return pipeline.StageResult{Flags: pipeline.Flags{IsComplete: true}}
	})
	e.sup.Register(pipeline.StateRecommendation, func(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
		snap.Recommendations = []model.Recommendation{{
			DestinationID: "d1",
			Destination:   &model.Destination{ID: "d1", Name: "Porto", Country: "Portugal"},
			Score:         0.8,
			Justification: "Porto fits.",
		}}
		return pipeline.StageResult{}
	})
	e.sup.Register(pipeline.StateImageGeneration, func(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
		snap.Image = &model.GeneratedImage{ID: "img-1", AssetRef: "/tmp/img-1.png", Prompt: "p"}
		return pipeline.StageResult{}
	})
	e.sup.Register(pipeline.StateEnrichment, func(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
		snap.Styling = &model.StylingPackage{Camera: "Canon AE-1"}
		return pipeline.StageResult{}
	})
	e.sup.Register(pipeline.StateQA, func(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
		snap.Approved = true
		return pipeline.StageResult{Flags: pipeline.Flags{Approved: true}}
	})
}
