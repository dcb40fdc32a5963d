package session

import (
	"testing"

	"tripkit/pkg/model"
)

func TestSnapshotCloneIsDeep(t *testing.T) {
	s := NewSnapshot("s1", "conversation")
	s.Messages = []Message{{Role: "user", Content: "somewhere quiet"}}
	s.Profile = &model.PreferenceProfile{Mood: model.MoodPeaceful, Interests: []string{"hiking"}}
	s.StageRetries = map[string]int{"recommendation": 1}
	s.Recommendations = []model.Recommendation{{DestinationID: "d1"}}

	c := s.Clone()
	c.Messages = append(c.Messages, Message{Role: "assistant", Content: "noted"})
	c.Profile.Interests[0] = "museums"
	c.StageRetries["recommendation"] = 2
	c.Recommendations[0].DestinationID = "d2"

	if len(s.Messages) != 1 {
		t.Error("clone mutated original messages")
	}
	if s.Profile.Interests[0] != "hiking" {
		t.Error("clone mutated original profile interests")
	}
	if s.StageRetries["recommendation"] != 1 {
		t.Error("clone mutated original stage retries")
	}
	if s.Recommendations[0].DestinationID != "d1" {
		t.Error("clone mutated original recommendations")
	}
}

func TestSnapshotCheckpointRoundTrip(t *testing.T) {
	s := NewSnapshot("s1", "qa")
	s.Seq = 4
	s.Exchanges = 3
	s.Profile = &model.PreferenceProfile{
		Mood:       model.MoodRomantic,
		Aesthetic:  model.AestheticVintage,
		Confidence: 0.9,
	}
	s.QA = &model.QAResult{
		Scores:   map[model.QACategory]float64{model.QAImage: 1.0},
		Approved: true,
	}

	cp, err := s.Checkpoint()
	if err != nil {
		t.Fatalf("Checkpoint failed: %v", err)
	}
	if cp.Seq != 4 || cp.State != "qa" || cp.SessionID != "s1" {
		t.Errorf("checkpoint metadata wrong: %+v", cp)
	}

	restored, err := Unmarshal(cp.Snapshot)
	if err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if restored.Profile == nil || restored.Profile.Mood != model.MoodRomantic {
		t.Errorf("profile not restored: %+v", restored.Profile)
	}
	if restored.QA == nil || !restored.QA.Approved {
		t.Error("QA result not restored")
	}
	if restored.QA.Scores[model.QAImage] != 1.0 {
		t.Error("QA scores not restored")
	}
}

func TestSnapshotBundleStatus(t *testing.T) {
	s := NewSnapshot("s1", "complete")
	s.IsComplete = true
	if got := s.Bundle().Status; got != "complete" {
		t.Errorf("expected complete, got %s", got)
	}

	f := NewSnapshot("s2", "failed")
	f.FatalError = true
	f.ErrorCode = "image_budget_exhausted"
	f.FailedStage = "image_generation"
	b := f.Bundle()
	if b.Status != "failed" || b.ErrorCode != "image_budget_exhausted" || b.LastStage != "image_generation" {
		t.Errorf("failed bundle wrong: %+v", b)
	}

	p := NewSnapshot("s3", "conversation")
	if got := p.Bundle().Status; got != "in_progress" {
		t.Errorf("expected in_progress, got %s", got)
	}
}
