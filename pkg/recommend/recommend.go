// Package recommend converts a completed preference profile into ranked
// destinations and hidden-spot candidates.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"tripkit/pkg/catalog"
	"tripkit/pkg/config"
	"tripkit/pkg/geo"
	"tripkit/pkg/llm"
	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
)

const intentJustify = "justify"

// spotSpacing is how far apart two kept hidden spots must sit, so a shortlist
// is not five photos of the same alley.
const spotSpacing = 150.0 // meters

// conceptVibes are the vibe tags each style concept gravitates towards.
var conceptVibes = map[model.Concept][]string{
	model.ConceptFlaneur:  {"street", "cafe", "strolling", "urban", "slow", "market"},
	model.ConceptFilmlog:  {"analog", "retro", "film", "timeless", "faded", "heritage"},
	model.ConceptMidnight: {"night", "neon", "moody", "mysterious", "blue-hour", "lantern"},
}

// moodVibes extend the desired tag set per mood.
var moodVibes = map[model.Mood][]string{
	model.MoodRomantic:    {"romantic", "golden-hour", "intimate", "candlelit"},
	model.MoodAdventurous: {"rugged", "wild", "remote", "dramatic"},
	model.MoodNostalgic:   {"nostalgic", "historic", "weathered", "old-town"},
	model.MoodPeaceful:    {"serene", "quiet", "pastoral", "still"},
}

// hardExcludes are tags incompatible with a profile. Applied before scoring
// and relaxed once if they leave too small a pool.
var hardExcludes = map[string][]string{
	"mood:peaceful":     {"nightlife", "party", "crowded"},
	"mood:romantic":     {"industrial", "party"},
	"mood:nostalgic":    {"futuristic"},
	"aesthetic:minimal": {"ornate", "baroque"},
}

// Stage is the recommendation pipeline stage.
type Stage struct {
	provider llm.Provider
	catalog  *catalog.Service
	cfg      config.RecommendConfig
}

// New creates the recommendation stage.
func New(provider llm.Provider, cat *catalog.Service, cfg config.RecommendConfig) *Stage {
	return &Stage{provider: provider, catalog: cat, cfg: cfg}
}

// Run scores the candidate pool and writes exactly cfg.Results
// recommendations onto the snapshot, each with at least cfg.MinSpots hidden
// spots and a one-sentence justification.
func (s *Stage) Run(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
	profile := snap.Profile
	if profile == nil || !profile.Complete() {
		return pipeline.StageResult{
			Flags:     pipeline.Flags{FatalError: true},
			ErrorCode: pipeline.CodeInternalError,
			Reason:    "recommendation invoked without a complete profile",
		}
	}

	pool, err := s.catalog.Candidates(ctx, snap.Exclusions, s.cfg.TopK)
	if err != nil {
		return pipeline.StageResult{Retry: true, Reason: fmt.Sprintf("candidate lookup: %v", err)}
	}

	filtered := excludeIncompatible(pool, profile)
	if len(filtered) < s.cfg.Results {
		slog.Debug("Relaxing hard excludes", "session", snap.SessionID, "filtered", len(filtered), "pool", len(pool))
		filtered = pool
	}
	if len(filtered) < s.cfg.Results {
		return pipeline.StageResult{
			Flags:     pipeline.Flags{FatalError: true},
			ErrorCode: pipeline.CodeNoCandidates,
			Reason:    fmt.Sprintf("only %d candidates after relaxation", len(filtered)),
		}
	}

	scored := s.scoreAll(profile, filtered)
	selected := diversitySelect(scored, s.cfg.Results)

	recs := make([]model.Recommendation, 0, len(selected))
	for _, cand := range selected {
		spots, err := s.shortlistSpots(ctx, cand.dest.ID)
		if err != nil {
			return pipeline.StageResult{Retry: true, Reason: fmt.Sprintf("spot lookup for %s: %v", cand.dest.ID, err)}
		}
		recs = append(recs, model.Recommendation{
			DestinationID: cand.dest.ID,
			Destination:   cand.dest,
			Score:         cand.score,
			Justification: s.justify(ctx, profile, cand.dest),
			Spots:         spots,
		})
	}

	snap.Recommendations = recs
	slog.Info("Recommendations ready", "session", snap.SessionID, "count", len(recs), "top", recs[0].Destination.Name)
	return pipeline.StageResult{}
}

type candidate struct {
	dest  *model.Destination
	score float64
}

// scoreAll computes match scores concurrently. Scoring is read-only per
// candidate, so a plain WaitGroup over an index-addressed slice suffices.
func (s *Stage) scoreAll(profile *model.PreferenceProfile, pool []*model.Destination) []candidate {
	scored := make([]candidate, len(pool))
	var wg sync.WaitGroup
	for i, d := range pool {
		wg.Add(1)
		go func(i int, d *model.Destination) {
			defer wg.Done()
			match := s.cfg.VibeWeight*vibeSimilarity(profile, d) +
				s.cfg.PhotogenicWeight*(float64(d.Photogenic)/10)
			scored[i] = candidate{dest: d, score: match}
		}(i, d)
	}
	wg.Wait()

	// Descending by score, id as the deterministic tie-break.
	sort.Slice(scored, func(a, b int) bool {
		if scored[a].score != scored[b].score {
			return scored[a].score > scored[b].score
		}
		return scored[a].dest.ID < scored[b].dest.ID
	})
	return scored
}

// vibeSimilarity measures overlap between the tags the profile wants and the
// tags the destination carries, normalized to 0-1.
func vibeSimilarity(p *model.PreferenceProfile, d *model.Destination) float64 {
	desired := make(map[string]bool)
	for _, v := range conceptVibes[p.Concept] {
		desired[v] = true
	}
	for _, v := range moodVibes[p.Mood] {
		desired[v] = true
	}
	for _, v := range p.Interests {
		desired[normalizeTag(v)] = true
	}
	if len(desired) == 0 {
		return 0
	}

	matches := 0
	seen := make(map[string]bool)
	for _, t := range append(append([]string(nil), d.Vibes...), d.Tags...) {
		t = normalizeTag(t)
		if desired[t] && !seen[t] {
			matches++
			seen[t] = true
		}
	}
	sim := float64(matches) / float64(len(desired))
	if sim > 1 {
		sim = 1
	}
	return sim
}

func normalizeTag(t string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(t)), " ", "-")
}

// excludeIncompatible drops destinations carrying tags that clash with the
// profile's mood or aesthetic.
func excludeIncompatible(pool []*model.Destination, p *model.PreferenceProfile) []*model.Destination {
	banned := make(map[string]bool)
	for _, t := range hardExcludes["mood:"+string(p.Mood)] {
		banned[t] = true
	}
	for _, t := range hardExcludes["aesthetic:"+string(p.Aesthetic)] {
		banned[t] = true
	}

	var kept []*model.Destination
	for _, d := range pool {
		clash := false
		for _, t := range d.Tags {
			if banned[normalizeTag(t)] {
				clash = true
				break
			}
		}
		if !clash {
			kept = append(kept, d)
		}
	}
	return kept
}

// diversitySelect walks candidates by descending score and skips any whose
// locality or country is already represented. If that leaves fewer than want,
// the diversity constraint is relaxed before the result count is reduced:
// country uniqueness goes first (same locality implies same country, so the
// country rule dominates), then locality. The result is re-sorted so
// presentation order stays descending by score regardless of which pass
// admitted a pick.
func diversitySelect(scored []candidate, want int) []candidate {
	selected := make([]candidate, 0, want)
	usedLocality := make(map[string]bool)
	usedCountry := make(map[string]bool)
	taken := make(map[string]bool)

	add := func(c candidate) {
		selected = append(selected, c)
		taken[c.dest.ID] = true
		usedLocality[c.dest.Locality] = true
		usedCountry[c.dest.Country] = true
	}

	for _, c := range scored {
		if len(selected) == want {
			break
		}
		if usedLocality[c.dest.Locality] || usedCountry[c.dest.Country] {
			continue
		}
		add(c)
	}

	if len(selected) < want {
		for _, c := range scored {
			if len(selected) == want {
				break
			}
			if taken[c.dest.ID] || usedLocality[c.dest.Locality] {
				continue
			}
			add(c)
		}
	}

	if len(selected) < want {
		for _, c := range scored {
			if len(selected) == want {
				break
			}
			if !taken[c.dest.ID] {
				add(c)
			}
		}
	}

	sort.Slice(selected, func(a, b int) bool {
		if selected[a].score != selected[b].score {
			return selected[a].score > selected[b].score
		}
		return selected[a].dest.ID < selected[b].dest.ID
	})
	return selected
}

// shortlistSpots ranks a destination's hidden spots and keeps the best,
// spacing them out geographically where the pool allows it.
func (s *Stage) shortlistSpots(ctx context.Context, destinationID string) ([]model.HiddenSpot, error) {
	all, err := s.catalog.SpotsFor(ctx, destinationID)
	if err != nil {
		return nil, err
	}

	ranked := make([]model.HiddenSpot, 0, len(all))
	for _, sp := range all {
		cp := *sp
		cp.Score = 0.4*cp.Authenticity + 0.3*cp.Photogenic + 0.2*cp.Accessibility + 0.1*cp.Safety
		ranked = append(ranked, cp)
	}
	sort.Slice(ranked, func(a, b int) bool {
		if ranked[a].Score != ranked[b].Score {
			return ranked[a].Score > ranked[b].Score
		}
		return ranked[a].ID < ranked[b].ID
	})

	idx := geo.NewSpotIndex()
	kept := make([]model.HiddenSpot, 0, s.cfg.MinSpots)
	var skipped []model.HiddenSpot
	for _, sp := range ranked {
		p := geo.Point{Lat: sp.Lat, Lon: sp.Lon}
		if idx.HasNearby(p, spotSpacing) {
			skipped = append(skipped, sp)
			continue
		}
		idx.Add(sp.ID, p)
		kept = append(kept, sp)
	}
	// Spacing never shrinks the shortlist below the floor.
	for _, sp := range skipped {
		if len(kept) >= s.cfg.MinSpots {
			break
		}
		kept = append(kept, sp)
	}
	return kept, nil
}

// justify produces the one-sentence pitch. The prompt is constrained to the
// profile and the destination's own tags; if the model is unavailable the
// sentence is assembled from the same inputs instead.
func (s *Stage) justify(ctx context.Context, p *model.PreferenceProfile, d *model.Destination) string {
	prompt := fmt.Sprintf(
		"Write exactly one sentence recommending %s in %s to a traveler seeking a %s, %s trip. "+
			"Mention only these qualities: %s. No greetings, no hedging.",
		d.Name, d.Country, p.Mood, p.Aesthetic, strings.Join(d.Tags, ", "))

	text, err := s.provider.GenerateText(ctx, intentJustify, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		slog.Debug("Justification fell back to template", "destination", d.ID, "error", err)
		return fallbackJustification(p, d)
	}
	return strings.TrimSpace(text)
}

func fallbackJustification(p *model.PreferenceProfile, d *model.Destination) string {
	quality := "its photogenic corners"
	if len(d.Tags) > 0 {
		quality = "its " + strings.Join(d.Tags[:min(2, len(d.Tags))], " and ")
	}
	return fmt.Sprintf("%s fits your %s %s vibe with %s.", d.Name, p.Mood, p.Aesthetic, quality)
}
