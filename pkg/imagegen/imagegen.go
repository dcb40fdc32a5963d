// Package imagegen builds a deterministic synthesis prompt for the session's
// top hidden spot and drives the image-synthesis gateway through a bounded
// retry loop with prompt sanitization and rate-limit backoff.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"tripkit/pkg/config"
	"tripkit/pkg/llm"
	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/request"
	"tripkit/pkg/session"
	"tripkit/pkg/store"
)

const backoffProvider = "image-synthesis"

// filmStocks pick the preset per style concept.
var filmStocks = map[model.Concept]string{
	model.ConceptFlaneur:  "Kodak Portra 400",
	model.ConceptFilmlog:  "Fujifilm Superia 400",
	model.ConceptMidnight: "CineStill 800T",
}

// filmCharacteristics is the fixed prompt suffix per preset.
var filmCharacteristics = map[string]string{
	"Kodak Portra 400":     "fine grain, warm neutral tones, soft contrast",
	"Fujifilm Superia 400": "visible grain, slightly faded greens, nostalgic color shift",
	"CineStill 800T":       "pronounced halation, tungsten glow, cool night tones, high contrast",
}

// lightingByVisitTime derives the lighting clause from the spot's
// best-visit-time hint.
var lightingByVisitTime = map[string]string{
	"golden hour":   "warm low-angle golden light with long soft shadows",
	"blue hour":     "deep blue twilight with glowing street lamps",
	"early morning": "soft misty morning light",
	"midday":        "bright even daylight",
	"night":         "dark sky with pools of artificial light",
}

// compositionByConcept keeps framing consistent with the chosen concept.
var compositionByConcept = map[model.Concept]string{
	model.ConceptFlaneur:  "candid wide shot from across the street, leading lines along the pavement",
	model.ConceptFilmlog:  "centered medium shot, slight tilt, generous negative space",
	model.ConceptMidnight: "low-angle shot with reflections, shallow depth of field",
}

// flaggedTerms is the rule-based sanitization list applied after a content
// policy rejection.
var flaggedTerms = []string{
	"nude", "naked", "blood", "weapon", "gun", "knife",
	"drug", "violence", "corpse", "explicit",
}

// Stage is the image generation pipeline stage.
type Stage struct {
	synth    llm.Synthesizer
	searcher llm.Searcher // optional keyword enrichment, may be nil
	images   store.ImageStore
	backoff  *request.ProviderBackoff
	cfg      config.ImageConfig
}

// New creates the image generation stage. searcher may be nil.
func New(synth llm.Synthesizer, searcher llm.Searcher, images store.ImageStore, backoff *request.ProviderBackoff, cfg config.ImageConfig) *Stage {
	return &Stage{synth: synth, searcher: searcher, images: images, backoff: backoff, cfg: cfg}
}

// Run synthesizes one image for the top spot of the top recommendation.
// A rejected or failed session re-entering this stage gets a fresh
// GeneratedImage; earlier ones are never edited.
func (s *Stage) Run(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
	rec, spot, ok := topSpot(snap)
	if !ok {
		return pipeline.StageResult{
			Flags:     pipeline.Flags{FatalError: true},
			ErrorCode: pipeline.CodeInternalError,
			Reason:    "image generation invoked without recommendations",
		}
	}

	prompt := BuildPrompt(rec.Destination, spot, snap.Profile, s.keywords(ctx, rec.Destination, spot))

	var failures []model.AttemptFailure
	sanitized := false
	otherErrors := 0

	for attempt := 1; attempt <= s.cfg.Retries; attempt++ {
		img, err := s.synth.SynthesizeImage(ctx, prompt, s.cfg.Size, s.cfg.Quality, s.cfg.Style)
		if err == nil {
			if reason, valid := s.validate(img); !valid {
				failures = append(failures, model.AttemptFailure{Attempt: attempt, Reason: reason})
				slog.Debug("Synthesis attempt rejected locally", "session", snap.SessionID, "attempt", attempt, "reason", reason)
				continue
			}
			s.accept(ctx, snap, spot, prompt, img, attempt, failures)
			return pipeline.StageResult{}
		}

		switch {
		case llm.IsContentPolicy(err):
			failures = append(failures, model.AttemptFailure{Attempt: attempt, Reason: "content_policy"})
			if !sanitized {
				var cpe *llm.ContentPolicyError
				errors.As(err, &cpe)
				prompt = Sanitize(prompt, cpe.Terms)
				sanitized = true
			}
			// Sanitized prompt is reused as-is for the remaining attempts;
			// retry immediately, no backoff.
		case llm.IsRateLimit(err):
			failures = append(failures, model.AttemptFailure{Attempt: attempt, Reason: "rate_limit"})
			s.backoff.RecordFailure(backoffProvider)
			if attempt < s.cfg.Retries {
				if err := s.backoff.Wait(ctx, backoffProvider); err != nil {
					// Cancelled mid-wait. The supervisor discards this
					// result at the advance boundary.
					snap.ImageAttempts = attempt
					return pipeline.StageResult{Retry: true, Reason: "cancelled during rate-limit backoff"}
				}
			}
		default:
			otherErrors++
			failures = append(failures, model.AttemptFailure{Attempt: attempt, Reason: "provider_error"})
			slog.Warn("Synthesis attempt failed", "session", snap.SessionID, "attempt", attempt, "error", err)
			if otherErrors > 1 {
				snap.ImageAttempts = attempt
				return pipeline.StageResult{
					Flags:     pipeline.Flags{FatalError: true},
					ErrorCode: pipeline.CodeImageBudgetExhausted,
					Reason:    fmt.Sprintf("repeated provider failure: %v", err),
				}
			}
		}
	}

	snap.ImageAttempts = s.cfg.Retries
	return pipeline.StageResult{
		Flags:     pipeline.Flags{FatalError: true},
		ErrorCode: pipeline.CodeImageBudgetExhausted,
		Reason:    fmt.Sprintf("all %d attempts failed: %s", s.cfg.Retries, summarize(failures)),
	}
}

func (s *Stage) accept(ctx context.Context, snap *session.Snapshot, spot *model.HiddenSpot, prompt string, img *llm.SynthesizedImage, attempt int, failures []model.AttemptFailure) {
	s.backoff.RecordSuccess(backoffProvider)

	gen := &model.GeneratedImage{
		ID:            uuid.NewString(),
		SessionID:     snap.SessionID,
		SpotID:        spot.ID,
		Prompt:        prompt,
		RevisedPrompt: img.RevisedPrompt,
		AssetRef:      img.AssetRef,
		Width:         img.Width,
		Height:        img.Height,
		Attempts:      attempt,
		Failures:      failures,
	}
	snap.Image = gen
	snap.ImageAttempts = attempt

	if s.images != nil {
		if err := s.images.SaveImage(ctx, gen); err != nil {
			slog.Warn("Failed to persist generated image record", "id", gen.ID, "error", err)
		}
	}
	slog.Info("Image synthesized", "session", snap.SessionID, "spot", spot.ID, "attempts", attempt)
}

// validate applies the local post-generation checks: a well-formed absolute
// asset reference, and the resolution floor when dimensions are known.
func (s *Stage) validate(img *llm.SynthesizedImage) (string, bool) {
	ref := strings.TrimSpace(img.AssetRef)
	if ref == "" {
		return "validation: empty asset reference", false
	}
	if u, err := url.Parse(ref); err != nil || (!u.IsAbs() && !filepath.IsAbs(ref)) {
		return "validation: asset reference not absolute", false
	}
	if img.Width > 0 && img.Height > 0 {
		if min(img.Width, img.Height) < s.cfg.MinEdge {
			return fmt.Sprintf("validation: shorter edge %d below %d", min(img.Width, img.Height), s.cfg.MinEdge), false
		}
	}
	return "", true
}

// keywords asks the search capability for scene keywords. Best-effort: any
// failure just means a leaner prompt.
func (s *Stage) keywords(ctx context.Context, dest *model.Destination, spot *model.HiddenSpot) []string {
	if s.searcher == nil {
		return nil
	}
	results, err := s.searcher.Search(ctx, fmt.Sprintf("%s %s photography", spot.Name, dest.Name), 3)
	if err != nil {
		slog.Debug("Keyword search skipped", "spot", spot.ID, "error", err)
		return nil
	}
	var kws []string
	for _, r := range results {
		if t := strings.TrimSpace(r.Title); t != "" {
			kws = append(kws, t)
		}
	}
	return kws
}

// BuildPrompt assembles the synthesis prompt. Same inputs, same prompt:
// everything is table lookups and ordered concatenation.
func BuildPrompt(dest *model.Destination, spot *model.HiddenSpot, profile *model.PreferenceProfile, keywords []string) string {
	concept := profile.Concept
	stock := filmStocks[concept]

	var b strings.Builder
	fmt.Fprintf(&b, "A hidden spot called %s in %s, %s.", spot.Name, dest.Name, dest.Country)
	if len(spot.PhotoTips) > 0 {
		fmt.Fprintf(&b, " Scene notes: %s.", strings.Join(spot.PhotoTips, "; "))
	}
	if len(keywords) > 0 {
		fmt.Fprintf(&b, " Known for: %s.", strings.Join(keywords, ", "))
	}
	fmt.Fprintf(&b, " A lone traveler in %s-style clothing, %s mood.", profile.Aesthetic, profile.Mood)
	fmt.Fprintf(&b, " Composition: %s.", compositionByConcept[concept])
	fmt.Fprintf(&b, " Lighting: %s.", lighting(spot.BestVisitTime))
	fmt.Fprintf(&b, " Shot on %s: %s.", stock, filmCharacteristics[stock])
	return b.String()
}

func lighting(visitTime string) string {
	if l, ok := lightingByVisitTime[strings.ToLower(strings.TrimSpace(visitTime))]; ok {
		return l
	}
	return "natural daylight"
}

// Sanitize strips flagged terms from the prompt and appends a safety
// qualifier. Applied at most once per stage run; later attempts reuse the
// sanitized prompt unchanged.
func Sanitize(prompt string, reportedTerms []string) string {
	terms := append(append([]string(nil), flaggedTerms...), reportedTerms...)
	words := strings.Fields(prompt)
	kept := words[:0]
	for _, w := range words {
		low := strings.ToLower(strings.Trim(w, ".,;:!?"))
		banned := false
		for _, t := range terms {
			if t != "" && strings.Contains(low, strings.ToLower(t)) {
				banned = true
				break
			}
		}
		if !banned {
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ") + " Tasteful, family-friendly travel photography."
}

func topSpot(snap *session.Snapshot) (*model.Recommendation, *model.HiddenSpot, bool) {
	if len(snap.Recommendations) == 0 || snap.Profile == nil {
		return nil, nil, false
	}
	rec := &snap.Recommendations[0]
	if rec.Destination == nil || len(rec.Spots) == 0 {
		return nil, nil, false
	}
	return rec, &rec.Spots[0], true
}

func summarize(failures []model.AttemptFailure) string {
	reasons := make([]string, len(failures))
	for i, f := range failures {
		reasons[i] = f.Reason
	}
	return strings.Join(reasons, ", ")
}
