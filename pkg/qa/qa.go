// Package qa is the quality gate: a fixed checklist of structural predicates
// per category, a moderation pass over all generated text, and deterministic
// improvement suggestions for whatever failed.
package qa

import (
	"context"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"

	"tripkit/pkg/config"
	"tripkit/pkg/llm"
	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
)

// predicate is one boolean check over the aggregate session output.
type predicate struct {
	name string
	ok   func(s *Stage, snap *session.Snapshot) bool
}

// suggestions maps each predicate to its fixed improvement message.
var suggestions = map[string]string{
	"rec_count":            "Produce exactly the required number of recommendations.",
	"rec_unique":           "Remove duplicate destinations from the recommendation list.",
	"rec_scores_in_range":  "Clamp recommendation scores into the 0-1 range.",
	"rec_scores_ordered":   "Order recommendations by descending match score.",
	"rec_justified":        "Add a justification sentence to every recommendation.",
	"rec_enough_spots":     "Find more hidden spots for each recommended destination.",
	"img_present":          "Generate an image for the selected spot.",
	"img_ref_absolute":     "Store an absolute asset reference for the generated image.",
	"img_prompt_recorded":  "Record the synthesis prompt on the image.",
	"sty_present":          "Assemble a styling package for the selected spot.",
	"sty_camera":           "Recommend a camera in the styling package.",
	"sty_film":             "Recommend a film stock in the styling package.",
	"sty_settings":         "Fill in aperture, shutter and ISO settings.",
	"sty_prop_count":       "Keep between 2 and 4 props in the styling package.",
	"sty_angle_count":      "Keep between 3 and 5 composition angles in the styling package.",
}

var checklists = map[model.QACategory][]predicate{
	model.QARecommendations: {
		{"rec_count", func(s *Stage, snap *session.Snapshot) bool {
			return len(snap.Recommendations) == s.recCfg.Results
		}},
		{"rec_unique", func(_ *Stage, snap *session.Snapshot) bool {
			seen := make(map[string]bool)
			for _, r := range snap.Recommendations {
				if seen[r.DestinationID] {
					return false
				}
				seen[r.DestinationID] = true
			}
			return true
		}},
		{"rec_scores_in_range", func(_ *Stage, snap *session.Snapshot) bool {
			for _, r := range snap.Recommendations {
				if r.Score < 0 || r.Score > 1 {
					return false
				}
			}
			return true
		}},
		{"rec_scores_ordered", func(_ *Stage, snap *session.Snapshot) bool {
			for i := 1; i < len(snap.Recommendations); i++ {
				if snap.Recommendations[i].Score > snap.Recommendations[i-1].Score {
					return false
				}
			}
			return true
		}},
		{"rec_justified", func(_ *Stage, snap *session.Snapshot) bool {
			for _, r := range snap.Recommendations {
				if strings.TrimSpace(r.Justification) == "" {
					return false
				}
			}
			return len(snap.Recommendations) > 0
		}},
		{"rec_enough_spots", func(s *Stage, snap *session.Snapshot) bool {
			for _, r := range snap.Recommendations {
				if len(r.Spots) < s.recCfg.MinSpots {
					return false
				}
			}
			return len(snap.Recommendations) > 0
		}},
	},
	model.QAImage: {
		{"img_present", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Image != nil && snap.Image.AssetRef != ""
		}},
		{"img_ref_absolute", func(_ *Stage, snap *session.Snapshot) bool {
			if snap.Image == nil {
				return false
			}
			ref := snap.Image.AssetRef
			u, err := url.Parse(ref)
			return err == nil && (u.IsAbs() || filepath.IsAbs(ref))
		}},
		{"img_prompt_recorded", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Image != nil && strings.TrimSpace(snap.Image.Prompt) != ""
		}},
	},
	model.QAStyling: {
		{"sty_present", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Styling != nil
		}},
		{"sty_camera", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Styling != nil && snap.Styling.Camera != ""
		}},
		{"sty_film", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Styling != nil && snap.Styling.FilmStock != ""
		}},
		{"sty_settings", func(_ *Stage, snap *session.Snapshot) bool {
			if snap.Styling == nil {
				return false
			}
			st := snap.Styling.Settings
			return st.Aperture != "" && st.Shutter != "" && st.ISO != ""
		}},
		{"sty_prop_count", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Styling != nil && len(snap.Styling.Props) >= 2 && len(snap.Styling.Props) <= 4
		}},
		{"sty_angle_count", func(_ *Stage, snap *session.Snapshot) bool {
			return snap.Styling != nil && len(snap.Styling.Angles) >= 3 && len(snap.Styling.Angles) <= 5
		}},
	},
}

// Stage is the quality assurance pipeline stage.
type Stage struct {
	moderator llm.Moderator
	cfg       config.QAConfig
	recCfg    config.RecommendConfig
}

// New creates the qa stage. recCfg supplies the structural expectations the
// recommendation checklist verifies against.
func New(moderator llm.Moderator, cfg config.QAConfig, recCfg config.RecommendConfig) *Stage {
	return &Stage{moderator: moderator, cfg: cfg, recCfg: recCfg}
}

// Run evaluates the aggregate output and attaches the QAResult. A rejection
// sets rework targets so the enrichment pass knows which categories to fix.
func (s *Stage) Run(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
	result := &model.QAResult{
		Checks: make(map[model.QACategory][]model.QACheck),
		Scores: make(map[model.QACategory]float64),
	}

	allPassed := true
	var failedCats []string
	for _, cat := range []model.QACategory{model.QARecommendations, model.QAImage, model.QAStyling} {
		passed := 0
		for _, p := range checklists[cat] {
			ok := p.ok(s, snap)
			result.Checks[cat] = append(result.Checks[cat], model.QACheck{Name: p.name, Passed: ok})
			if ok {
				passed++
			} else {
				result.Suggestions = append(result.Suggestions, suggestions[p.name])
			}
		}
		score := float64(passed) / float64(len(checklists[cat]))
		result.Scores[cat] = score
		if score < s.cfg.ApproveThreshold || passed < len(checklists[cat]) {
			allPassed = false
			failedCats = append(failedCats, string(cat))
		}
	}

	verdict := s.moderate(ctx, snap)
	if verdict.Flagged {
		result.Flagged = true
		result.FlaggedCats = verdict.Categories
	}

	result.Approved = allPassed && !result.Flagged
	snap.QA = result
	if !result.Approved {
		snap.ReworkTargets = failedCats
	} else {
		snap.ReworkTargets = nil
	}

	slog.Info("QA verdict", "session", snap.SessionID, "approved", result.Approved,
		"flagged", result.Flagged, "failed_categories", failedCats)
	return pipeline.StageResult{Flags: pipeline.Flags{Approved: result.Approved}}
}

// moderate runs the moderation capability over everything the pipeline wrote.
// An unavailable moderator does not veto: the structural checklist still
// gates, and the miss is logged.
func (s *Stage) moderate(ctx context.Context, snap *session.Snapshot) llm.ModerationVerdict {
	var b strings.Builder
	for _, r := range snap.Recommendations {
		b.WriteString(r.Justification)
		b.WriteString("\n")
	}
	if snap.Image != nil {
		b.WriteString(snap.Image.Prompt)
		b.WriteString("\n")
	}
	if snap.Styling != nil {
		for _, p := range snap.Styling.Props {
			b.WriteString(p.Tip)
			b.WriteString("\n")
		}
	}

	verdict, err := s.moderator.Moderate(ctx, b.String())
	if err != nil {
		slog.Warn("Moderation unavailable, relying on checklist alone", "session", snap.SessionID, "error", err)
		return llm.ModerationVerdict{}
	}
	return verdict
}
