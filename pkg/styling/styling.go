// Package styling is the content enrichment stage: deterministic lookup
// tables keyed by concept and season, plus bounded model elaboration for prop
// sourcing tips. The stage never blocks the pipeline; if elaboration fails it
// simply ships the lookup values.
package styling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tripkit/pkg/llm"
	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
)

const intentEnrich = "enrichment"

var cameraByConcept = map[model.Concept]string{
	model.ConceptFlaneur:  "Leica M6 rangefinder",
	model.ConceptFilmlog:  "Canon AE-1 SLR",
	model.ConceptMidnight: "Contax T2 compact",
}

// filmByConcept matches the presets the image stage prompts with.
var filmByConcept = map[model.Concept]string{
	model.ConceptFlaneur:  "Kodak Portra 400",
	model.ConceptFilmlog:  "Fujifilm Superia 400",
	model.ConceptMidnight: "CineStill 800T",
}

var settingsByConcept = map[model.Concept]model.CameraSettings{
	model.ConceptFlaneur:  {Aperture: "f/5.6", Shutter: "1/250s", ISO: "400"},
	model.ConceptFilmlog:  {Aperture: "f/8", Shutter: "1/125s", ISO: "200-400"},
	model.ConceptMidnight: {Aperture: "f/2", Shutter: "1/60s", ISO: "800"},
}

var paletteByConcept = map[model.Concept][]string{
	model.ConceptFlaneur:  {"cream", "camel", "navy"},
	model.ConceptFilmlog:  {"mustard", "olive", "rust"},
	model.ConceptMidnight: {"charcoal", "deep blue", "silver"},
}

var seasonalColors = map[model.Season][]string{
	model.SeasonSpring: {"sage", "blush"},
	model.SeasonSummer: {"white", "sand"},
	model.SeasonAutumn: {"burgundy", "amber"},
	model.SeasonWinter: {"forest green", "ivory"},
}

var seasonalFabrics = map[model.Season][]string{
	model.SeasonSpring: {"light cotton", "denim"},
	model.SeasonSummer: {"linen", "seersucker"},
	model.SeasonAutumn: {"corduroy", "wool blend"},
	model.SeasonWinter: {"heavy wool", "cashmere"},
}

var propsByConcept = map[model.Concept][]string{
	model.ConceptFlaneur:  {"paperback novel", "espresso cup", "canvas tote"},
	model.ConceptFilmlog:  {"instant camera", "handwritten postcard", "film canister"},
	model.ConceptMidnight: {"vintage lighter", "pocket notebook", "silk scarf"},
}

var anglesByConcept = map[model.Concept][]string{
	model.ConceptFlaneur: {
		"across-the-street candid at eye level",
		"over-the-shoulder walking shot",
		"reflection in a shop window",
		"high vantage from a cafe balcony",
	},
	model.ConceptFilmlog: {
		"centered symmetry facing the facade",
		"waist-level shot looking up",
		"detail close-up of hands and prop",
		"wide establishing shot with negative space",
	},
	model.ConceptMidnight: {
		"low angle with wet-street reflections",
		"silhouette against a lit doorway",
		"through-glass shot with neon bokeh",
		"profile lit by a single street lamp",
	},
}

// Stage is the content enrichment pipeline stage.
type Stage struct {
	provider llm.Provider
	now      func() time.Time
}

// New creates the enrichment stage.
func New(provider llm.Provider) *Stage {
	return &Stage{provider: provider, now: time.Now}
}

// Run assembles the styling package for the session's top spot. Rework passes
// from qa land here too and rebuild the package from the same tables.
func (s *Stage) Run(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
	if snap.Profile == nil || len(snap.Recommendations) == 0 || len(snap.Recommendations[0].Spots) == 0 {
		return pipeline.StageResult{
			Flags:     pipeline.Flags{FatalError: true},
			ErrorCode: pipeline.CodeInternalError,
			Reason:    "enrichment invoked without recommendations",
		}
	}

	concept := snap.Profile.Concept
	spot := &snap.Recommendations[0].Spots[0]
	season := SeasonOf(s.now())

	pkg := Build(spot, concept, season)
	s.elaborateProps(ctx, spot, pkg.Props)

	snap.Styling = pkg
	slog.Info("Styling package assembled", "session", snap.SessionID, "concept", concept, "season", season)
	return pipeline.StageResult{}
}

// Build produces the deterministic part of the styling package.
func Build(spot *model.HiddenSpot, concept model.Concept, season model.Season) *model.StylingPackage {
	props := make([]model.Prop, 0, len(propsByConcept[concept]))
	for _, name := range propsByConcept[concept] {
		props = append(props, model.Prop{Name: name})
	}

	angles := append([]string(nil), anglesByConcept[concept]...)
	if len(spot.PhotoTips) > 0 && len(angles) < 5 {
		angles = append(angles, spot.PhotoTips[0])
	}

	return &model.StylingPackage{
		Camera:    cameraByConcept[concept],
		FilmStock: filmByConcept[concept],
		Settings:  settingsByConcept[concept],
		Outfit: model.OutfitSuggestion{
			Palette:  append([]string(nil), paletteByConcept[concept]...),
			Seasonal: append([]string(nil), seasonalColors[season]...),
			Fabrics:  append([]string(nil), seasonalFabrics[season]...),
		},
		Props:  props,
		Angles: angles,
	}
}

// elaborateProps fills sourcing tips concurrently. Each prop gets one
// completion call plus a single retry on transient failure; anything worse
// leaves the tip empty.
func (s *Stage) elaborateProps(ctx context.Context, spot *model.HiddenSpot, props []model.Prop) {
	var wg sync.WaitGroup
	for i := range props {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tip, err := s.elaborate(ctx, spot, props[i].Name)
			if err != nil {
				slog.Debug("Prop elaboration skipped", "prop", props[i].Name, "error", err)
				return
			}
			props[i].Tip = tip
		}(i)
	}
	wg.Wait()
}

func (s *Stage) elaborate(ctx context.Context, spot *model.HiddenSpot, prop string) (string, error) {
	prompt := fmt.Sprintf(
		"In one short sentence, tell a traveler where to source %q for a photo shoot near %s. Plain text, no preamble.",
		prop, spot.Name)

	tip, err := s.provider.GenerateText(ctx, intentEnrich, prompt)
	if err != nil && llm.IsTransient(err) {
		tip, err = s.provider.GenerateText(ctx, intentEnrich, prompt)
	}
	if err != nil {
		return "", err
	}
	return tip, nil
}

// SeasonOf buckets a timestamp into the northern-hemisphere season.
func SeasonOf(t time.Time) model.Season {
	switch t.Month() {
	case time.March, time.April, time.May:
		return model.SeasonSpring
	case time.June, time.July, time.August:
		return model.SeasonSummer
	case time.September, time.October, time.November:
		return model.SeasonAutumn
	default:
		return model.SeasonWinter
	}
}
