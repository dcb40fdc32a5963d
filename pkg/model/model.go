package model

import (
	"time"
)

// Mood is the traveler's desired emotional register.
type Mood string

const (
	MoodRomantic    Mood = "romantic"
	MoodAdventurous Mood = "adventurous"
	MoodNostalgic   Mood = "nostalgic"
	MoodPeaceful    Mood = "peaceful"
)

// Moods lists all valid moods in extraction order.
var Moods = []Mood{MoodRomantic, MoodAdventurous, MoodNostalgic, MoodPeaceful}

// Aesthetic is the traveler's visual taste.
type Aesthetic string

const (
	AestheticVintage   Aesthetic = "vintage"
	AestheticMinimal   Aesthetic = "minimal"
	AestheticCinematic Aesthetic = "cinematic"
	AestheticBohemian  Aesthetic = "bohemian"
)

// Aesthetics lists all valid aesthetics.
var Aesthetics = []Aesthetic{AestheticVintage, AestheticMinimal, AestheticCinematic, AestheticBohemian}

// Duration buckets a trip length.
type Duration string

const (
	DurationShort  Duration = "short"  // <= 3 days
	DurationMedium Duration = "medium" // 4-7 days
	DurationLong   Duration = "long"   // > 1 week
)

// Durations lists all valid duration buckets.
var Durations = []Duration{DurationShort, DurationMedium, DurationLong}

// Concept is a named aesthetic style bundle applied to recommendations
// and image generation.
type Concept string

const (
	ConceptFlaneur  Concept = "flaneur"
	ConceptFilmlog  Concept = "filmlog"
	ConceptMidnight Concept = "midnight"
)

// Concepts lists all valid concepts.
var Concepts = []Concept{ConceptFlaneur, ConceptFilmlog, ConceptMidnight}

// Season for styling lookups.
type Season string

const (
	SeasonSpring Season = "spring"
	SeasonSummer Season = "summer"
	SeasonAutumn Season = "autumn"
	SeasonWinter Season = "winter"
)

// CrowdLevel describes how busy a hidden spot tends to be.
type CrowdLevel string

const (
	CrowdQuiet    CrowdLevel = "quiet"
	CrowdModerate CrowdLevel = "moderate"
	CrowdBusy     CrowdLevel = "busy"
)

// PreferenceProfile is the structured representation of a traveler's vibe.
// Mutated only by the conversation stage; frozen afterwards.
type PreferenceProfile struct {
	Mood       Mood      `json:"mood"`
	Aesthetic  Aesthetic `json:"aesthetic"`
	Duration   Duration  `json:"duration"`
	Interests  []string  `json:"interests"`
	Concept    Concept   `json:"concept"`
	Scene      string    `json:"scene,omitempty"`  // free-text dream scene, optional
	Region     string    `json:"region,omitempty"` // region of interest, optional
	Confidence float64   `json:"confidence"`       // 0.0 - 1.0 across all fields
}

// Complete reports whether every required field has been extracted.
func (p *PreferenceProfile) Complete() bool {
	return p.Mood != "" && p.Aesthetic != "" && p.Duration != "" && len(p.Interests) > 0
}

// Destination is read-mostly reference data produced by catalog search.
type Destination struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Locality    string    `json:"locality"`
	Country     string    `json:"country"`
	Description string    `json:"description"`
	Photogenic  int       `json:"photogenic"` // 1-10
	Safety      int       `json:"safety"`     // 1-10
	Tags        []string  `json:"tags"`
	Vibes       []string  `json:"vibes"` // vibe tags matched against concept keywords
	CreatedAt   time.Time `json:"created_at,omitempty"`
}

// HiddenSpot belongs to exactly one Destination.
type HiddenSpot struct {
	ID            string     `json:"id"`
	DestinationID string     `json:"destination_id"`
	Name          string     `json:"name"`
	Lat           float64    `json:"lat"`
	Lon           float64    `json:"lon"`
	PhotoTips     []string   `json:"photo_tips"`
	Crowd         CrowdLevel `json:"crowd"`
	BestVisitTime string     `json:"best_visit_time"` // e.g. "golden hour", "blue hour", "early morning"

	// Sub-scores, each normalized 0-1.
	Authenticity  float64 `json:"authenticity"`
	Photogenic    float64 `json:"photogenic"`
	Accessibility float64 `json:"accessibility"`
	Safety        float64 `json:"safety"`

	Score float64 `json:"score"` // composite hidden score, filled by the recommender
}

// Recommendation links a profile to a destination with a match score.
type Recommendation struct {
	DestinationID string       `json:"destination_id"`
	Destination   *Destination `json:"destination"`
	Score         float64      `json:"score"` // 0-1
	Justification string       `json:"justification"`
	Spots         []HiddenSpot `json:"spots"`
}

// AttemptFailure records why a single synthesis attempt failed.
type AttemptFailure struct {
	Attempt int    `json:"attempt"`
	Reason  string `json:"reason"`
}

// GeneratedImage is the output of the image generation stage.
// Never mutated after QA approval; a rejected image is replaced, not edited.
type GeneratedImage struct {
	ID            string           `json:"id"`
	SessionID     string           `json:"session_id"`
	SpotID        string           `json:"spot_id"`
	Prompt        string           `json:"prompt"`         // final prompt sent (post-sanitization if any)
	RevisedPrompt string           `json:"revised_prompt"` // provider-revised prompt, if returned
	AssetRef      string           `json:"asset_ref"`
	Width         int              `json:"width,omitempty"`
	Height        int              `json:"height,omitempty"`
	Attempts      int              `json:"attempts"`
	Failures      []AttemptFailure `json:"failures,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// OutfitSuggestion is a palette plus seasonal modifiers.
type OutfitSuggestion struct {
	Palette  []string `json:"palette"`
	Seasonal []string `json:"seasonal"`
	Fabrics  []string `json:"fabrics,omitempty"`
}

// CameraSettings as presented to the user.
type CameraSettings struct {
	Aperture string `json:"aperture"`
	Shutter  string `json:"shutter"`
	ISO      string `json:"iso"`
}

// Prop is a styling prop with an optional sourcing tip.
type Prop struct {
	Name string `json:"name"`
	Tip  string `json:"tip,omitempty"`
}

// StylingPackage is a value object produced once per (spot, concept, season).
type StylingPackage struct {
	Camera    string           `json:"camera"`
	FilmStock string           `json:"film_stock"`
	Settings  CameraSettings   `json:"settings"`
	Outfit    OutfitSuggestion `json:"outfit"`
	Props     []Prop           `json:"props"`  // 2-4
	Angles    []string         `json:"angles"` // 3-5
}

// QACategory identifies one checklist group.
type QACategory string

const (
	QARecommendations QACategory = "recommendations"
	QAImage           QACategory = "image"
	QAStyling         QACategory = "styling"
)

// QACheck is one predicate outcome.
type QACheck struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
}

// QAResult is ephemeral: produced and consumed within one supervisor cycle.
type QAResult struct {
	Checks      map[QACategory][]QACheck `json:"checks"`
	Scores      map[QACategory]float64   `json:"scores"` // fraction of checks passed
	Flagged     bool                     `json:"flagged"`
	FlaggedCats []string                 `json:"flagged_categories,omitempty"`
	Approved    bool                     `json:"approved"`
	Suggestions []string                 `json:"suggestions,omitempty"`
}

// ResponseBundle is handed to the presentation collaborator.
type ResponseBundle struct {
	Status          string           `json:"status"` // "complete" or "failed"
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	Image           *GeneratedImage  `json:"generated_image,omitempty"`
	Styling         *StylingPackage  `json:"styling_package,omitempty"`
	IsFallback      bool             `json:"is_fallback,omitempty"`
	ErrorCode       string           `json:"error_code,omitempty"`
	LastStage       string           `json:"last_stage,omitempty"`
}

// Checkpoint is a durable snapshot of a pipeline session after an advance.
// Seq increases by one per applied advance, so replaying an already applied
// sequence number is detectable.
type Checkpoint struct {
	SessionID string    `json:"session_id"`
	Seq       int       `json:"seq"`
	State     string    `json:"state"`
	Snapshot  []byte    `json:"snapshot"` // JSON-encoded session snapshot
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ParseMood returns the mood for s, or false if s is not a valid mood.
func ParseMood(s string) (Mood, bool) {
	for _, m := range Moods {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// ParseAesthetic returns the aesthetic for s.
func ParseAesthetic(s string) (Aesthetic, bool) {
	for _, a := range Aesthetics {
		if string(a) == s {
			return a, true
		}
	}
	return "", false
}

// ParseDuration returns the duration bucket for s.
func ParseDuration(s string) (Duration, bool) {
	for _, d := range Durations {
		if string(d) == s {
			return d, true
		}
	}
	return "", false
}

// ConceptFor derives the style concept from aesthetic and mood.
// Vintage tastes map to filmlog, night-leaning moods to midnight,
// everything else to flaneur.
func ConceptFor(a Aesthetic, m Mood) Concept {
	switch {
	case a == AestheticVintage || a == AestheticCinematic:
		return ConceptFilmlog
	case m == MoodRomantic && a == AestheticBohemian:
		return ConceptMidnight
	default:
		return ConceptFlaneur
	}
}
