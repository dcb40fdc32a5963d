// Package conversation turns a running dialogue into a structured preference
// profile. One field is extracted per user turn along a fixed question
// sequence; unparseable answers are re-asked once and then defaulted, so the
// stage never reports a fatal error to the supervisor.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"tripkit/pkg/config"
	"tripkit/pkg/llm"
	"tripkit/pkg/model"
	"tripkit/pkg/pipeline"
	"tripkit/pkg/session"
)

const intentExtract = "extraction"

type field string

const (
	fieldMood      field = "mood"
	fieldAesthetic field = "aesthetic"
	fieldDuration  field = "duration"
	fieldInterests field = "interests"
	fieldConfirm   field = "confirmation"
)

// questions are asked verbatim when the model does not supply a follow-up.
var questions = map[field]string{
	fieldMood:      "What mood are you chasing on this trip: romantic, adventurous, nostalgic, or peaceful?",
	fieldAesthetic: "Which visual style speaks to you: vintage, minimal, cinematic, or bohemian?",
	fieldDuration:  "How long do you want to be away: a short escape, about a week, or longer?",
	fieldInterests: "What do you want to spend your days on? Photography, food, hiking, anything goes.",
	fieldConfirm:   "I think I have your vibe. Shall I go find your spots?",
}

var reAskQuestions = map[field]string{
	fieldMood:      "I didn't quite catch the mood. Would you say romantic, adventurous, nostalgic, or peaceful?",
	fieldAesthetic: "Help me narrow the look: vintage, minimal, cinematic, or bohemian?",
	fieldDuration:  "Roughly how many days are we planning for?",
	fieldInterests: "Name one or two things you'd love to do there.",
}

// moodKeywords map loose phrasing onto the mood enum when structured
// extraction fails or disagrees with the enum.
var moodKeywords = map[model.Mood][]string{
	model.MoodRomantic:    {"romantic", "romance", "honeymoon", "dreamy", "love"},
	model.MoodAdventurous: {"adventur", "thrill", "hike", "wild", "explore"},
	model.MoodNostalgic:   {"nostalg", "memory", "childhood", "old times", "retro"},
	model.MoodPeaceful:    {"peaceful", "calm", "quiet", "slow", "relax", "unwind"},
}

var aestheticKeywords = map[model.Aesthetic][]string{
	model.AestheticVintage:   {"vintage", "film", "analog", "retro", "old"},
	model.AestheticMinimal:   {"minimal", "clean", "simple", "modern"},
	model.AestheticCinematic: {"cinematic", "movie", "dramatic", "moody"},
	model.AestheticBohemian:  {"bohemian", "boho", "artsy", "eclectic", "free"},
}

var durationKeywords = map[model.Duration][]string{
	model.DurationShort:  {"weekend", "short", "quick", "few days", "2 days", "3 days"},
	model.DurationMedium: {"week", "medium", "5 days", "7 days"},
	model.DurationLong:   {"long", "two weeks", "month", "extended", "sabbatical"},
}

// extraction is the structured response the model returns for one turn.
type extraction struct {
	Value      string   `json:"value"`
	Interests  []string `json:"interests,omitempty"`
	Confidence float64  `json:"confidence"`
	Question   string   `json:"next_question,omitempty"`
	Confirmed  bool     `json:"confirmed,omitempty"`
}

// Stage is the conversation/extraction pipeline stage.
type Stage struct {
	provider llm.Provider
	cfg      config.ConversationConfig
}

// New creates the conversation stage.
func New(provider llm.Provider, cfg config.ConversationConfig) *Stage {
	return &Stage{provider: provider, cfg: cfg}
}

// Run processes the latest user message on the snapshot clone.
func (s *Stage) Run(ctx context.Context, snap *session.Snapshot) pipeline.StageResult {
	if snap.Profile == nil {
		snap.Profile = &model.PreferenceProfile{}
	}
	if snap.ReAsked == nil {
		snap.ReAsked = make(map[string]bool)
	}

	userMsg := lastUserMessage(snap.Messages)
	if userMsg == "" {
		s.ask(snap, questions[fieldMood])
		return pipeline.StageResult{}
	}
	snap.Exchanges++
	if snap.Profile.Scene == "" {
		snap.Profile.Scene = userMsg
	}

	f := nextField(snap.Profile)

	ex, err := s.extract(ctx, f, snap.Messages, userMsg)
	if err != nil {
		slog.Debug("Extraction fell back to keywords", "field", f, "error", err)
		ex = keywordExtract(f, userMsg)
	}

	if f == fieldConfirm {
		if ex.Confirmed || isAffirmative(userMsg) {
			s.complete(snap)
			return pipeline.StageResult{Flags: pipeline.Flags{IsComplete: true}}
		}
		// Declined: let the traveler redirect, budget permitting.
		s.ask(snap, "No problem. What should we change?")
		return s.maybeForceComplete(snap)
	}

	applied := s.apply(snap.Profile, f, ex)
	if !applied {
		if !snap.ReAsked[string(f)] {
			snap.ReAsked[string(f)] = true
			s.ask(snap, reAskQuestions[f])
			return s.maybeForceComplete(snap)
		}
		s.applyDefault(snap.Profile, f)
	}

	if done := s.maybeForceComplete(snap); done.Flags.IsComplete {
		return done
	}

	if snap.Profile.Complete() && snap.Profile.Confidence >= s.cfg.ConfidenceThreshold {
		next := nextField(snap.Profile)
		if next == fieldConfirm && !snap.ReAsked["confirmation_asked"] {
			snap.ReAsked["confirmation_asked"] = true
			s.ask(snap, pickQuestion(ex.Question, questions[fieldConfirm]))
			return pipeline.StageResult{}
		}
	}

	s.ask(snap, pickQuestion(ex.Question, questions[nextField(snap.Profile)]))
	return pipeline.StageResult{}
}

// extract asks the model to pull one field out of the dialogue. A malformed
// structured response is re-prompted once before giving up.
func (s *Stage) extract(ctx context.Context, f field, history []session.Message, userMsg string) (extraction, error) {
	prompt := buildExtractionPrompt(f, history, userMsg)

	var ex extraction
	err := s.provider.GenerateJSON(ctx, intentExtract, prompt, &ex)
	var ve *llm.ValidationError
	if errors.As(err, &ve) {
		err = s.provider.GenerateJSON(ctx, intentExtract, prompt, &ex)
	}
	if err != nil {
		return extraction{}, err
	}
	return ex, nil
}

func buildExtractionPrompt(f field, history []session.Message, userMsg string) string {
	var b strings.Builder
	b.WriteString("You are a travel concierge eliciting a traveler's vibe.\n")
	fmt.Fprintf(&b, "Extract the %q field from the latest answer and ask exactly one next question.\n", f)
	switch f {
	case fieldMood:
		b.WriteString("Valid values: romantic, adventurous, nostalgic, peaceful.\n")
	case fieldAesthetic:
		b.WriteString("Valid values: vintage, minimal, cinematic, bohemian.\n")
	case fieldDuration:
		b.WriteString("Valid values: short, medium, long.\n")
	case fieldInterests:
		b.WriteString("Return the interests as a JSON string array.\n")
	case fieldConfirm:
		b.WriteString("Decide whether the traveler confirmed the summary. Set \"confirmed\".\n")
	}
	b.WriteString(`Respond with JSON only: {"value": "...", "interests": [], "confidence": 0.0, "next_question": "...", "confirmed": false}` + "\n\n")

	b.WriteString("Conversation so far:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&b, "\nLatest answer: %s\n", userMsg)
	return b.String()
}

// keywordExtract is the provider-free fallback: scan the answer for enum
// keywords so a flaky model never stalls the conversation.
func keywordExtract(f field, msg string) extraction {
	low := strings.ToLower(msg)
	match := func(keywords map[string][]string) string {
		for value, words := range keywords {
			for _, w := range words {
				if strings.Contains(low, w) {
					return value
				}
			}
		}
		return ""
	}

	switch f {
	case fieldMood:
		kw := make(map[string][]string, len(moodKeywords))
		for k, v := range moodKeywords {
			kw[string(k)] = v
		}
		return extraction{Value: match(kw), Confidence: 0.6}
	case fieldAesthetic:
		kw := make(map[string][]string, len(aestheticKeywords))
		for k, v := range aestheticKeywords {
			kw[string(k)] = v
		}
		return extraction{Value: match(kw), Confidence: 0.6}
	case fieldDuration:
		kw := make(map[string][]string, len(durationKeywords))
		for k, v := range durationKeywords {
			kw[string(k)] = v
		}
		return extraction{Value: match(kw), Confidence: 0.6}
	case fieldInterests:
		var interests []string
		for _, part := range strings.FieldsFunc(msg, func(r rune) bool { return r == ',' || r == ';' }) {
			if p := strings.TrimSpace(part); p != "" {
				interests = append(interests, strings.ToLower(p))
			}
		}
		return extraction{Interests: interests, Confidence: 0.5}
	case fieldConfirm:
		return extraction{Confirmed: isAffirmative(msg)}
	}
	return extraction{}
}

// apply writes the extracted value into the profile. Returns false when the
// value does not parse into the field's enum.
func (s *Stage) apply(p *model.PreferenceProfile, f field, ex extraction) bool {
	switch f {
	case fieldMood:
		m, ok := model.ParseMood(strings.ToLower(ex.Value))
		if !ok {
			return false
		}
		p.Mood = m
	case fieldAesthetic:
		a, ok := model.ParseAesthetic(strings.ToLower(ex.Value))
		if !ok {
			return false
		}
		p.Aesthetic = a
	case fieldDuration:
		d, ok := model.ParseDuration(strings.ToLower(ex.Value))
		if !ok {
			return false
		}
		p.Duration = d
	case fieldInterests:
		if len(ex.Interests) == 0 {
			return false
		}
		p.Interests = ex.Interests
	default:
		return false
	}
	mergeConfidence(p, ex.Confidence)
	return true
}

// applyDefault fills the fallback bucket after a failed re-ask.
func (s *Stage) applyDefault(p *model.PreferenceProfile, f field) {
	switch f {
	case fieldMood:
		p.Mood = model.MoodPeaceful
	case fieldAesthetic:
		p.Aesthetic = model.AestheticCinematic
	case fieldDuration:
		p.Duration = model.DurationMedium
	case fieldInterests:
		p.Interests = []string{"photography"}
	}
	mergeConfidence(p, 0.5)
}

// mergeConfidence keeps the weakest per-field confidence as the profile-wide
// score, so the completion threshold means "across all fields".
func mergeConfidence(p *model.PreferenceProfile, c float64) {
	if c <= 0 {
		c = 0.5
	}
	if c > 1 {
		c = 1
	}
	if p.Confidence == 0 || c < p.Confidence {
		p.Confidence = c
	}
}

// maybeForceComplete ends the dialogue at the exchange cap, defaulting any
// still-missing fields.
func (s *Stage) maybeForceComplete(snap *session.Snapshot) pipeline.StageResult {
	if snap.Exchanges < s.cfg.MaxExchanges {
		return pipeline.StageResult{}
	}
	for _, f := range []field{fieldMood, fieldAesthetic, fieldDuration, fieldInterests} {
		if fieldEmpty(snap.Profile, f) {
			s.applyDefault(snap.Profile, f)
		}
	}
	s.complete(snap)
	return pipeline.StageResult{Flags: pipeline.Flags{IsComplete: true}}
}

func (s *Stage) complete(snap *session.Snapshot) {
	p := snap.Profile
	p.Concept = model.ConceptFor(p.Aesthetic, p.Mood)
	s.ask(snap, "Wonderful. Give me a moment to scout some places for you.")
	slog.Info("Profile extracted",
		"session", snap.SessionID,
		"mood", p.Mood, "aesthetic", p.Aesthetic,
		"duration", p.Duration, "concept", p.Concept,
		"confidence", p.Confidence)
}

func (s *Stage) ask(snap *session.Snapshot, q string) {
	snap.Messages = append(snap.Messages, session.Message{Role: "assistant", Content: q})
}

func nextField(p *model.PreferenceProfile) field {
	switch {
	case p.Mood == "":
		return fieldMood
	case p.Aesthetic == "":
		return fieldAesthetic
	case p.Duration == "":
		return fieldDuration
	case len(p.Interests) == 0:
		return fieldInterests
	default:
		return fieldConfirm
	}
}

func fieldEmpty(p *model.PreferenceProfile, f field) bool {
	switch f {
	case fieldMood:
		return p.Mood == ""
	case fieldAesthetic:
		return p.Aesthetic == ""
	case fieldDuration:
		return p.Duration == ""
	case fieldInterests:
		return len(p.Interests) == 0
	}
	return false
}

func lastUserMessage(msgs []session.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content
		}
	}
	return ""
}

func isAffirmative(msg string) bool {
	low := strings.ToLower(msg)
	for _, w := range []string{"yes", "yeah", "yep", "sure", "sounds good", "go ahead", "let's go", "please", "perfect", "ok"} {
		if strings.Contains(low, w) {
			return true
		}
	}
	return false
}

func pickQuestion(fromModel, fallback string) string {
	if strings.TrimSpace(fromModel) != "" {
		return fromModel
	}
	return fallback
}
