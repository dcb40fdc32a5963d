package session

import (
	"encoding/json"
	"time"

	"tripkit/pkg/model"
)

// Message is one conversational exchange turn.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// Snapshot is the full state of one pipeline session. Advances never mutate a
// snapshot in place; each applied advance produces a new snapshot via Clone,
// so a failed stage leaves the previous state untouched.
type Snapshot struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Seq       int    `json:"seq"`

	// Conversation
	Messages   []Message                `json:"messages,omitempty"`
	Exchanges  int                      `json:"exchanges"`
	Profile    *model.PreferenceProfile `json:"profile,omitempty"`
	Exclusions []string                 `json:"exclusions,omitempty"`
	ReAsked    map[string]bool          `json:"re_asked,omitempty"` // preference fields already re-asked

	// Stage outputs
	Recommendations []model.Recommendation `json:"recommendations,omitempty"`
	Image           *model.GeneratedImage  `json:"image,omitempty"`
	Styling         *model.StylingPackage  `json:"styling,omitempty"`
	QA              *model.QAResult        `json:"qa,omitempty"`

	// Budgets and flags
	ImageAttempts int            `json:"image_attempts"`
	StageRetries  map[string]int `json:"stage_retries,omitempty"`
	ReworkCount   int            `json:"rework_count"`
	ReworkTargets []string       `json:"rework_targets,omitempty"` // QA categories flagged for rework
	IsFallback    bool           `json:"is_fallback,omitempty"`
	ErrorCode     string         `json:"error_code,omitempty"`
	FailedStage   string         `json:"failed_stage,omitempty"`
	FatalError    bool           `json:"fatal_error,omitempty"`
	Approved      bool           `json:"approved,omitempty"`
	IsComplete    bool           `json:"is_complete,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSnapshot creates an initial snapshot for a session.
func NewSnapshot(sessionID, state string) *Snapshot {
	now := time.Now()
	return &Snapshot{
		SessionID: sessionID,
		State:     state,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy. Slices and maps are copied so stage functions can
// append or set freely on the clone.
func (s *Snapshot) Clone() *Snapshot {
	c := *s

	c.Messages = append([]Message(nil), s.Messages...)
	c.Exclusions = append([]string(nil), s.Exclusions...)
	c.ReworkTargets = append([]string(nil), s.ReworkTargets...)
	c.Recommendations = append([]model.Recommendation(nil), s.Recommendations...)

	if s.ReAsked != nil {
		c.ReAsked = make(map[string]bool, len(s.ReAsked))
		for k, v := range s.ReAsked {
			c.ReAsked[k] = v
		}
	}
	if s.StageRetries != nil {
		c.StageRetries = make(map[string]int, len(s.StageRetries))
		for k, v := range s.StageRetries {
			c.StageRetries[k] = v
		}
	}
	if s.Profile != nil {
		p := *s.Profile
		p.Interests = append([]string(nil), s.Profile.Interests...)
		c.Profile = &p
	}
	if s.Image != nil {
		img := *s.Image
		img.Failures = append([]model.AttemptFailure(nil), s.Image.Failures...)
		c.Image = &img
	}
	if s.Styling != nil {
		st := *s.Styling
		st.Props = append([]model.Prop(nil), s.Styling.Props...)
		st.Angles = append([]string(nil), s.Styling.Angles...)
		c.Styling = &st
	}
	if s.QA != nil {
		qa := *s.QA
		if s.QA.Checks != nil {
			qa.Checks = make(map[model.QACategory][]model.QACheck, len(s.QA.Checks))
			for k, v := range s.QA.Checks {
				qa.Checks[k] = append([]model.QACheck(nil), v...)
			}
		}
		if s.QA.Scores != nil {
			qa.Scores = make(map[model.QACategory]float64, len(s.QA.Scores))
			for k, v := range s.QA.Scores {
				qa.Scores[k] = v
			}
		}
		qa.FlaggedCats = append([]string(nil), s.QA.FlaggedCats...)
		qa.Suggestions = append([]string(nil), s.QA.Suggestions...)
		c.QA = &qa
	}

	return &c
}

// Marshal encodes the snapshot for checkpointing.
func (s *Snapshot) Marshal() ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal decodes a checkpointed snapshot.
func Unmarshal(data []byte) (*Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Checkpoint converts the snapshot into its durable form.
func (s *Snapshot) Checkpoint() (*model.Checkpoint, error) {
	data, err := s.Marshal()
	if err != nil {
		return nil, err
	}
	return &model.Checkpoint{
		SessionID: s.SessionID,
		Seq:       s.Seq,
		State:     s.State,
		Snapshot:  data,
	}, nil
}

// Bundle assembles the client-facing result for a finished session.
func (s *Snapshot) Bundle() model.ResponseBundle {
	b := model.ResponseBundle{
		Recommendations: s.Recommendations,
		Image:           s.Image,
		Styling:         s.Styling,
		IsFallback:      s.IsFallback,
		LastStage:       s.FailedStage,
	}
	switch {
	case s.IsComplete:
		b.Status = "complete"
	case s.FatalError:
		b.Status = "failed"
		b.ErrorCode = s.ErrorCode
	default:
		b.Status = "in_progress"
	}
	return b
}
