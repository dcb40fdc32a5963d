package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"tripkit/pkg/config"
	"tripkit/pkg/session"
	"tripkit/pkg/store"
)

// StageResult is what a stage hands back after running over its snapshot
// clone. The clone itself carries the stage's data delta; the result carries
// only routing signals.
type StageResult struct {
	Flags     Flags
	Retry     bool   // non-fatal failure, retry the same stage within budget
	ErrorCode string // stable code, set when FatalError or Retry exhaustion applies
	Reason    string // human-readable failure reason for the log
}

// StageFunc executes one pipeline stage. It receives a deep clone of the
// session snapshot and may mutate it freely; the supervisor installs the
// clone only if the advance succeeds.
type StageFunc func(ctx context.Context, snap *session.Snapshot) StageResult

// Event is one stage transition, emitted for the progress stream.
type Event struct {
	SessionID string    `json:"session_id"`
	From      State     `json:"from"`
	To        State     `json:"to"`
	Seq       int       `json:"seq"`
	At        time.Time `json:"at"`
}

// Supervisor owns the canonical workflow state for all sessions, decides the
// next stage through a closed routing table, and persists a checkpoint after
// every applied advance.
type Supervisor struct {
	registry    *session.Registry
	checkpoints store.CheckpointStore
	routes      map[RouteKey]State

	mu     sync.RWMutex
	stages map[State]StageFunc
	onEvt  []func(Event)

	stageRetries int
	reworkBudget int
}

// New creates a Supervisor. The routing table is built and checked here so a
// malformed table fails construction, not a live session.
func New(reg *session.Registry, cps store.CheckpointStore, cfg config.PipelineConfig) (*Supervisor, error) {
	routes := buildRoutingTable()
	if err := ValidateRoutingTable(routes); err != nil {
		return nil, err
	}
	return &Supervisor{
		registry:     reg,
		checkpoints:  cps,
		routes:       routes,
		stages:       make(map[State]StageFunc),
		stageRetries: cfg.StageRetries,
		reworkBudget: cfg.ReworkBudget,
	}, nil
}

// Register installs the runner for one stage. Stages register themselves
// during wiring in main.
func (s *Supervisor) Register(st State, fn StageFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stages[st] = fn
}

// OnTransition subscribes fn to stage-transition events. Callbacks run
// synchronously on the advancing goroutine and must not block.
func (s *Supervisor) OnTransition(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvt = append(s.onEvt, fn)
}

func (s *Supervisor) emit(evt Event) {
	s.mu.RLock()
	subs := s.onEvt
	s.mu.RUnlock()
	for _, fn := range subs {
		fn(evt)
	}
}

// Start creates a fresh session snapshot in the init state and checkpoints
// it. Starting an already-known session returns its current snapshot.
func (s *Supervisor) Start(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	h := s.registry.Lock(sessionID)
	defer h.Unlock()

	if snap := h.Snapshot(); snap != nil {
		return snap, nil
	}

	snap := session.NewSnapshot(sessionID, string(StateInit))
	if err := s.saveCheckpoint(ctx, snap); err != nil {
		return nil, err
	}
	h.Replace(snap)
	slog.Debug("Session started", "session", sessionID)
	return snap, nil
}

// Advance applies an externally produced stage output: clone must derive from
// the session's current snapshot. Replaying an output whose sequence number
// is already applied is a no-op returning the current state, so retried
// deliveries are harmless.
func (s *Supervisor) Advance(ctx context.Context, clone *session.Snapshot, res StageResult) (*session.Snapshot, error) {
	h := s.registry.Lock(clone.SessionID)
	defer h.Unlock()
	return s.advanceLocked(ctx, h, clone, res)
}

func (s *Supervisor) advanceLocked(ctx context.Context, h *session.Handle, clone *session.Snapshot, res StageResult) (*session.Snapshot, error) {
	// Cancellation is honored only here, between stages. An in-flight
	// provider call finished before we got the clone; its result is simply
	// not applied.
	if err := ctx.Err(); err != nil {
		return h.Snapshot(), err
	}

	cur := h.Snapshot()
	if cur == nil {
		return nil, fmt.Errorf("advance on unknown session %s", clone.SessionID)
	}
	if clone.Seq < cur.Seq {
		// Already applied.
		return cur, nil
	}
	if clone.Seq > cur.Seq {
		return nil, fmt.Errorf("advance from future seq %d (current %d) on session %s", clone.Seq, cur.Seq, clone.SessionID)
	}

	from := State(cur.State)
	if Terminal(from) {
		return cur, nil
	}

	next, err := s.routeResult(from, clone, &res)
	if err != nil {
		return nil, err
	}

	clone.Seq++
	clone.State = string(next)
	clone.UpdatedAt = time.Now()
	clone.IsComplete = next == StateComplete
	clone.FatalError = next == StateFailed
	if clone.FatalError {
		clone.FailedStage = string(from)
		if clone.ErrorCode == "" {
			clone.ErrorCode = CodeInternalError
		}
		slog.Warn("Session failed", "session", clone.SessionID, "stage", from, "code", clone.ErrorCode, "reason", res.Reason)
	}

	if err := s.saveCheckpoint(ctx, clone); err != nil {
		return nil, err
	}
	h.Replace(clone)

	slog.Debug("Stage transition", "session", clone.SessionID, "from", from, "to", next, "seq", clone.Seq)
	s.emit(Event{SessionID: clone.SessionID, From: from, To: next, Seq: clone.Seq, At: clone.UpdatedAt})
	return clone, nil
}

// routeResult applies budget policy on top of the pure routing table lookup.
func (s *Supervisor) routeResult(from State, clone *session.Snapshot, res *StageResult) (State, error) {
	flags := res.Flags

	if res.Retry && !flags.FatalError {
		budget := s.stageRetries
		used := clone.StageRetries[string(from)]
		if used >= budget {
			flags.FatalError = true
			if res.ErrorCode == "" {
				res.ErrorCode = CodeStageRetryExhausted
			}
		} else {
			if clone.StageRetries == nil {
				clone.StageRetries = make(map[string]int)
			}
			clone.StageRetries[string(from)] = used + 1
			clone.ErrorCode = ""
			// Same stage again; the table has no self-edges outside
			// conversation, so the retry bypasses it.
			return from, nil
		}
	}

	if from == StateQA && !flags.Approved && !flags.FatalError {
		if clone.ReworkCount >= s.reworkBudget {
			flags.FatalError = true
			res.ErrorCode = CodeReworkBudgetExhausted
			res.Reason = (&BudgetExceededError{Stage: "rework", Budget: s.reworkBudget}).Error()
		} else {
			clone.ReworkCount++
		}
	}

	if flags.FatalError {
		clone.ErrorCode = res.ErrorCode
	}

	key := RouteKey{State: from, Flags: flags}
	next, ok := s.routes[key]
	if !ok {
		return "", &RoutingError{Key: key}
	}
	return next, nil
}

func (s *Supervisor) saveCheckpoint(ctx context.Context, snap *session.Snapshot) error {
	cp, err := snap.Checkpoint()
	if err != nil {
		return &PersistenceError{Op: "encode checkpoint", Err: err}
	}
	if err := s.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
		return &PersistenceError{Op: "save checkpoint", Err: err}
	}
	return nil
}

// Step runs the registered stage for the session's current state and applies
// its output. Returns the new snapshot.
func (s *Supervisor) Step(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	h := s.registry.Lock(sessionID)
	defer h.Unlock()

	cur := h.Snapshot()
	if cur == nil {
		var err error
		cur, err = s.resumeLocked(ctx, h, sessionID)
		if err != nil {
			return nil, err
		}
	}
	st := State(cur.State)
	if Terminal(st) {
		return cur, nil
	}

	s.mu.RLock()
	fn, ok := s.stages[st]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no stage registered for state %s", st)
	}

	clone := cur.Clone()
	res := fn(ctx, clone)
	return s.advanceLocked(ctx, h, clone, res)
}

// Run drives the session until it reaches a terminal state or parks in
// conversation waiting for the next user message.
func (s *Supervisor) Run(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	for {
		snap, err := s.Step(ctx, sessionID)
		if err != nil {
			return snap, err
		}
		st := State(snap.State)
		if Terminal(st) || st == StateConversation {
			return snap, nil
		}
	}
}

// HandleMessage records one user message and runs the conversation stage
// over it, creating or resuming the session as needed. The whole exchange
// happens under the session lease so concurrent messages serialize.
func (s *Supervisor) HandleMessage(ctx context.Context, sessionID, text string) (*session.Snapshot, error) {
	h := s.registry.Lock(sessionID)
	defer h.Unlock()

	cur := h.Snapshot()
	if cur == nil {
		var err error
		cur, err = s.resumeLocked(ctx, h, sessionID)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) {
				return nil, err
			}
			// Unknown session: first message creates it.
			cur = session.NewSnapshot(sessionID, string(StateInit))
			if err := s.saveCheckpoint(ctx, cur); err != nil {
				return nil, err
			}
			h.Replace(cur)
		}
	}
	if Terminal(State(cur.State)) {
		return cur, nil
	}
	if st := State(cur.State); st != StateInit && st != StateConversation {
		// The session is already past conversation. Record the message for
		// the transcript, but never run a stage or advance from a
		// mid-pipeline state.
		clone := cur.Clone()
		clone.Messages = append(clone.Messages, session.Message{Role: "user", Content: text, Timestamp: time.Now()})
		h.Replace(clone)
		slog.Debug("Message recorded mid-pipeline", "session", sessionID, "state", st)
		return clone, nil
	}

	clone := cur.Clone()
	clone.Messages = append(clone.Messages, session.Message{Role: "user", Content: text, Timestamp: time.Now()})

	if State(cur.State) == StateInit {
		snap, err := s.advanceLocked(ctx, h, clone, StageResult{})
		if err != nil {
			return nil, err
		}
		clone = snap.Clone()
	}

	s.mu.RLock()
	fn, ok := s.stages[StateConversation]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no stage registered for state %s", StateConversation)
	}

	res := fn(ctx, clone)
	return s.advanceLocked(ctx, h, clone, res)
}

// Resume re-hydrates a session from its latest checkpoint. A session already
// live in the registry is returned as-is; the checkpoint is the fallback for
// process restarts.
func (s *Supervisor) Resume(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	h := s.registry.Lock(sessionID)
	defer h.Unlock()

	if snap := h.Snapshot(); snap != nil {
		return snap, nil
	}
	return s.resumeLocked(ctx, h, sessionID)
}

func (s *Supervisor) resumeLocked(ctx context.Context, h *session.Handle, sessionID string) (*session.Snapshot, error) {
	cp, err := s.checkpoints.GetLatestCheckpoint(ctx, sessionID)
	if err != nil {
		return nil, &PersistenceError{Op: "load checkpoint", Err: err}
	}
	if cp == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionNotFound)
	}

	snap, err := session.Unmarshal(cp.Snapshot)
	if err != nil {
		return nil, &PersistenceError{Op: "decode checkpoint", Err: err}
	}
	if err := validateResumed(snap); err != nil {
		return nil, fmt.Errorf("checkpoint for session %s is inconsistent: %w", sessionID, err)
	}

	h.Replace(snap)
	slog.Info("Session resumed", "session", sessionID, "state", snap.State, "seq", snap.Seq)
	return snap, nil
}

// validateResumed re-checks stage preconditions so a checkpoint written by an
// older process never feeds a stage unvetted partial output.
func validateResumed(snap *session.Snapshot) error {
	st := State(snap.State)
	if !Known(st) {
		return fmt.Errorf("unknown state %q", snap.State)
	}
	past := func(s State) bool {
		order := map[State]int{
			StateInit: 0, StateConversation: 1, StateRecommendation: 2,
			StateImageGeneration: 3, StateEnrichment: 4, StateQA: 5, StateComplete: 6,
		}
		cur, ok := order[st]
		return ok && cur > order[s]
	}
	if past(StateConversation) && (snap.Profile == nil || !snap.Profile.Complete()) {
		return fmt.Errorf("state %s without a complete profile", st)
	}
	if past(StateRecommendation) && len(snap.Recommendations) == 0 {
		return fmt.Errorf("state %s without recommendations", st)
	}
	if past(StateImageGeneration) && snap.Image == nil {
		return fmt.Errorf("state %s without a generated image", st)
	}
	return nil
}

// Snapshot returns the session's current snapshot without advancing it,
// falling back to the latest checkpoint for sessions not in memory.
func (s *Supervisor) Snapshot(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	if snap := s.registry.Peek(sessionID); snap != nil {
		return snap, nil
	}
	return s.Resume(ctx, sessionID)
}
