package pipeline

import "fmt"

// State identifies one pipeline stage.
type State string

const (
	StateInit            State = "init"
	StateConversation    State = "conversation"
	StateRecommendation  State = "recommendation"
	StateImageGeneration State = "image_generation"
	StateEnrichment      State = "enrichment"
	StateQA              State = "qa"
	StateComplete        State = "complete"
	StateFailed          State = "failed"
)

// workingStates are the non-terminal states a session can be advanced from.
var workingStates = []State{
	StateInit,
	StateConversation,
	StateRecommendation,
	StateImageGeneration,
	StateEnrichment,
	StateQA,
}

// Terminal reports whether s is an absorbing state.
func Terminal(s State) bool {
	return s == StateComplete || s == StateFailed
}

// Known reports whether s is a valid pipeline state.
func Known(s State) bool {
	if Terminal(s) {
		return true
	}
	for _, w := range workingStates {
		if w == s {
			return true
		}
	}
	return false
}

// Flags is the small set of routing signals a stage reports back.
type Flags struct {
	IsComplete bool // conversation has a full profile
	Approved   bool // qa verdict
	FatalError bool // unrecoverable stage failure
}

// RouteKey is one cell of the routing table.
type RouteKey struct {
	State State
	Flags Flags
}

// allFlagCombos enumerates every Flags value.
func allFlagCombos() []Flags {
	combos := make([]Flags, 0, 8)
	for _, ic := range []bool{false, true} {
		for _, ap := range []bool{false, true} {
			for _, fe := range []bool{false, true} {
				combos = append(combos, Flags{IsComplete: ic, Approved: ap, FatalError: fe})
			}
		}
	}
	return combos
}

// buildRoutingTable constructs the closed routing table over every working
// state and flag combination. FatalError dominates all other flags.
func buildRoutingTable() map[RouteKey]State {
	t := make(map[RouteKey]State, len(workingStates)*8)
	for _, st := range workingStates {
		for _, f := range allFlagCombos() {
			t[RouteKey{State: st, Flags: f}] = route(st, f)
		}
	}
	return t
}

func route(st State, f Flags) State {
	if f.FatalError {
		return StateFailed
	}
	switch st {
	case StateInit:
		return StateConversation
	case StateConversation:
		if f.IsComplete {
			return StateRecommendation
		}
		return StateConversation
	case StateRecommendation:
		return StateImageGeneration
	case StateImageGeneration:
		return StateEnrichment
	case StateEnrichment:
		return StateQA
	case StateQA:
		if f.Approved {
			return StateComplete
		}
		return StateEnrichment
	}
	return StateFailed
}

// ValidateRoutingTable checks totality and determinism: every (working state,
// flags) pair must map to exactly one known state, and terminal states must
// not appear as sources. Called from main at startup; a failure here is a
// programming error, not a runtime condition.
func ValidateRoutingTable(t map[RouteKey]State) error {
	for _, st := range workingStates {
		for _, f := range allFlagCombos() {
			next, ok := t[RouteKey{State: st, Flags: f}]
			if !ok {
				return fmt.Errorf("routing table miss: state=%s flags=%+v", st, f)
			}
			if !Known(next) {
				return fmt.Errorf("routing table maps state=%s flags=%+v to unknown state %q", st, f, next)
			}
			if f.FatalError && next != StateFailed {
				return fmt.Errorf("routing table must absorb fatal errors: state=%s maps to %s", st, next)
			}
		}
	}
	for key := range t {
		if Terminal(key.State) {
			return fmt.Errorf("routing table has an edge out of terminal state %s", key.State)
		}
	}
	return nil
}
