package pipeline

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when no checkpoint exists for a session id.
var ErrSessionNotFound = errors.New("session not found")

// Stable error codes surfaced to the client instead of raw provider text.
const (
	CodeImageBudgetExhausted  = "image_budget_exhausted"
	CodeReworkBudgetExhausted = "rework_budget_exhausted"
	CodeStageRetryExhausted   = "stage_retry_exhausted"
	CodeNoCandidates          = "no_compatible_candidates"
	CodeInternalError         = "internal_error"
)

// BudgetExceededError means a retry or rework budget ran out. Fatal for the
// session; the supervisor transitions it to failed.
type BudgetExceededError struct {
	Stage  string
	Budget int
}

func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("%s budget exhausted (%d attempts)", e.Stage, e.Budget)
}

// PersistenceError means a checkpoint write or read failed. The supervisor
// never retries these; the in-memory state is left untouched so no partial
// write is observable.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// RoutingError means the routing table had no entry for a reachable key.
// Guarded against at startup by ValidateRoutingTable, so hitting one at
// runtime is an invariant violation.
type RoutingError struct {
	Key RouteKey
}

func (e *RoutingError) Error() string {
	return fmt.Sprintf("no route for state=%s flags=%+v", e.Key.State, e.Key.Flags)
}
