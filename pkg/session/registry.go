// Package session holds the per-client pipeline state: immutable snapshots
// that flow through the supervisor, and a thread-safe registry keyed by opaque
// session IDs (typically UUIDs generated client-side).
package session

import (
	"sync"
	"time"
)

// cleanupInterval is how often Lock() triggers lazy eviction of expired entries.
const cleanupInterval = 100

type entry struct {
	mu         sync.Mutex
	snap       *Snapshot
	lastAccess time.Time
}

// Registry is a thread-safe session registry. Each session ID maps to at most
// one snapshot, guarded by a per-session mutex so concurrent advances on the
// same session serialize while different sessions proceed in parallel.
type Registry struct {
	mu        sync.Mutex
	entries   map[string]*entry
	ttl       time.Duration
	lockCalls int
}

// NewRegistry creates a Registry that evicts sessions inactive longer than ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		ttl:     ttl,
	}
}

// Handle is an exclusive lease on one session's state. Callers must Unlock it.
type Handle struct {
	e *entry
}

// Lock acquires the per-session mutex for id, creating the entry if needed.
// Each call refreshes the session's last-access timestamp.
func (r *Registry) Lock(id string) *Handle {
	r.mu.Lock()
	r.lockCalls++
	if r.lockCalls%cleanupInterval == 0 {
		r.cleanupLocked()
	}

	e, ok := r.entries[id]
	if !ok {
		e = &entry{}
		r.entries[id] = e
	}
	e.lastAccess = time.Now()
	r.mu.Unlock()

	// Entry mutex is taken outside the registry lock so a slow stage on one
	// session never blocks lookups of other sessions.
	e.mu.Lock()
	return &Handle{e: e}
}

// Snapshot returns the current snapshot, or nil for a fresh session.
func (h *Handle) Snapshot() *Snapshot {
	return h.e.snap
}

// Replace installs the given snapshot as the session's current state.
func (h *Handle) Replace(s *Snapshot) {
	h.e.snap = s
}

// Unlock releases the session lease.
func (h *Handle) Unlock() {
	h.e.mu.Unlock()
}

// Peek returns the current snapshot without taking the session lease, or nil
// if the session is unknown. The caller must not mutate the result.
func (r *Registry) Peek(id string) *Snapshot {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap
}

// Cleanup evicts all sessions that have been inactive longer than the TTL.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cleanupLocked()
}

func (r *Registry) cleanupLocked() {
	cutoff := time.Now().Add(-r.ttl)
	for id, e := range r.entries {
		if e.lastAccess.Before(cutoff) {
			delete(r.entries, id)
		}
	}
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
