package worker

import (
	"sync"

	"tlstunnel/internal/session"
)

// registry is the mutex-guarded map of live Sessions a Worker owns,
// grounded directly on the teacher's
// infrastructure/routing/server_routing/session_management.ConcurrentManager
// decorator shape (a mutex wrapping a plain lookup structure), generalized
// from IP-keyed lookup to handle-keyed lookup — see SPEC_FULL.md §4.5 and
// DESIGN.md for why this replaces the spec's intrusive linked list.
type registry struct {
	mu       sync.RWMutex
	sessions map[uint64]*session.Session
	next     uint64
}

func newRegistry() *registry {
	return &registry{sessions: make(map[uint64]*session.Session)}
}

// Add assigns the Session a fresh handle, stores it, and returns the
// handle for later O(1) removal.
func (r *registry) Add(s *session.Session) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	handle := r.next
	s.Handle = handle
	r.sessions[handle] = s
	return handle
}

// Delete removes a Session by handle. It is a no-op if already removed,
// matching the teacher's idempotent Delete semantics.
func (r *registry) Delete(handle uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, handle)
}

// Len returns the number of currently registered Sessions.
func (r *registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns a copy of every currently registered Session, safe to
// range over without holding the registry's lock.
func (r *registry) Snapshot() []*session.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*session.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}
