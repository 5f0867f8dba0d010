package game

import (
	"sync"

	"github.com/google/uuid"
)

// Registry owns every cross-connection relationship: the active-connection
// set, display names, the opponent map, and the connection-to-session map.
// Callers only get atomic operations; the maps themselves never escape, so
// every mutation happens under one lock.
type Registry struct {
	mu        sync.RWMutex
	conns     map[uuid.UUID]Conn
	names     map[uuid.UUID]string
	opponents map[uuid.UUID]uuid.UUID
	sessions  map[uuid.UUID]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:     make(map[uuid.UUID]Conn),
		names:     make(map[uuid.UUID]string),
		opponents: make(map[uuid.UUID]uuid.UUID),
		sessions:  make(map[uuid.UUID]*Session),
	}
}

// Register adds conn to the active set under the given display name.
func (r *Registry) Register(conn Conn, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = conn
	r.names[conn.ID()] = name
}

// Name returns the display name registered at login, or "Unknown".
func (r *Registry) Name(id uuid.UUID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.names[id]; ok {
		return name
	}
	return "Unknown"
}

// Conn returns the active connection for id, if any.
func (r *Registry) Conn(id uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.conns[id]
	return conn, ok
}

// Pair records a new session and the two-way opponent relationship.
func (r *Registry) Pair(a, b Conn, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opponents[a.ID()] = b.ID()
	r.opponents[b.ID()] = a.ID()
	r.sessions[a.ID()] = s
	r.sessions[b.ID()] = s
}

// Opponent returns the live opponent connection for id, if any.
func (r *Registry) Opponent(id uuid.UUID) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	oppID, ok := r.opponents[id]
	if !ok {
		return nil, false
	}
	conn, ok := r.conns[oppID]
	return conn, ok
}

// Session returns the session id is currently playing in, if any.
func (r *Registry) Session(id uuid.UUID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// InSession reports whether id currently has session-local state.
func (r *Registry) InSession(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[id]
	return ok
}

// RemovePlayer garbage-collects id's session-local bookkeeping (opponent
// and session entries). It never un-resolves a session.
func (r *Registry) RemovePlayer(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.opponents, id)
	delete(r.sessions, id)
}

// Unregister removes id from the active set and drops its display name.
// Idempotent. Session bookkeeping is cleaned separately via RemovePlayer.
func (r *Registry) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, id)
	delete(r.names, id)
}

// ActiveConns snapshots every currently connected handle for fan-out.
func (r *Registry) ActiveConns() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	return conns
}

// ActiveCount returns the number of registered connections.
func (r *Registry) ActiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
