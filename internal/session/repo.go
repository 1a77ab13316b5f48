package session

import (
	"errors"
	"sort"
	"time"
)

// ErrSessionNotFound is returned for operations naming an unknown session.
var ErrSessionNotFound = errors.New("session not found")

// Repo holds every known session and designates at most one as active.
//
// Repo is not safe for concurrent use. A single event loop owns it: all
// mutation happens synchronously while handling one frame or one command,
// and writer exclusivity is enforced upstream (stream.Coordinator). The
// discipline required is sequencing, not locking.
type Repo struct {
	sessions map[string]*Session
	activeID string
}

func NewRepo() *Repo {
	return &Repo{sessions: make(map[string]*Session)}
}

// Get returns the session with the given id.
func (r *Repo) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Activate returns the session with the given id, creating it on first
// reference, and marks it active.
func (r *Repo) Activate(id string) *Session {
	s, ok := r.sessions[id]
	if !ok {
		s = newSession(id)
		r.sessions[id] = s
	}
	r.activeID = id
	return s
}

// Active returns the currently observed session, or nil if none.
func (r *Repo) Active() *Session {
	if r.activeID == "" {
		return nil
	}
	return r.sessions[r.activeID]
}

// ActiveID returns the active session's id, or "".
func (r *Repo) ActiveID() string {
	return r.activeID
}

// Close removes a session. If it was active, some remaining session (the
// most recently active survivor) is promoted; with none left, no session is
// active.
func (r *Repo) Close(id string) error {
	if _, ok := r.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(r.sessions, id)
	if r.activeID != id {
		return nil
	}
	r.activeID = ""
	var next *Session
	for _, s := range r.sessions {
		if next == nil || s.LastActiveAt.After(next.LastActiveAt) {
			next = s
		}
	}
	if next != nil {
		r.activeID = next.ID
	}
	return nil
}

// SoftReset clears a session's transient state before a follow-up run:
// agents, relay stations, plan, error and scratch tool calls go; the
// transcript and final report stay. The session becomes active.
func (r *Repo) SoftReset(id string) *Session {
	s := r.Activate(id)
	s.Agents = make(map[string]*Agent)
	s.Stations = make(map[string]*RelayStation)
	s.Plan = nil
	s.Error = ""
	s.UngroupedCalls = nil
	s.UngroupedThinking = ""
	s.Status = StatusPending
	s.LastActiveAt = time.Now()
	return s
}

// List returns all sessions, most recently active first.
func (r *Repo) List() []*Session {
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActiveAt.After(out[j].LastActiveAt)
	})
	return out
}

// Len returns the number of known sessions.
func (r *Repo) Len() int {
	return len(r.sessions)
}

func newSession(id string) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Status:       StatusPending,
		Agents:       make(map[string]*Agent),
		Stations:     make(map[string]*RelayStation),
		CreatedAt:    now,
		LastActiveAt: now,
	}
}
