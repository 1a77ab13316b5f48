package session

import (
	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/logger"
)

// Dispatcher is the isolation gate in front of the repository: it decides
// whether a normalized event may mutate shared state and routes it to the
// owning session. One dispatcher exists per acquisition stream.
type Dispatcher struct {
	Repo *Repo

	// StreamSession is the session this stream is bound to; events that omit
	// a session id fall back to it. The subscriber pins it; the driver
	// learns it from SESSION_CREATED.
	StreamSession string

	// Mode is the execution mode requested before the hub minted a session,
	// applied when SESSION_CREATED arrives.
	Mode string
}

// Dispatch applies one event and reports whether it mutated state.
//
// The isolation invariant: an event declaring a session id different from
// the active session is dropped; no event belonging to session A may
// mutate session B. SESSION_CREATED is exempt because its purpose is to
// establish or switch the active session.
func (d *Dispatcher) Dispatch(ev *events.Event) bool {
	if ev == nil || ev.Type == events.TypeHeartbeat {
		return false
	}

	sid := ev.SessionID
	if sid == "" {
		sid = d.StreamSession
	}

	if ev.Type == events.TypeSessionCreated {
		if sid == "" {
			return false
		}
		s := d.Repo.Activate(sid)
		if d.Mode != "" && s.Mode == "" {
			s.Mode = d.Mode
		}
		d.StreamSession = sid
		Apply(s, ev)
		return true
	}

	if sid != "" && d.Repo.ActiveID() != "" && sid != d.Repo.ActiveID() {
		logger.Log.Debug("dropping cross-session event",
			"type", ev.Type, "session", sid, "active", d.Repo.ActiveID())
		return false
	}

	target := d.Repo.Active()
	if target == nil {
		if sid == "" {
			return false
		}
		// first event naming an unknown session creates it
		target = d.Repo.Activate(sid)
	}
	Apply(target, ev)
	return true
}
