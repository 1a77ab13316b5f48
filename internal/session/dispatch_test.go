package session

import (
	"reflect"
	"testing"

	"github.com/murmurdev/murmur/internal/events"
)

func TestDispatchIsolation(t *testing.T) {
	r := NewRepo()
	d := &Dispatcher{Repo: r}
	d.Dispatch(&events.Event{Type: events.TypeSessionCreated, SessionID: "A"})
	d.Dispatch(&events.Event{Type: events.TypeRunStarted, SessionID: "A", Run: &events.RunPayload{}})

	before := snapshotState(r)

	// event tagged with session B while A is active: no observable mutation
	// of either session
	applied := d.Dispatch(&events.Event{Type: events.TypeRunError, SessionID: "B", Run: &events.RunPayload{Message: "leak"}})
	if applied {
		t.Error("cross-session event was applied")
	}
	if !reflect.DeepEqual(before, snapshotState(r)) {
		t.Error("cross-session event mutated state")
	}

	// SESSION_CREATED is exempt: it switches the active session
	d.Dispatch(&events.Event{Type: events.TypeSessionCreated, SessionID: "B"})
	if r.ActiveID() != "B" {
		t.Errorf("active = %q, want B", r.ActiveID())
	}
	if _, ok := r.Get("A"); !ok {
		t.Error("session A should survive the switch")
	}
}

func snapshotState(r *Repo) map[string]Status {
	out := make(map[string]Status)
	for _, s := range r.List() {
		out[s.ID] = s.Status
	}
	out["__active"] = Status(r.ActiveID())
	return out
}

func TestDispatchStreamHintFallback(t *testing.T) {
	r := NewRepo()
	d := &Dispatcher{Repo: r, StreamSession: "s1"}
	// subscription events may omit the session id; the stream hint pins it
	d.Dispatch(&events.Event{Type: events.TypeRunStarted, Run: &events.RunPayload{}})
	s, ok := r.Get("s1")
	if !ok {
		t.Fatal("session not created from stream hint")
	}
	if s.Status != StatusRunning {
		t.Errorf("status = %s, want running", s.Status)
	}
}

func TestDispatchInterimEventsBeforeCreation(t *testing.T) {
	// a fresh driver run: the old session stays active until
	// SESSION_CREATED flips it, and interim events are not dropped
	r := NewRepo()
	old := r.Activate("old")
	d := &Dispatcher{Repo: r, Mode: "emergent"}

	applied := d.Dispatch(&events.Event{Type: events.TypeRunStarted, Run: &events.RunPayload{}})
	if !applied {
		t.Error("interim event before SESSION_CREATED was dropped")
	}
	if r.ActiveID() != "old" {
		t.Errorf("active = %q, want old until creation event", r.ActiveID())
	}
	if old.Status != StatusRunning {
		t.Errorf("old status = %s, want running", old.Status)
	}

	d.Dispatch(&events.Event{Type: events.TypeSessionCreated, SessionID: "fresh"})
	if r.ActiveID() != "fresh" {
		t.Errorf("active = %q, want fresh", r.ActiveID())
	}
	if d.StreamSession != "fresh" {
		t.Errorf("stream session = %q, want fresh", d.StreamSession)
	}
	s, _ := r.Get("fresh")
	if s.Mode != "emergent" {
		t.Errorf("mode = %q, want pre-recorded emergent", s.Mode)
	}
}

func TestDispatchHeartbeatIsNoop(t *testing.T) {
	r := NewRepo()
	d := &Dispatcher{Repo: r}
	if d.Dispatch(&events.Event{Type: events.TypeHeartbeat, SessionID: "s1"}) {
		t.Error("heartbeat should not mutate state")
	}
	if r.Len() != 0 {
		t.Errorf("sessions = %d, want 0", r.Len())
	}
}

func TestDispatchScenario(t *testing.T) {
	// SESSION_CREATED → RUN_STARTED → AGENT_SPAWNED → AGENT_PROGRESS
	r := NewRepo()
	d := &Dispatcher{Repo: r}
	d.Dispatch(&events.Event{Type: events.TypeSessionCreated, SessionID: "s1"})
	d.Dispatch(&events.Event{Type: events.TypeRunStarted, Run: &events.RunPayload{RunID: "r1"}})
	d.Dispatch(&events.Event{Type: events.TypeAgentSpawned, Agent: &events.AgentPayload{AgentID: "a1", AgentName: "A"}})
	d.Dispatch(&events.Event{Type: events.TypeAgentProgress, Agent: &events.AgentPayload{AgentID: "a1", Progress: 50}})

	if r.ActiveID() != "s1" {
		t.Fatalf("active = %q, want s1", r.ActiveID())
	}
	s := r.Active()
	if s.Status != StatusRunning {
		t.Errorf("status = %s, want running", s.Status)
	}
	a := s.Agents["a1"]
	if a == nil || a.Progress != 50 {
		t.Errorf("agent = %+v, want progress 50", a)
	}
}
