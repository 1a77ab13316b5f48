package session

import (
	"testing"
	"time"
)

func TestActivateCreatesOnFirstReference(t *testing.T) {
	r := NewRepo()
	s := r.Activate("s1")
	if s == nil || r.ActiveID() != "s1" {
		t.Fatalf("active = %q, want s1", r.ActiveID())
	}
	if s.Status != StatusPending {
		t.Errorf("status = %s, want pending", s.Status)
	}
	again := r.Activate("s1")
	if again != s {
		t.Error("second activate created a new session")
	}
}

func TestCloseRemovesAndPromotes(t *testing.T) {
	r := NewRepo()
	a := r.Activate("a")
	b := r.Activate("b")
	a.LastActiveAt = time.Now().Add(-time.Hour)
	b.LastActiveAt = time.Now()
	r.Activate("c")

	if err := r.Close("c"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := r.Get("c"); ok {
		t.Error("closed session still present")
	}
	// most recently active survivor promoted
	if r.ActiveID() != "b" {
		t.Errorf("active = %q, want b", r.ActiveID())
	}

	// closing a non-active session leaves the active designation alone
	if err := r.Close("a"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.ActiveID() != "b" {
		t.Errorf("active = %q, want b", r.ActiveID())
	}

	if err := r.Close("b"); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if r.ActiveID() != "" {
		t.Errorf("active = %q, want none", r.ActiveID())
	}
}

func TestCloseUnknown(t *testing.T) {
	r := NewRepo()
	if err := r.Close("nope"); err != ErrSessionNotFound {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
}

func TestSoftResetKeepsHistory(t *testing.T) {
	r := NewRepo()
	s := r.Activate("s1")
	s.Agents["a1"] = &Agent{ID: "a1"}
	s.Stations["st1"] = &RelayStation{ID: "st1"}
	s.Plan = &Plan{ID: "p1"}
	s.Error = "old error"
	s.UngroupedCalls = []*ToolCall{{ID: "t1"}}
	s.UngroupedThinking = "old thoughts"
	s.Messages = []*Message{{ID: "m1", Role: "user", Content: "hi"}}
	s.FinalReport = "previous answer"
	s.Status = StatusCompleted

	r.SoftReset("s1")

	if len(s.Agents) != 0 || len(s.Stations) != 0 || s.Plan != nil || s.Error != "" {
		t.Errorf("transient state survived reset: %+v", s)
	}
	if len(s.UngroupedCalls) != 0 || s.UngroupedThinking != "" {
		t.Error("scratch state survived reset")
	}
	if len(s.Messages) != 1 || s.FinalReport != "previous answer" {
		t.Error("history must survive reset")
	}
	if s.Status != StatusPending {
		t.Errorf("status = %s, want pending", s.Status)
	}
	if r.ActiveID() != "s1" {
		t.Errorf("active = %q, want s1", r.ActiveID())
	}
}

func TestListOrder(t *testing.T) {
	r := NewRepo()
	a := r.Activate("a")
	b := r.Activate("b")
	a.LastActiveAt = time.Now()
	b.LastActiveAt = time.Now().Add(-time.Minute)
	list := r.List()
	if len(list) != 2 || list[0].ID != "a" {
		t.Errorf("list = %v", list)
	}
}
