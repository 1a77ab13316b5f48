package stream

import (
	"strings"
	"testing"

	"github.com/murmurdev/murmur/internal/events"
)

func sseFrame(event, data string) string {
	return "event: " + event + "\ndata: " + data + "\n\n"
}

func TestPumpDeliversNormalizedEvents(t *testing.T) {
	body := sseFrame("RUN_STARTED", `{"session_id":"s1"}`) +
		": keepalive\n\n" +
		sseFrame("TEXT_MESSAGE_CONTENT", `{"session_id":"s1","message_id":"m1","delta":"hi"}`)

	var got []*events.Event
	err := pump(strings.NewReader(body), func(ev *events.Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("pump: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d events, want 2", len(got))
	}
	if got[0].Type != events.TypeRunStarted {
		t.Errorf("got %q, want RUN_STARTED", got[0].Type)
	}
	if got[1].Text == nil || got[1].Text.Delta != "hi" {
		t.Errorf("delta not carried through: %+v", got[1])
	}
}

func TestPumpDropsMalformedFrame(t *testing.T) {
	body := sseFrame("AGENT_SPAWNED", `{not json`) +
		sseFrame("RUN_FINISHED", `{"session_id":"s1"}`)

	var got []*events.Event
	err := pump(strings.NewReader(body), func(ev *events.Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("pump: %v", err)
	}
	if len(got) != 1 || got[0].Type != events.TypeRunFinished {
		t.Fatalf("got %+v, want only RUN_FINISHED", got)
	}
}

func TestPumpFlushesFinalFrameOnEOF(t *testing.T) {
	// last frame lacks its terminating blank line
	body := "event: RUN_FINISHED\ndata: {\"session_id\":\"s1\"}"

	var got []*events.Event
	err := pump(strings.NewReader(body), func(ev *events.Event) {
		got = append(got, ev)
	})
	if err != nil {
		t.Fatalf("pump: %v", err)
	}
	if len(got) != 1 || got[0].Type != events.TypeRunFinished {
		t.Fatalf("unterminated final frame not flushed: %+v", got)
	}
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	b := Backoff{Base: 100, Max: 350}
	want := []int64{100, 200, 350, 350}
	for i, w := range want {
		if got := int64(b.Next()); got != w {
			t.Errorf("attempt %d: got %d, want %d", i, got, w)
		}
	}
	b.Reset()
	if got := int64(b.Next()); got != 100 {
		t.Errorf("after reset: got %d, want 100", got)
	}
}
