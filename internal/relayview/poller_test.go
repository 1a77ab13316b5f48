package relayview

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/session"
)

func testPoller(t *testing.T, handler http.HandlerFunc) *Poller {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session/s1/relay-history", handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p := New(api.NewClient(srv.URL, ""))
	p.Limiter = rate.NewLimiter(rate.Every(time.Millisecond), 1)
	t.Cleanup(p.Stop)
	return p
}

func TestPollerDeliversBatches(t *testing.T) {
	p := testPoller(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"messages":[
			{"message_id":"rm1","station_id":"st1","relay_type":"finding","content":"found it",
			 "viewed_by":["a2"],"acknowledged_by":["a2"]}]}}`)
	})

	p.Start(context.Background(), "s1")

	select {
	case b := <-p.Updates():
		if b.SessionID != "s1" {
			t.Errorf("session = %q, want s1", b.SessionID)
		}
		if len(b.Messages) != 1 || b.Messages[0].MessageID != "rm1" {
			t.Fatalf("batch = %+v", b.Messages)
		}
		if len(b.Messages[0].ViewedBy) != 1 || b.Messages[0].ViewedBy[0] != "a2" {
			t.Errorf("view-state not carried: %+v", b.Messages[0])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}
}

func TestPollerSkipsEmptyHistory(t *testing.T) {
	p := testPoller(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"messages":[]}}`)
	})

	p.Start(context.Background(), "s1")

	select {
	case b := <-p.Updates():
		t.Fatalf("unexpected batch %+v", b)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPollerStopIdempotent(t *testing.T) {
	p := New(api.NewClient("http://127.0.0.1:0", ""))
	p.Stop()
	p.Start(context.Background(), "s1")
	p.Stop()
	p.Stop()
}

func TestBatchMergesIntoSession(t *testing.T) {
	// end to end with the repo owner doing the merge
	p := testPoller(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":true,"data":{"messages":[
			{"message_id":"rm1","station_id":"st1","viewed_by":["a2"],
			 "viewed_timestamps":{"a2":"2026-08-01T12:00:00Z"}}]}}`)
	})

	repo := session.NewRepo()
	s := repo.Activate("s1")
	session.Apply(s, mustRelayEvent())

	p.Start(context.Background(), "s1")
	select {
	case b := <-p.Updates():
		session.MergeViewState(s, b.Messages)
	case <-time.After(5 * time.Second):
		t.Fatal("no batch delivered")
	}

	msg := s.Stations["st1"].Messages[0]
	if len(msg.ViewedBy) != 1 || msg.ViewedBy[0] != "a2" {
		t.Errorf("viewed_by not merged: %+v", msg)
	}
	if msg.ViewedTimestamps["a2"] == "" {
		t.Errorf("viewed timestamps not merged: %+v", msg)
	}
}

func mustRelayEvent() *events.Event {
	return &events.Event{
		Type:      events.TypeRelayMessageSent,
		SessionID: "s1",
		Relay: &events.RelayPayload{
			StationID: "st1",
			MessageID: "rm1",
			Content:   "found it",
		},
	}
}
