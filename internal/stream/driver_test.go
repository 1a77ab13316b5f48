package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/session"
)

func newTestClient(t *testing.T, mux *http.ServeMux) *api.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return api.NewClient(srv.URL, "")
}

func detailHandler(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}
}

func TestDriverRunCompletes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task/stream", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("got method %s, want POST", r.Method)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseFrame("SESSION_CREATED", `{"session_id":"s1"}`)+
			sseFrame("RUN_STARTED", `{"session_id":"s1"}`)+
			sseFrame("TEXT_MESSAGE_START", `{"session_id":"s1","message_id":"m1","role":"assistant"}`)+
			sseFrame("TEXT_MESSAGE_CONTENT", `{"session_id":"s1","message_id":"m1","delta":"old pond"}`)+
			sseFrame("RUN_FINISHED", `{"session_id":"s1"}`))
	})
	mux.HandleFunc("/api/session/s1", detailHandler(
		`{"success":true,"data":{"session_id":"s1","task":"write a haiku","status":"completed"}}`))

	repo := session.NewRepo()
	d := &Driver{API: newTestClient(t, mux), Repo: repo}

	if err := d.Run(context.Background(), "write a haiku", RunOpts{Mode: "direct"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	if repo.ActiveID() != "s1" {
		t.Fatalf("active = %q, want s1", repo.ActiveID())
	}
	s, _ := repo.Get("s1")
	if s.Status != session.StatusCompleted {
		t.Errorf("status = %q, want completed", s.Status)
	}
	if len(s.Messages) != 1 || s.Messages[0].Content != "old pond" {
		t.Errorf("transcript = %+v, want one message with streamed content", s.Messages)
	}
	if s.FinalReport == "" {
		t.Errorf("final report not synthesized")
	}
	if s.Task != "write a haiku" {
		t.Errorf("task = %q, want backfilled from hub record", s.Task)
	}
}

func TestDriverRunTransportFailureMarksFailed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task/stream", func(w http.ResponseWriter, r *http.Request) {
		// declare more body than is sent so the client sees a broken stream
		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Content-Length", "65536")
		io.WriteString(w, sseFrame("SESSION_CREATED", `{"session_id":"s1"}`)+
			sseFrame("RUN_STARTED", `{"session_id":"s1"}`))
	})
	mux.HandleFunc("/api/session/s1", detailHandler(
		`{"success":true,"data":{"session_id":"s1","status":"error"}}`))

	repo := session.NewRepo()
	d := &Driver{API: newTestClient(t, mux), Repo: repo}

	if err := d.Run(context.Background(), "task", RunOpts{}); err == nil {
		t.Fatal("expected a stream error")
	}
	s, _ := repo.Get("s1")
	if s.Status != session.StatusFailed {
		t.Errorf("status = %q, want failed", s.Status)
	}
	if s.Error == "" {
		t.Errorf("error text not recorded")
	}
}

func TestDriverStopCancelsWithoutFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseFrame("SESSION_CREATED", `{"session_id":"s1"}`)+
			sseFrame("RUN_STARTED", `{"session_id":"s1"}`))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/api/session/s1", detailHandler(
		`{"success":true,"data":{"session_id":"s1","status":"error"}}`))

	repo := session.NewRepo()
	seen := make(chan *events.Event, 16)
	d := &Driver{API: newTestClient(t, mux), Repo: repo, OnEvent: func(ev *events.Event) { seen <- ev }}

	errc := make(chan error, 1)
	go func() { errc <- d.Run(context.Background(), "task", RunOpts{}) }()

	waitForEvent(t, seen, events.TypeRunStarted)
	d.Stop()

	if err := <-errc; err != nil {
		t.Fatalf("interrupted run should not report an error, got %v", err)
	}
	s, _ := repo.Get("s1")
	if s.Status != session.StatusCancelled {
		t.Errorf("status = %q, want cancelled", s.Status)
	}
	if s.Error != "" {
		t.Errorf("error = %q, want empty on cancel", s.Error)
	}
}

func TestDriverResumeSoftResets(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/task/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseFrame("RUN_STARTED", `{"session_id":"s1"}`)+
			sseFrame("RUN_FINISHED", `{"session_id":"s1"}`))
	})
	mux.HandleFunc("/api/session/s1", detailHandler(
		`{"success":true,"data":{"session_id":"s1","status":"completed"}}`))
	mux.HandleFunc("/api/session/s1/live-state", detailHandler(
		`{"success":true,"data":{"session_id":"s1","is_live":false,"status":"completed","messages":[]}}`))

	repo := session.NewRepo()
	prev := repo.Activate("s1")
	prev.Status = session.StatusFailed
	prev.Error = "earlier failure"
	prev.Agents["a1"] = &session.Agent{ID: "a1"}

	d := &Driver{API: newTestClient(t, mux), Repo: repo}
	if err := d.Run(context.Background(), "try again", RunOpts{SessionID: "s1"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	s, _ := repo.Get("s1")
	if s.Error != "" || len(s.Agents) != 0 {
		t.Errorf("stale run state survived the resume: error=%q agents=%d", s.Error, len(s.Agents))
	}
	if s.Status != session.StatusCompleted {
		t.Errorf("status = %q, want completed", s.Status)
	}
}

func waitForEvent(t *testing.T, ch <-chan *events.Event, typ string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev.Type == typ {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}
