package stream

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/murmurdev/murmur/internal/session"
)

func TestCoordinatorSerializesSources(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/session/s1/subscribe", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseFrame("STATE_SNAPSHOT", snapshotFrame))
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	})
	mux.HandleFunc("/api/task/stream", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, sseFrame("SESSION_CREATED", `{"session_id":"s2"}`)+
			sseFrame("RUN_STARTED", `{"session_id":"s2"}`)+
			sseFrame("RUN_FINISHED", `{"session_id":"s2"}`))
	})
	mux.HandleFunc("/api/session/s2", detailHandler(
		`{"success":true,"data":{"session_id":"s2","task":"new task","status":"completed"}}`))
	mux.HandleFunc("/api/session/s2/live-state", detailHandler(
		`{"success":true,"data":{"session_id":"s2","is_live":false,"status":"completed","messages":[]}}`))

	repo := session.NewRepo()
	co := NewCoordinator(newTestClient(t, mux), repo, 0, nil)
	defer co.Shutdown()

	if err := co.Watch(context.Background(), "s1"); err != nil {
		t.Fatalf("watch: %v", err)
	}
	if err := co.StartRun(context.Background(), "new task", RunOpts{}); err != nil {
		t.Fatalf("run: %v", err)
	}

	// the subscription must be gone before the run's writes began
	select {
	case <-co.Sub.Done():
	default:
		t.Fatal("subscriber still live after StartRun")
	}
	if repo.ActiveID() != "s2" {
		t.Errorf("active = %q, want the run's session", repo.ActiveID())
	}
	if repo.Len() != 2 {
		t.Errorf("sessions = %d, want the watched and the run session", repo.Len())
	}
}
