package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/logger"
	"github.com/murmurdev/murmur/internal/session"
)

// RunOpts selects how a task is executed on the hub.
type RunOpts struct {
	Provider  string
	Model     string
	Mode      string // "emergent" or "direct"
	SessionID string // resume an existing session when set
	Context   string
}

// Driver executes a task against the hub and feeds the resulting event
// stream into the repository. At most one run is in flight; starting a new
// run cancels the previous one.
type Driver struct {
	API  *api.Client
	Repo *session.Repo

	// OnEvent, when set, observes every dispatched event after it has been
	// applied. Called on the driver's goroutine.
	OnEvent func(*events.Event)

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Run submits the task and consumes its stream until it ends. It blocks; the
// caller typically runs it on its own goroutine and uses Stop or ctx to
// interrupt. A run interrupted through its context ends as cancelled, not
// failed.
func (d *Driver) Run(ctx context.Context, task string, opts RunOpts) error {
	d.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	d.mu.Lock()
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()
	defer cancel()
	defer close(done)

	if opts.SessionID != "" {
		// follow-up run: clear transient state, keep the transcript
		d.Repo.SoftReset(opts.SessionID)
	}

	disp := &session.Dispatcher{
		Repo:          d.Repo,
		StreamSession: opts.SessionID,
		Mode:          opts.Mode,
	}

	body, err := d.API.OpenTaskStream(ctx, api.TaskRequest{
		Task:      task,
		Context:   opts.Context,
		Provider:  opts.Provider,
		Model:     opts.Model,
		SessionID: opts.SessionID,
		Mode:      opts.Mode,
	})
	if err != nil {
		return fmt.Errorf("open task stream: %w", err)
	}
	defer body.Close()

	streamErr := pump(body, func(ev *events.Event) {
		if disp.Dispatch(ev) && d.OnEvent != nil {
			d.OnEvent(ev)
		}
	})

	sid := disp.StreamSession
	switch {
	case ctx.Err() != nil && errors.Is(ctx.Err(), context.Canceled):
		// user-initiated stop: not a failure
		d.markInterrupted(sid, session.StatusCancelled, "")
		streamErr = nil
	case streamErr != nil:
		d.markInterrupted(sid, session.StatusFailed, streamErr.Error())
	}

	if sid != "" && d.Repo.ActiveID() == sid {
		if err := Reconcile(context.Background(), d.API, d.Repo, sid); err != nil {
			logger.Log.Warn("reconcile after run", "session", sid, "err", err)
		}
	}
	return streamErr
}

// Stop cancels the in-flight run, if any, and waits for it to wind down.
func (d *Driver) Stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (d *Driver) markInterrupted(sid string, status session.Status, errText string) {
	if sid == "" {
		return
	}
	s, ok := d.Repo.Get(sid)
	if !ok || s.Status.Terminal() {
		return
	}
	s.Status = status
	if errText != "" {
		s.Error = errText
	}
}
