package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/logger"
	"github.com/murmurdev/murmur/internal/session"
)

// ErrNoSnapshot is returned by Attach when the hub never delivered the
// initial state snapshot. The repository is untouched in that case.
var ErrNoSnapshot = errors.New("no state snapshot received before timeout")

const defaultSnapshotTimeout = 10 * time.Second

// Subscriber attaches to an already-running session's live stream. Attach
// succeeds only once the hub's snapshot-first contract is honored: the first
// STATE_SNAPSHOT both activates the session locally and seeds its state, so
// a failed attach leaves the repository exactly as it was.
type Subscriber struct {
	API  *api.Client
	Repo *session.Repo

	// SnapshotTimeout bounds how long Attach waits for the initial snapshot.
	SnapshotTimeout time.Duration

	// ReconnectBackoff paces reconnect attempts after a dropped connection.
	// Zero value means 1s doubling up to 30s.
	ReconnectBackoff Backoff

	// OnEvent, when set, observes every dispatched event after it has been
	// applied. Called on the subscriber's goroutine.
	OnEvent func(*events.Event)

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	commands chan func()
}

// Attach subscribes to sessionID and blocks until the initial snapshot has
// been applied, the timeout elapses, or ctx ends. On success the stream keeps
// being consumed in the background, reconnecting with backoff until the
// session ends or Unsubscribe is called.
func (s *Subscriber) Attach(ctx context.Context, sessionID string) error {
	s.Unsubscribe()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	if s.commands == nil {
		s.commands = make(chan func(), 16)
	}
	s.mu.Unlock()

	timeout := s.SnapshotTimeout
	if timeout <= 0 {
		timeout = defaultSnapshotTimeout
	}

	attached := make(chan error, 1)
	go func() {
		defer close(done)
		s.run(ctx, sessionID, attached)
	}()

	select {
	case err := <-attached:
		if err != nil {
			cancel()
			<-done
			return err
		}
		return nil
	case <-time.After(timeout):
		cancel()
		<-done
		return ErrNoSnapshot
	case <-ctx.Done():
		<-done
		return ctx.Err()
	}
}

// Perform hands fn to the consumer goroutine, which runs it before applying
// the next incoming frame. This is how out-of-band state (relay view-state
// batches) reaches the repository without a second writer. Returns false
// when the queue is full; callers with superseding data just try again on
// their next batch.
func (s *Subscriber) Perform(fn func()) bool {
	s.mu.Lock()
	ch := s.commands
	s.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- fn:
		return true
	default:
		return false
	}
}

func (s *Subscriber) drainCommands() {
	s.mu.Lock()
	ch := s.commands
	s.mu.Unlock()
	for {
		select {
		case fn := <-ch:
			fn()
		default:
			return
		}
	}
}

// Done returns a channel closed once the background consumer has fully
// stopped, either through Unsubscribe or because the stream ended.
func (s *Subscriber) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return s.done
}

// Unsubscribe stops the background consumer and waits for it to finish. Safe
// to call at any time, including when nothing is attached.
func (s *Subscriber) Unsubscribe() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (s *Subscriber) run(ctx context.Context, sessionID string, attached chan<- error) {
	var once sync.Once
	signal := func(err error) {
		once.Do(func() { attached <- err })
	}

	bo := s.ReconnectBackoff
	if bo.Base == 0 {
		bo = Backoff{Base: time.Second, Max: 30 * time.Second}
	}
	for {
		err := s.consume(ctx, sessionID, signal)
		if ctx.Err() != nil {
			return
		}
		if err == nil {
			// hub closed the stream: the session finished
			break
		}
		// reconnect only while this is still the watched session
		if s.Repo.ActiveID() != sessionID {
			return
		}
		wait := bo.Next()
		logger.Log.Warn("subscription dropped, reconnecting", "session", sessionID, "wait", wait, "err", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}

	if s.Repo.ActiveID() == sessionID {
		if err := Reconcile(context.Background(), s.API, s.Repo, sessionID); err != nil {
			logger.Log.Warn("reconcile after subscription", "session", sessionID, "err", err)
		}
	}
}

// consume runs one subscription connection. Every connection, including a
// reconnect, must deliver a fresh STATE_SNAPSHOT before any event mutates the
// repository; events arriving early are held back and replayed after it.
func (s *Subscriber) consume(ctx context.Context, sessionID string, signal func(error)) error {
	body, err := s.API.OpenSubscription(ctx, sessionID)
	if err != nil {
		signal(err)
		return err
	}
	defer body.Close()

	disp := &session.Dispatcher{Repo: s.Repo, StreamSession: sessionID}
	synced := false
	var pending []*events.Event

	deliver := func(ev *events.Event) {
		if disp.Dispatch(ev) && s.OnEvent != nil {
			s.OnEvent(ev)
		}
	}

	return pump(body, func(ev *events.Event) {
		s.drainCommands()
		if synced {
			deliver(ev)
			return
		}
		switch ev.Type {
		case events.TypeStateSnapshot:
			s.Repo.Activate(sessionID)
			synced = true
			deliver(ev)
			signal(nil)
			for _, p := range pending {
				deliver(p)
			}
			pending = nil
		case events.TypeHeartbeat:
			// keepalive, nothing to hold back
		default:
			pending = append(pending, ev)
		}
	})
}
