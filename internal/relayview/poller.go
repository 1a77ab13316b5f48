// Package relayview enriches relay messages with their view-state. The
// stream only carries message content; who has seen or acknowledged a
// message lives in the hub's relay-history endpoint and has to be polled.
package relayview

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/logger"
)

const defaultFetchLimit = 100

// Batch is one relay-history fetch for one session.
type Batch struct {
	SessionID string
	Messages  []api.RelayMessage
}

// Poller periodically fetches relay history for one session. It never
// touches the repository itself: batches are delivered on Updates and must
// be merged by whichever loop owns the repo (session.MergeViewState), which
// keeps the single-writer rule intact.
type Poller struct {
	API *api.Client

	// Limiter paces hub requests. Defaults to one fetch every 5s.
	Limiter *rate.Limiter

	// Limit is the max rows per fetch.
	Limit int

	updates chan Batch

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(c *api.Client) *Poller {
	return &Poller{
		API:     c,
		Limiter: rate.NewLimiter(rate.Every(5*time.Second), 1),
		Limit:   defaultFetchLimit,
		updates: make(chan Batch, 4),
	}
}

// Updates delivers fetched batches. A slow consumer loses intermediate
// batches, never the poller: each batch carries full current view-state, so
// the next one supersedes anything dropped.
func (p *Poller) Updates() <-chan Batch {
	return p.updates
}

// Start begins polling sessionID, replacing any previous polling target.
func (p *Poller) Start(ctx context.Context, sessionID string) {
	p.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.mu.Lock()
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		p.loop(ctx, sessionID)
	}()
}

// Stop halts polling and waits for the in-flight fetch to finish. Safe to
// call at any time.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (p *Poller) loop(ctx context.Context, sessionID string) {
	for {
		if err := p.Limiter.Wait(ctx); err != nil {
			return
		}
		msgs, err := p.API.RelayHistory(ctx, sessionID, p.Limit)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Log.Debug("relay history fetch failed", "session", sessionID, "err", err)
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		select {
		case p.updates <- Batch{SessionID: sessionID, Messages: msgs}:
		default:
			// consumer is behind; drop, the next fetch supersedes this one
		}
	}
}
