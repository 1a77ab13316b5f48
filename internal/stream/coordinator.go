package stream

import (
	"context"
	"time"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/session"
)

// Coordinator enforces the single-writer rule on the repository: at any
// moment the repo is fed by at most one source, either a task run or a
// subscription. Switching sources always tears the old one down first.
type Coordinator struct {
	Repo   *session.Repo
	Driver *Driver
	Sub    *Subscriber
}

// NewCoordinator wires a driver and subscriber around one repository.
func NewCoordinator(c *api.Client, repo *session.Repo, snapshotTimeout time.Duration, onEvent func(*events.Event)) *Coordinator {
	return &Coordinator{
		Repo:   repo,
		Driver: &Driver{API: c, Repo: repo, OnEvent: onEvent},
		Sub:    &Subscriber{API: c, Repo: repo, SnapshotTimeout: snapshotTimeout, OnEvent: onEvent},
	}
}

// StartRun executes a task, first detaching any live subscription. Blocks
// until the run's stream ends.
func (co *Coordinator) StartRun(ctx context.Context, task string, opts RunOpts) error {
	co.Sub.Unsubscribe()
	return co.Driver.Run(ctx, task, opts)
}

// Watch attaches to a running session, first stopping any in-flight run.
func (co *Coordinator) Watch(ctx context.Context, sessionID string) error {
	co.Driver.Stop()
	return co.Sub.Attach(ctx, sessionID)
}

// Shutdown tears down whichever source is live.
func (co *Coordinator) Shutdown() {
	co.Driver.Stop()
	co.Sub.Unsubscribe()
}
