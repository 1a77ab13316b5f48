package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/murmurdev/murmur/internal/relayview"
	"github.com/murmurdev/murmur/internal/session"
	"github.com/murmurdev/murmur/internal/stream"
)

func watchCmd() *cobra.Command {
	var noArchive bool
	cmd := &cobra.Command{
		Use:   "watch <session-id>",
		Short: "Attach to a running session's live stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			sessionID := args[0]

			repo := session.NewRepo()
			r := newRenderer(os.Stdout)
			co := stream.NewCoordinator(a.client, repo, a.cfg.SnapshotTimeout(), r.onEvent)
			defer co.Shutdown()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			if err := co.Watch(ctx, sessionID); err != nil {
				return err
			}

			poller := relayview.New(a.client)
			poller.Start(ctx, sessionID)
			defer poller.Stop()

			for {
				select {
				case b := <-poller.Updates():
					// merged on the stream's goroutine, which owns the repo
					co.Sub.Perform(func() {
						if s, ok := repo.Get(b.SessionID); ok {
							session.MergeViewState(s, b.Messages)
						}
					})
				case <-co.Sub.Done():
					// session over; consumer stopped, the repo is ours again
					poller.Stop()
					if s, ok := repo.Get(sessionID); ok {
						r.summary(s)
						if !noArchive {
							archiveSession(a, s)
						}
					}
					return nil
				case <-ctx.Done():
					poller.Stop()
					co.Sub.Unsubscribe()
					if s, ok := repo.Get(sessionID); ok {
						r.summary(s)
					}
					return nil
				}
			}
		},
	}
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip writing the session to the local archive")
	return cmd
}
