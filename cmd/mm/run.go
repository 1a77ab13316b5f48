package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/murmurdev/murmur/internal/logger"
	"github.com/murmurdev/murmur/internal/session"
	"github.com/murmurdev/murmur/internal/store"
	"github.com/murmurdev/murmur/internal/stream"
)

func runCmd() *cobra.Command {
	var (
		provider  string
		model     string
		mode      string
		sessionID string
		taskCtx   string
		noArchive bool
	)
	cmd := &cobra.Command{
		Use:   "run <task>",
		Short: "Execute a task on the hub and stream its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			if provider == "" {
				provider = a.cfg.Defaults.Provider
			}
			if model == "" {
				model = a.cfg.Defaults.Model
			}
			if mode == "" {
				mode = a.cfg.Defaults.Mode
			}

			repo := session.NewRepo()
			r := newRenderer(os.Stdout)
			co := stream.NewCoordinator(a.client, repo, a.cfg.SnapshotTimeout(), r.onEvent)
			defer co.Shutdown()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			runErr := co.StartRun(ctx, args[0], stream.RunOpts{
				Provider:  provider,
				Model:     model,
				Mode:      mode,
				SessionID: sessionID,
				Context:   taskCtx,
			})

			if s := repo.Active(); s != nil {
				r.summary(s)
				if !noArchive {
					archiveSession(a, s)
				}
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&provider, "provider", "", "LLM provider for this run")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model for this run")
	cmd.Flags().StringVar(&mode, "mode", "", "Execution mode: emergent or direct")
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Resume an existing session")
	cmd.Flags().StringVar(&taskCtx, "context", "", "Extra context passed with the task")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "Skip writing the session to the local archive")
	return cmd
}

func archiveSession(a *cliApp, s *session.Session) {
	path, err := a.databasePath()
	if err != nil {
		logger.Log.Warn("archive skipped", "err", err)
		return
	}
	db, err := store.Open(path)
	if err != nil {
		logger.Log.Warn("archive skipped", "err", err)
		return
	}
	defer db.Close()
	if err := db.Archive(s); err != nil {
		logger.Log.Warn("archive failed", "session", s.ID, "err", err)
	}
}
