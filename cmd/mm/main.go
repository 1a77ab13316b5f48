package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/murmurdev/murmur/internal/api"
	"github.com/murmurdev/murmur/internal/auth"
	"github.com/murmurdev/murmur/internal/config"
	"github.com/murmurdev/murmur/internal/logger"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "mm",
		Short:         "murmur: run, watch, and steer multi-agent sessions on a hub",
		Long:          "Murmur mirrors a hub's live event streams into a local session view: start tasks, attach to running sessions, intervene on agents, and keep finished sessions in a local archive.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "Config file (default ~/.murmur/config.yaml)")

	root.AddCommand(
		runCmd(),
		watchCmd(),
		sessionsCmd(),
		interveneCmd(),
		loginCmd(),
		logoutCmd(),
		doctorCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type cliApp struct {
	cfg    *config.Config
	client *api.Client
}

func setup() (*cliApp, error) {
	path := cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		return nil, err
	}

	token := cfg.Hub.Token
	if token == "" {
		if dir, err := config.UserDir(); err == nil {
			store := auth.NewTokenStore(dir)
			if saved, err := store.Load(); err == nil && store.IsValid(saved) {
				token = saved.Value
			}
		}
	}
	return &cliApp{cfg: cfg, client: api.NewClient(cfg.Hub.URL, token)}, nil
}

func (a *cliApp) databasePath() (string, error) {
	if a.cfg.Database.Path != "" {
		return a.cfg.Database.Path, nil
	}
	if _, err := config.EnsureUserDir(); err != nil {
		return "", err
	}
	return config.DefaultDatabasePath()
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <token>",
		Short: "Save a hub token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.EnsureUserDir()
			if err != nil {
				return err
			}
			store := auth.NewTokenStore(dir)
			tok := &auth.Token{Value: args[0]}
			if !store.IsValid(tok) {
				return fmt.Errorf("token is already expired")
			}
			if err := store.Save(tok); err != nil {
				return err
			}
			fmt.Println("token saved")
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved hub token",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.UserDir()
			if err != nil {
				return err
			}
			if err := auth.NewTokenStore(dir).Delete(); err != nil {
				return err
			}
			fmt.Println("token removed")
			return nil
		},
	}
}
