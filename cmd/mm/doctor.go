package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/murmurdev/murmur/internal/auth"
	"github.com/murmurdev/murmur/internal/config"
	"github.com/murmurdev/murmur/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check hub reachability, credentials, and the local archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			fmt.Println("murmur doctor")
			fmt.Println()

			fmt.Printf("  %-12s %s\n", "hub", a.cfg.Hub.URL)
			if err := a.client.Health(context.Background()); err != nil {
				fmt.Printf("  %-12s not reachable: %v\n", "health", err)
			} else {
				fmt.Printf("  %-12s ok\n", "health")
			}

			switch {
			case a.cfg.Hub.Token != "":
				fmt.Printf("  %-12s from config\n", "token")
			default:
				dir, err := config.UserDir()
				if err != nil {
					break
				}
				ts := auth.NewTokenStore(dir)
				saved, err := ts.Load()
				switch {
				case err != nil:
					fmt.Printf("  %-12s unreadable: %v\n", "token", err)
				case saved == nil:
					fmt.Printf("  %-12s none (run: mm login <token>)\n", "token")
				case !ts.IsValid(saved):
					fmt.Printf("  %-12s expired\n", "token")
				default:
					fmt.Printf("  %-12s ok\n", "token")
				}
			}

			path, err := a.databasePath()
			if err != nil {
				fmt.Printf("  %-12s %v\n", "archive", err)
				return nil
			}
			db, err := store.Open(path)
			if err != nil {
				fmt.Printf("  %-12s cannot open %s: %v\n", "archive", path, err)
				return nil
			}
			defer db.Close()
			rows, err := db.ListArchived(1000)
			if err != nil {
				fmt.Printf("  %-12s %s (unreadable: %v)\n", "archive", path, err)
				return nil
			}
			fmt.Printf("  %-12s %s (%d sessions)\n", "archive", path, len(rows))
			return nil
		},
	}
}
