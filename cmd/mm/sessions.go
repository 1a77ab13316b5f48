package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/murmurdev/murmur/internal/store"
)

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List, inspect, and close sessions",
	}
	cmd.AddCommand(sessionsListCmd(), sessionsShowCmd(), sessionsCloseCmd())
	return cmd
}

func sessionsListCmd() *cobra.Command {
	var (
		status string
		limit  int
		local  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions on the hub (or in the local archive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			if local {
				return listLocal(a, limit)
			}
			sessions, total, err := a.client.ListSessions(context.Background(), status, limit, 0)
			if err != nil {
				return err
			}
			for _, s := range sessions {
				fmt.Printf("%-36s  %-10s  %-8s  %s\n", s.SessionID, s.Status, s.Mode, oneLine(s.Task, 60))
			}
			if total > len(sessions) {
				fmt.Printf("(%d of %d)\n", len(sessions), total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max sessions to list")
	cmd.Flags().BoolVar(&local, "local", false, "List the local archive instead of the hub")
	return cmd
}

func listLocal(a *cliApp, limit int) error {
	path, err := a.databasePath()
	if err != nil {
		return err
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	rows, err := db.ListArchived(limit)
	if err != nil {
		return err
	}
	for _, s := range rows {
		fmt.Printf("%-36s  %-10s  %-8s  %s\n", s.ID, s.Status, s.Mode, oneLine(s.Task, 60))
	}
	return nil
}

func sessionsShowCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show one session's record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			if local {
				return showLocal(a, args[0])
			}
			d, err := a.client.SessionDetail(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Printf("session:  %s\n", d.SessionID)
			fmt.Printf("status:   %s\n", d.Status)
			fmt.Printf("mode:     %s\n", d.Mode)
			fmt.Printf("task:     %s\n", d.Task)
			if d.Provider != "" {
				fmt.Printf("provider: %s / %s\n", d.Provider, d.Model)
			}
			if d.Error != "" {
				fmt.Printf("error:    %s\n", d.Error)
			}
			if d.FinalReport != "" {
				fmt.Printf("\n%s\n", d.FinalReport)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Read from the local archive instead of the hub")
	return cmd
}

func showLocal(a *cliApp, id string) error {
	path, err := a.databasePath()
	if err != nil {
		return err
	}
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	s, err := db.GetArchived(id)
	if err != nil {
		return err
	}
	if s == nil {
		return fmt.Errorf("session %s not in local archive", id)
	}
	fmt.Printf("session:  %s\n", s.ID)
	fmt.Printf("status:   %s\n", s.Status)
	fmt.Printf("task:     %s\n", s.Task)
	if s.Error != "" {
		fmt.Printf("error:    %s\n", s.Error)
	}
	for _, m := range s.Messages {
		fmt.Printf("\n[%s] %s\n", m.Role, m.Content)
	}
	if s.FinalReport != "" {
		fmt.Printf("\n%s\n", s.FinalReport)
	}
	return nil
}

func sessionsCloseCmd() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a session on the hub (or delete it from the archive)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}
			if local {
				path, err := a.databasePath()
				if err != nil {
					return err
				}
				db, err := store.Open(path)
				if err != nil {
					return err
				}
				defer db.Close()
				return db.DeleteArchived(args[0])
			}
			if err := a.client.CloseSession(context.Background(), args[0]); err != nil {
				return err
			}
			fmt.Println("closed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Delete from the local archive instead of the hub")
	return cmd
}

func oneLine(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}
