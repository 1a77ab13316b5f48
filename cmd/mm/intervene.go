package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/murmurdev/murmur/internal/api"
)

func interveneCmd() *cobra.Command {
	var (
		itype     string
		agentID   string
		agentIDs  []string
		scope     string
		message   string
		reason    string
		priority  int
		broadcast bool
	)
	cmd := &cobra.Command{
		Use:   "intervene <session-id>",
		Short: "Pause, resume, cancel, or message a session's agents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup()
			if err != nil {
				return err
			}

			req := api.InterventionRequest{
				SessionID:        args[0],
				AgentID:          agentID,
				AgentIDs:         agentIDs,
				InterventionType: itype,
				Scope:            scope,
				Reason:           reason,
				Priority:         priority,
				BroadcastToRelay: broadcast,
			}
			if message != "" {
				req.Payload = map[string]any{"message": message}
			}
			if req.Scope == "" {
				switch {
				case len(agentIDs) > 0:
					req.Scope = "selected"
				case agentID != "":
					req.Scope = "single"
				default:
					req.Scope = "all"
				}
			}

			res, err := a.client.Intervene(context.Background(), req)
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("intervention rejected: %s", res.Message)
			}
			fmt.Printf("%s applied (scope %s)\n", res.InterventionType, res.Scope)
			for _, m := range res.RelayMessages {
				fmt.Printf("~ relayed to %s: %s\n", m.StationID, m.Content)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&itype, "type", "t", "", "Intervention type: pause, resume, cancel, inject, adjust")
	cmd.Flags().StringVar(&agentID, "agent", "", "Target a single agent")
	cmd.Flags().StringSliceVar(&agentIDs, "agents", nil, "Target several agents")
	cmd.Flags().StringVar(&scope, "scope", "", "single, selected, all, or broadcast")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message payload for inject/adjust")
	cmd.Flags().StringVar(&reason, "reason", "", "Why this intervention is happening")
	cmd.Flags().IntVar(&priority, "priority", 0, "Delivery priority")
	cmd.Flags().BoolVar(&broadcast, "broadcast", false, "Also announce on the session's relay stations")
	cmd.MarkFlagRequired("type")
	return cmd
}
