package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/murmurdev/murmur/internal/events"
	"github.com/murmurdev/murmur/internal/session"
)

// renderer turns dispatched events into console output. Text deltas stream
// inline; everything else gets its own annotated line.
type renderer struct {
	out       io.Writer
	streaming bool // an unterminated text line is on screen
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{out: out}
}

func (r *renderer) onEvent(ev *events.Event) {
	switch ev.Type {
	case events.TypeSessionCreated:
		r.line("session %s", ev.SessionID)
	case events.TypeRunStarted:
		r.line("run started")
	case events.TypeRunFinished:
		r.line("run finished")
	case events.TypeRunError:
		if ev.Run != nil {
			r.line("run error: %s", ev.Run.Message)
		}
	case events.TypePlanGenerated:
		if ev.Plan != nil {
			r.line("plan: %d phases, %d agents", len(ev.Plan.Phases), ev.Plan.TotalAgents)
		}
	case events.TypeAgentSpawned:
		if ev.Agent != nil {
			r.line("+ %s (%s)", ev.Agent.AgentName, ev.Agent.RoleName)
		}
	case events.TypeAgentStatusChanged:
		if ev.Agent != nil {
			r.line("  %s -> %s", ev.Agent.AgentID, ev.Agent.NewStatus)
		}
	case events.TypeAgentProgress:
		if ev.Agent != nil && ev.Agent.CurrentStep != "" {
			r.line("  %s %3.0f%% %s", ev.Agent.AgentID, ev.Agent.Progress, ev.Agent.CurrentStep)
		}
	case events.TypeTextMessageContent:
		if ev.Text != nil {
			fmt.Fprint(r.out, ev.Text.Delta)
			r.streaming = !strings.HasSuffix(ev.Text.Delta, "\n")
		}
	case events.TypeTextMessageEnd:
		r.breakLine()
	case events.TypeToolCallStart:
		if ev.Tool != nil {
			r.line("* %s", ev.Tool.ToolCallName)
		}
	case events.TypeToolCallResult:
		if ev.Tool != nil {
			res := events.ParseToolResult(ev.Tool.Result)
			if res.Summary != "" {
				r.line("  %s", res.Summary)
			}
		}
	case events.TypeRelayMessageSent:
		if ev.Relay != nil {
			r.line("~ [%s] %s: %s", ev.Relay.RelayType, ev.Relay.SourceAgentName, ev.Relay.Content)
		}
	case events.TypeRelayStationOpened:
		if ev.Relay != nil {
			r.line("~ station %s opened", ev.Relay.StationName)
		}
	case events.TypeInterventionApplied:
		if ev.Intervention != nil {
			r.line("! intervention %s applied", ev.Intervention.InterventionType)
		}
	case events.TypeInterventionBroadcast:
		if ev.Intervention != nil {
			r.line("! %s", ev.Intervention.MessageContent)
		}
	}
}

// line prints one annotated line, first closing any streaming text line.
func (r *renderer) line(format string, args ...any) {
	r.breakLine()
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *renderer) breakLine() {
	if r.streaming {
		fmt.Fprintln(r.out)
		r.streaming = false
	}
}

// summary prints the session's final state once its stream is over.
func (r *renderer) summary(s *session.Session) {
	r.breakLine()
	fmt.Fprintf(r.out, "\n%s  %s\n", s.ID, s.Status)
	if s.Error != "" {
		fmt.Fprintf(r.out, "error: %s\n", s.Error)
	}
	if s.FinalReport != "" {
		fmt.Fprintf(r.out, "%s\n", s.FinalReport)
	}
}
