package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/murmurdev/murmur/internal/events"
)

const (
	// report synthesized from the transcript when RUN_FINISHED arrives
	// without one
	reportTailMessages = 3
	reportMaxChars     = 500
)

// Apply mutates one session according to one normalized event. Events that
// update an unknown agent, station, tool call or message are silent no-ops:
// the stream may race ahead of slower-arriving creation events and that
// tolerance is intentional.
func Apply(s *Session, ev *events.Event) {
	s.LastActiveAt = time.Now()

	switch ev.Type {
	case events.TypeSessionCreated:
		// creation and activation are the repository's job (Dispatcher)

	case events.TypeRunStarted:
		s.Status = StatusRunning

	case events.TypeRunFinished:
		s.Status = StatusCompleted
		if s.FinalReport == "" {
			s.FinalReport = synthesizeReport(s.Messages)
		}

	case events.TypeRunError:
		s.Status = StatusFailed
		if ev.Run != nil && ev.Run.Message != "" {
			s.Error = ev.Run.Message
		}

	case events.TypePlanGenerated:
		if ev.Plan != nil {
			s.Plan = planFromPayload(ev.Plan)
		}

	case events.TypeAgentSpawned:
		if ev.Agent != nil {
			applyAgentSpawned(s, ev.Agent)
		}

	case events.TypeAgentStatusChanged:
		if ev.Agent == nil {
			return
		}
		if a, ok := s.Agents[ev.Agent.AgentID]; ok {
			a.Status = Status(ev.Agent.NewStatus)
		}

	case events.TypeAgentProgress:
		if ev.Agent == nil {
			return
		}
		if a, ok := s.Agents[ev.Agent.AgentID]; ok {
			a.Progress = ev.Agent.Progress
			a.CurrentStep = ev.Agent.CurrentStep
			a.Iterations = ev.Agent.Iterations
		}

	case events.TypeAgentThinking:
		if ev.Agent == nil {
			return
		}
		// A named agent gets the text; otherwise this is a free-running
		// assistant (direct mode) and the text lands in session scratch.
		if a, ok := s.Agents[ev.Agent.AgentID]; ok {
			a.Thinking += ev.Agent.Thinking
		} else {
			s.UngroupedThinking += ev.Agent.Thinking
		}

	case events.TypeRelayStationOpened:
		if ev.Relay == nil {
			return
		}
		if _, ok := s.Stations[ev.Relay.StationID]; !ok {
			st := &RelayStation{
				ID:     ev.Relay.StationID,
				Name:   ev.Relay.StationName,
				Phase:  ev.Relay.Phase,
				Active: true,
			}
			for _, ref := range ev.Relay.ParticipatingAgents {
				st.Participants = append(st.Participants, ref.ID)
			}
			s.Stations[st.ID] = st
		}

	case events.TypeRelayMessageSent:
		if ev.Relay == nil || ev.Relay.MessageID == "" {
			return
		}
		st := vivifyStation(s, ev.Relay.StationID)
		if st.hasMessage(ev.Relay.MessageID) {
			return // duplicate delivery, drop
		}
		st.Messages = append(st.Messages, &RelayMessage{
			ID:               ev.Relay.MessageID,
			StationID:        st.ID,
			SourceAgentID:    ev.Relay.SourceAgentID,
			SourceAgentName:  ev.Relay.SourceAgentName,
			TargetAgentIDs:   ev.Relay.TargetAgentIDs,
			RelayType:        ev.Relay.RelayType,
			Content:          ev.Relay.Content,
			Importance:       ev.Relay.Importance,
			Timestamp:        ev.Timestamp,
			Metadata:         ev.Relay.Metadata,
			ViewedBy:         ev.Relay.ViewedBy,
			AcknowledgedBy:   ev.Relay.AcknowledgedBy,
			ViewedTimestamps: ev.Relay.ViewedTimestamps,
		})

	case events.TypeRelayStationClosed:
		if ev.Relay == nil {
			return
		}
		if st, ok := s.Stations[ev.Relay.StationID]; ok {
			st.Active = false
		}

	case events.TypeToolCallStart:
		if ev.Tool == nil || ev.Tool.ToolCallID == "" {
			return
		}
		if s.findToolCall(ev.Tool.ToolCallID) != nil {
			return
		}
		tc := &ToolCall{
			ID:        ev.Tool.ToolCallID,
			Name:      ev.Tool.ToolCallName,
			Status:    ToolRunning,
			StartedAt: time.Now(),
		}
		// The call's home is decided exactly once, here: parent reference
		// resolving to a known agent puts it on that agent, anything else
		// puts it in session scratch.
		if a, ok := s.Agents[ev.Tool.ParentMessageID]; ok {
			tc.AgentID = a.ID
			tc.AgentName = a.Name
			a.ToolCalls = append(a.ToolCalls, tc)
		} else {
			s.UngroupedCalls = append(s.UngroupedCalls, tc)
		}

	case events.TypeToolCallArgs:
		if ev.Tool == nil {
			return
		}
		if tc := s.findToolCall(ev.Tool.ToolCallID); tc != nil {
			mergeArgs(tc, ev.Tool.Delta)
		}

	case events.TypeToolCallEnd:
		if ev.Tool == nil {
			return
		}
		if tc := s.findToolCall(ev.Tool.ToolCallID); tc != nil && tc.FinishedAt.IsZero() {
			tc.FinishedAt = time.Now()
		}

	case events.TypeToolCallResult:
		if ev.Tool == nil {
			return
		}
		tc := s.findToolCall(ev.Tool.ToolCallID)
		if tc == nil {
			return
		}
		res := events.ParseToolResult(ev.Tool.Result)
		if res.Success {
			tc.Status = ToolSuccess
		} else {
			tc.Status = ToolError
		}
		tc.Summary = res.Summary
		tc.Preview = res.Preview
		if tc.AgentName == "" {
			tc.AgentName = res.AgentName
		}
		if tc.FinishedAt.IsZero() {
			tc.FinishedAt = time.Now()
		}

	case events.TypeTextMessageStart:
		if ev.Text == nil || ev.Text.MessageID == "" {
			return
		}
		if s.message(ev.Text.MessageID) != nil {
			return // duplicate start, keep accumulated content
		}
		role := ev.Text.Role
		if role == "" {
			role = "assistant"
		}
		s.Messages = append(s.Messages, &Message{
			ID:        ev.Text.MessageID,
			Role:      role,
			Timestamp: time.Now(),
		})

	case events.TypeTextMessageContent:
		if ev.Text == nil {
			return
		}
		if m := s.message(ev.Text.MessageID); m != nil {
			m.Content += ev.Text.Delta
		}

	case events.TypeTextMessageEnd, events.TypeRoleEmerged,
		events.TypeHeartbeat, events.TypeStateDelta,
		events.TypeInterventionRequested, events.TypeInterventionApplied:
		// informational, no state mutation

	case events.TypeInterventionBroadcast:
		if ev.Intervention != nil {
			applyInterventionBroadcast(s, ev)
		}

	case events.TypeStateSnapshot:
		if ev.Snapshot != nil {
			ApplySnapshot(s, ev.Snapshot)
		}

	case events.TypeSessionStateChanged:
		if ev.State != nil {
			applyStateChange(s, ev.State)
		}
	}
}

func applyAgentSpawned(s *Session, p *events.AgentPayload) {
	if p.AgentID == "" {
		return
	}
	if _, ok := s.Agents[p.AgentID]; ok {
		return
	}
	a := &Agent{
		ID:              p.AgentID,
		Name:            p.AgentName,
		RoleName:        p.RoleName,
		RoleDescription: p.RoleDescription,
		Capabilities:    p.Capabilities,
		TaskSegment:     p.TaskSegment,
		Status:          StatusPending,
		WorkObjective:   p.WorkObjective,
		Deliverables:    p.Deliverables,
		ExpertiseLevel:  p.ExpertiseLevel,
		FocusAreas:      p.FocusAreas,
	}
	for _, sk := range p.AssignedSkills {
		a.AssignedSkills = append(a.AssignedSkills, sk.SkillName)
	}
	if appr, ok := p.Methodology["approach"].(string); ok {
		a.Methodology = appr
	}
	s.Agents[a.ID] = a
}

// applyInterventionBroadcast mirrors a human intervention into the relay
// station it was broadcast to, so the local station transcript matches what
// the agents saw.
func applyInterventionBroadcast(s *Session, ev *events.Event) {
	p := ev.Intervention
	if p.StationID == "" || p.InterventionID == "" {
		return
	}
	st := vivifyStation(s, p.StationID)
	if st.hasMessage(p.InterventionID) {
		return
	}
	st.Messages = append(st.Messages, &RelayMessage{
		ID:              p.InterventionID,
		StationID:       st.ID,
		SourceAgentName: p.SourceName,
		TargetAgentIDs:  p.TargetAgentIDs,
		RelayType:       "human_intervention",
		Content:         p.MessageContent,
		Importance:      p.Importance,
		Timestamp:       ev.Timestamp,
	})
}

func applyStateChange(s *Session, ch *events.StateChange) {
	switch ch.ChangeType {
	case "completed":
		s.Status = StatusCompleted
		if rep, ok := ch.Summary["final_report"].(string); ok && s.FinalReport == "" {
			s.FinalReport = truncate(rep, reportMaxChars)
		}
	case "error":
		s.Status = StatusFailed
		if msg, ok := ch.Summary["error"].(string); ok {
			s.Error = msg
		}
	}
}

// vivifyStation returns the named station, creating a placeholder for
// messages that arrive before (or without) the open event.
func vivifyStation(s *Session, id string) *RelayStation {
	if id == "" {
		id = "default"
	}
	st, ok := s.Stations[id]
	if !ok {
		st = &RelayStation{
			ID:     id,
			Name:   "station " + shortID(id),
			Active: true,
		}
		s.Stations[id] = st
	}
	return st
}

func planFromPayload(p *events.PlanPayload) *Plan {
	plan := &Plan{
		ID:                p.PlanID,
		OriginalTask:      p.OriginalTask,
		Analysis:          p.Analysis,
		EstimatedDuration: p.EstimatedDuration,
		TotalAgents:       p.TotalAgents,
	}
	for _, ph := range p.Phases {
		plan.Phases = append(plan.Phases, PlanPhase{
			Name:        ph.Name,
			Description: ph.Description,
			Roles:       ph.Roles,
			Duration:    ph.Duration,
		})
	}
	return plan
}

// mergeArgs folds a streamed JSON argument fragment into the call. Fragments
// that do not parse on their own are accumulated under a raw key until a
// complete object arrives.
func mergeArgs(tc *ToolCall, delta string) {
	if delta == "" {
		return
	}
	if tc.Args == nil {
		tc.Args = make(map[string]any)
	}
	raw, _ := tc.Args["_raw"].(string)
	raw += delta
	parsed := map[string]any{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		tc.Args["_raw"] = raw
		return
	}
	delete(tc.Args, "_raw")
	for k, v := range parsed {
		tc.Args[k] = v
	}
}

// synthesizeReport builds a final report from the tail of the transcript
// when the run finished without one.
func synthesizeReport(msgs []*Message) string {
	start := len(msgs) - reportTailMessages
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, m := range msgs[start:] {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return truncate(strings.Join(parts, "\n\n"), reportMaxChars)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
