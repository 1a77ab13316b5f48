package session

import (
	"time"

	"github.com/murmurdev/murmur/internal/events"
)

// ApplySnapshot bulk-applies a STATE_SNAPSHOT to a session. It is
// equivalent to replaying the spawn/open/send event for every entry:
// existing entities are updated in place, unknown ones created, and
// duplicate relay/transcript messages are dropped.
func ApplySnapshot(s *Session, snap *events.Snapshot) {
	if snap.Task != "" {
		s.Task = snap.Task
	}
	s.Status = TranslateStatus(snap.Status, snap.IsLive)
	if snap.Plan != nil {
		s.Plan = planFromPayload(snap.Plan)
	}

	for _, ag := range snap.Agents {
		if ag.AgentID == "" {
			continue
		}
		a, ok := s.Agents[ag.AgentID]
		if !ok {
			a = &Agent{ID: ag.AgentID}
			s.Agents[a.ID] = a
		}
		a.Name = ag.Name
		a.RoleName = ag.RoleName
		a.RoleDescription = ag.RoleDescription
		a.Capabilities = ag.Capabilities
		a.TaskSegment = ag.TaskSegment
		a.Status = Status(ag.Status)
		a.Progress = ag.Progress
		a.CurrentStep = ag.CurrentStep
		a.Iterations = ag.Iterations
		a.WorkObjective = ag.WorkObjective
		a.Deliverables = ag.Deliverables
		a.Methodology = ag.Methodology
		// snapshots carry only the thinking tail; keep whichever is longer
		if len(ag.Thinking) > len(a.Thinking) {
			a.Thinking = ag.Thinking
		}
	}

	for _, sn := range snap.RelayStations {
		if sn.StationID == "" {
			continue
		}
		st, ok := s.Stations[sn.StationID]
		if !ok {
			st = &RelayStation{ID: sn.StationID}
			s.Stations[st.ID] = st
		}
		if sn.Name != "" {
			st.Name = sn.Name
		}
		st.Phase = sn.Phase
		st.Active = sn.IsActive
		if len(sn.ParticipatingAgents) > 0 {
			st.Participants = sn.ParticipatingAgents
		}
		for _, rm := range sn.Messages {
			if rm.MessageID == "" || st.hasMessage(rm.MessageID) {
				continue
			}
			st.Messages = append(st.Messages, relayFromSnapshot(st.ID, rm))
		}
	}

	for _, ms := range snap.Messages {
		id := ms.ID()
		if id == "" || s.message(id) != nil {
			continue
		}
		role := ms.Role
		if role == "" {
			role = "assistant"
		}
		s.Messages = append(s.Messages, &Message{
			ID:        id,
			Role:      role,
			Content:   ms.Content,
			Timestamp: time.Now(),
		})
	}
}

// MergeViewState folds polled view-state (viewed/acknowledged sets and view
// timestamps) into matching relay messages. It never inserts, removes or
// reorders messages.
func MergeViewState(s *Session, msgs []events.RelayMessageSnapshot) {
	for i := range msgs {
		rm := &msgs[i]
		st, ok := s.Stations[rm.StationID]
		if !ok {
			continue
		}
		for _, m := range st.Messages {
			if m.ID != rm.MessageID {
				continue
			}
			if len(rm.ViewedBy) > len(m.ViewedBy) {
				m.ViewedBy = rm.ViewedBy
			}
			if len(rm.AcknowledgedBy) > len(m.AcknowledgedBy) {
				m.AcknowledgedBy = rm.AcknowledgedBy
			}
			if len(rm.ViewedTimestamps) > 0 {
				if m.ViewedTimestamps == nil {
					m.ViewedTimestamps = make(map[string]string)
				}
				for k, v := range rm.ViewedTimestamps {
					m.ViewedTimestamps[k] = v
				}
			}
			break
		}
	}
}

func relayFromSnapshot(stationID string, rm events.RelayMessageSnapshot) *RelayMessage {
	return &RelayMessage{
		ID:               rm.MessageID,
		StationID:        stationID,
		SourceAgentID:    rm.SourceAgentID,
		SourceAgentName:  rm.SourceAgentName,
		TargetAgentIDs:   rm.TargetAgentIDs,
		RelayType:        rm.RelayType,
		Content:          rm.Content,
		Importance:       rm.Importance,
		Timestamp:        rm.Timestamp,
		Metadata:         rm.Metadata,
		ViewedBy:         rm.ViewedBy,
		AcknowledgedBy:   rm.AcknowledgedBy,
		ViewedTimestamps: rm.ViewedTimestamps,
	}
}
