package events

import (
	"encoding/json"
	"fmt"

	"github.com/murmurdev/murmur/internal/sse"
)

// Normalize parses a frame's payload into a typed event, injecting the
// frame's event name as the discriminant. A payload that fails to parse
// yields (nil, err); the caller logs and continues; a malformed frame never
// ends the stream. Type-specific validation belongs to the lifecycle
// machine, not here.
func Normalize(f sse.Frame) (*Event, error) {
	if f.Event == "" {
		return nil, nil
	}
	ev := &Event{Type: f.Event}

	var head struct {
		Timestamp string `json:"timestamp"`
		SessionID string `json:"session_id"`
	}
	if err := json.Unmarshal([]byte(f.Data), &head); err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", f.Event, err)
	}
	ev.Timestamp = head.Timestamp
	ev.SessionID = head.SessionID

	var err error
	switch f.Event {
	case TypeRunStarted, TypeRunFinished, TypeRunError:
		ev.Run = &RunPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Run)
	case TypeTextMessageStart, TypeTextMessageContent, TypeTextMessageEnd:
		ev.Text = &TextPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Text)
	case TypeToolCallStart, TypeToolCallArgs, TypeToolCallEnd, TypeToolCallResult:
		ev.Tool = &ToolPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Tool)
	case TypeAgentSpawned, TypeAgentStatusChanged, TypeAgentProgress, TypeAgentThinking:
		ev.Agent = &AgentPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Agent)
	case TypeRelayStationOpened, TypeRelayMessageSent, TypeRelayStationClosed:
		ev.Relay = &RelayPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Relay)
	case TypePlanGenerated:
		ev.Plan = &PlanPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Plan)
	case TypeRoleEmerged:
		ev.Role = &RolePayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Role)
	case TypeStateSnapshot:
		var wrap struct {
			Snapshot *Snapshot `json:"snapshot"`
		}
		err = json.Unmarshal([]byte(f.Data), &wrap)
		ev.Snapshot = wrap.Snapshot
	case TypeSessionStateChanged:
		ev.State = &StateChange{}
		err = json.Unmarshal([]byte(f.Data), ev.State)
	case TypeInterventionRequested, TypeInterventionApplied, TypeInterventionBroadcast:
		ev.Intervention = &InterventionPayload{}
		err = json.Unmarshal([]byte(f.Data), ev.Intervention)
	case TypeSessionCreated, TypeHeartbeat, TypeStateDelta:
		// envelope only; STATE_DELTA is reserved and intentionally not decoded
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s payload: %w", f.Event, err)
	}
	return ev, nil
}

// ParseToolResult decodes the JSON-encoded result string carried by
// TOOL_CALL_RESULT. A bare (non-JSON) result string is returned as a
// summary-only result rather than an error.
func ParseToolResult(raw string) ToolResult {
	var res ToolResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return ToolResult{Success: true, Summary: raw}
	}
	return res
}
