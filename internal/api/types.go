package api

import "github.com/murmurdev/murmur/internal/events"

// RelayMessage rows from the hub share the snapshot wire shape.
type RelayMessage = events.RelayMessageSnapshot

// LiveState is the /live-state response: the hub's full current view of one
// session, live from memory or reconstructed from storage.
type LiveState struct {
	IsLive        bool                     `json:"is_live"`
	SessionID     string                   `json:"session_id"`
	Task          string                   `json:"task"`
	Status        string                   `json:"status"`
	Plan          *events.PlanPayload      `json:"plan"`
	Agents        []events.AgentSnapshot   `json:"agents"`
	RelayStations []events.StationSnapshot `json:"relay_stations"`
	Messages      []events.MessageSnapshot `json:"messages"`
	TotalMessages int                      `json:"total_messages"`
}

// Snapshot converts the live state to the STATE_SNAPSHOT payload shape so it
// can be bulk-applied through the same path as a subscription snapshot.
func (ls *LiveState) Snapshot() *events.Snapshot {
	return &events.Snapshot{
		IsLive:        ls.IsLive,
		Task:          ls.Task,
		Status:        ls.Status,
		Plan:          ls.Plan,
		Agents:        ls.Agents,
		RelayStations: ls.RelayStations,
		Messages:      ls.Messages,
	}
}

// InterventionResult reports what an intervention did. Success and Message
// come from the response envelope.
type InterventionResult struct {
	Success bool   `json:"-"`
	Message string `json:"-"`

	InterventionType string         `json:"intervention_type"`
	Scope            string         `json:"scope"`
	TargetAgentID    string         `json:"target_agent_id"`
	TargetAgentIDs   []string       `json:"target_agent_ids"`
	RelayMessages    []RelayMessage `json:"relay_messages"`
}
