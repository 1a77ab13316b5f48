package session

import "time"

// Session is the unit of isolation: one task execution and everything
// reconstructed for it from the event stream. Sessions are created on first
// reference and only removed by an explicit Close on the repository.
type Session struct {
	ID           string                   `json:"session_id"`
	Task         string                   `json:"task"`
	Status       Status                   `json:"status"`
	Mode         string                   `json:"mode,omitempty"` // "emergent" or "direct"
	Plan         *Plan                    `json:"plan,omitempty"`
	Agents       map[string]*Agent        `json:"agents"`
	Stations     map[string]*RelayStation `json:"relay_stations"`
	Messages     []*Message               `json:"messages"`
	FinalReport  string                   `json:"final_report,omitempty"`
	Error        string                   `json:"error,omitempty"`
	CreatedAt    time.Time                `json:"created_at"`
	LastActiveAt time.Time                `json:"last_active_at"`

	// Scratch state for runs that have no structured agents (direct mode):
	// tool calls with no resolvable agent and free-running assistant thinking.
	UngroupedCalls    []*ToolCall `json:"ungrouped_tool_calls,omitempty"`
	UngroupedThinking string      `json:"ungrouped_thinking,omitempty"`
}

// Agent is a unit of work spawned inside a session. Agents are never
// deleted, only transitioned to a terminal status.
type Agent struct {
	ID              string      `json:"agent_id"`
	Name            string      `json:"name"`
	RoleName        string      `json:"role_name"`
	RoleDescription string      `json:"role_description"`
	Capabilities    []string    `json:"capabilities,omitempty"`
	TaskSegment     string      `json:"task_segment,omitempty"`
	Status          Status      `json:"status"`
	Progress        float64     `json:"progress"` // 0-100
	CurrentStep     string      `json:"current_step,omitempty"`
	Iterations      int         `json:"iterations"`
	Thinking        string      `json:"thinking,omitempty"` // append-only
	WorkObjective   string      `json:"work_objective,omitempty"`
	Deliverables    []string    `json:"deliverables,omitempty"`
	Methodology     string      `json:"methodology,omitempty"`
	AssignedSkills  []string    `json:"assigned_skills,omitempty"`
	ExpertiseLevel  string      `json:"expertise_level,omitempty"`
	FocusAreas      []string    `json:"focus_areas,omitempty"`
	ToolCalls       []*ToolCall `json:"tool_calls,omitempty"`
}

// RelayStation is a coordination point where agents exchange typed messages.
// Stations are closed (Active=false) but never removed.
type RelayStation struct {
	ID           string          `json:"station_id"`
	Name         string          `json:"name"`
	Phase        int             `json:"phase"`
	Participants []string        `json:"participating_agents,omitempty"`
	Messages     []*RelayMessage `json:"messages"`
	Active       bool            `json:"is_active"`
}

// Message ids are unique within a station; duplicate sends are dropped.
func (st *RelayStation) hasMessage(id string) bool {
	for _, m := range st.Messages {
		if m.ID == id {
			return true
		}
	}
	return false
}

// RelayMessage is one typed message exchanged at a station. The view-state
// fields (ViewedBy, AcknowledgedBy, ViewedTimestamps) are enriched
// asynchronously by the relayview poller.
type RelayMessage struct {
	ID               string            `json:"message_id"`
	StationID        string            `json:"station_id"`
	SourceAgentID    string            `json:"source_agent_id"`
	SourceAgentName  string            `json:"source_agent_name"`
	TargetAgentIDs   []string          `json:"target_agent_ids,omitempty"` // empty = broadcast
	RelayType        string            `json:"relay_type"`
	Content          string            `json:"content"`
	Importance       float64           `json:"importance"`
	Timestamp        string            `json:"timestamp,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
	ViewedBy         []string          `json:"viewed_by,omitempty"`
	AcknowledgedBy   []string          `json:"acknowledged_by,omitempty"`
	ViewedTimestamps map[string]string `json:"viewed_timestamps,omitempty"`
}

// Message is one session-level transcript entry. Content grows by append
// while TEXT_MESSAGE_CONTENT deltas stream in.
type Message struct {
	ID        string    `json:"message_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall is one tool/skill invocation. AgentID records the owner resolved
// once at creation: the agent whose id matched the call's parent reference,
// or empty when the call lives in the session's ungrouped scratch list.
type ToolCall struct {
	ID         string         `json:"tool_call_id"`
	Name       string         `json:"name"`
	Args       map[string]any `json:"args,omitempty"`
	Status     string         `json:"status"` // running / success / error
	Summary    string         `json:"summary,omitempty"`
	Preview    string         `json:"preview,omitempty"`
	AgentID    string         `json:"agent_id,omitempty"`
	AgentName  string         `json:"agent_name,omitempty"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at,omitempty"`
}

// Tool call statuses.
const (
	ToolRunning = "running"
	ToolSuccess = "success"
	ToolError   = "error"
)

// Plan is the generated task plan attached by PLAN_GENERATED.
type Plan struct {
	ID                string      `json:"plan_id"`
	OriginalTask      string      `json:"original_task"`
	Analysis          string      `json:"analysis"`
	Phases            []PlanPhase `json:"phases,omitempty"`
	EstimatedDuration int         `json:"estimated_duration"`
	TotalAgents       int         `json:"total_agents"`
}

// PlanPhase is one phase of a plan.
type PlanPhase struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Roles       []string `json:"roles,omitempty"`
	Duration    int      `json:"duration,omitempty"`
}

// findToolCall looks the call up at its single home: the owning agent's list
// when one was resolved at creation, the scratch list otherwise. Returns nil
// when the call is unknown (updates to unknown calls are no-ops).
func (s *Session) findToolCall(id string) *ToolCall {
	for _, a := range s.Agents {
		for _, tc := range a.ToolCalls {
			if tc.ID == id {
				return tc
			}
		}
	}
	for _, tc := range s.UngroupedCalls {
		if tc.ID == id {
			return tc
		}
	}
	return nil
}

func (s *Session) message(id string) *Message {
	for _, m := range s.Messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}
