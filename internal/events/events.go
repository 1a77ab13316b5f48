package events

// Wire-level event type strings for the hub's SSE protocol.
const (
	// Lifecycle
	TypeRunStarted          = "RUN_STARTED"
	TypeRunFinished         = "RUN_FINISHED"
	TypeRunError            = "RUN_ERROR"
	TypeSessionCreated      = "SESSION_CREATED"
	TypeSessionStateChanged = "SESSION_STATE_CHANGED"
	TypeHeartbeat           = "HEARTBEAT"

	// Text streaming
	TypeTextMessageStart   = "TEXT_MESSAGE_START"
	TypeTextMessageContent = "TEXT_MESSAGE_CONTENT"
	TypeTextMessageEnd     = "TEXT_MESSAGE_END"

	// Tool calls
	TypeToolCallStart  = "TOOL_CALL_START"
	TypeToolCallArgs   = "TOOL_CALL_ARGS"
	TypeToolCallEnd    = "TOOL_CALL_END"
	TypeToolCallResult = "TOOL_CALL_RESULT"

	// State
	TypeStateSnapshot = "STATE_SNAPSHOT"
	TypeStateDelta    = "STATE_DELTA" // reserved, carried but not applied

	// Agents
	TypeAgentSpawned       = "AGENT_SPAWNED"
	TypeAgentStatusChanged = "AGENT_STATUS_CHANGED"
	TypeAgentProgress      = "AGENT_PROGRESS"
	TypeAgentThinking      = "AGENT_THINKING"

	// Relay
	TypeRelayStationOpened = "RELAY_STATION_OPENED"
	TypeRelayMessageSent   = "RELAY_MESSAGE_SENT"
	TypeRelayStationClosed = "RELAY_STATION_CLOSED"

	// Planning
	TypePlanGenerated = "PLAN_GENERATED"
	TypeRoleEmerged   = "ROLE_EMERGED"

	// Intervention (informational on the inbound stream)
	TypeInterventionRequested = "INTERVENTION_REQUESTED"
	TypeInterventionApplied   = "INTERVENTION_APPLIED"
	TypeInterventionBroadcast = "INTERVENTION_BROADCAST"
)

// Event is a normalized frame: the frame's event name as Type, the common
// envelope fields, and exactly one populated payload for types that carry
// one. SessionID is empty when the hub omits it; the dispatcher falls back
// to the stream's bound session.
type Event struct {
	Type      string
	Timestamp string
	SessionID string

	Run          *RunPayload
	Text         *TextPayload
	Tool         *ToolPayload
	Agent        *AgentPayload
	Relay        *RelayPayload
	Plan         *PlanPayload
	Role         *RolePayload
	Snapshot     *Snapshot
	State        *StateChange
	Intervention *InterventionPayload
}

// RunPayload covers RUN_STARTED, RUN_FINISHED and RUN_ERROR.
type RunPayload struct {
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
	Message  string `json:"message"` // RUN_ERROR only
	Code     string `json:"code"`
}

// TextPayload covers the TEXT_MESSAGE_* triple.
type TextPayload struct {
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Delta     string `json:"delta"`
}

// ToolPayload covers the TOOL_CALL_* events. Delta is a streamed JSON
// argument fragment; Result is a JSON-encoded string (see ToolResult).
type ToolPayload struct {
	ToolCallID      string `json:"tool_call_id"`
	ToolCallName    string `json:"tool_call_name"`
	ParentMessageID string `json:"parent_message_id"`
	Delta           string `json:"delta"`
	Result          string `json:"result"`
}

// ToolResult is the decoded form of ToolPayload.Result.
type ToolResult struct {
	Success   bool   `json:"success"`
	Summary   string `json:"summary"`
	Preview   string `json:"preview"`
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// SkillAssignment is a skill granted to an agent at spawn time.
type SkillAssignment struct {
	SkillName        string `json:"skill_name"`
	SkillDisplayName string `json:"skill_display_name"`
	Reason           string `json:"reason"`
}

// AgentPayload covers AGENT_SPAWNED, AGENT_STATUS_CHANGED, AGENT_PROGRESS
// and AGENT_THINKING.
type AgentPayload struct {
	AgentID         string            `json:"agent_id"`
	AgentName       string            `json:"agent_name"`
	RoleName        string            `json:"role_name"`
	RoleDescription string            `json:"role_description"`
	Capabilities    []string          `json:"capabilities"`
	TaskSegment     string            `json:"task_segment"`
	WorkObjective   string            `json:"work_objective"`
	Deliverables    []string          `json:"deliverables"`
	Methodology     map[string]any    `json:"methodology"`
	AssignedSkills  []SkillAssignment `json:"assigned_skills"`
	ExpertiseLevel  string            `json:"expertise_level"`
	FocusAreas      []string          `json:"focus_areas"`

	PreviousStatus string `json:"previous_status"`
	NewStatus      string `json:"new_status"`
	Reason         string `json:"reason"`

	Progress    float64 `json:"progress"`
	CurrentStep string  `json:"current_step"`
	Iterations  int     `json:"iterations"`

	Thinking string `json:"thinking"`
}

// AgentRef names a station participant.
type AgentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RelayPayload covers the RELAY_* events.
type RelayPayload struct {
	StationID           string     `json:"station_id"`
	StationName         string     `json:"station_name"`
	Phase               int        `json:"phase"`
	ParticipatingAgents []AgentRef `json:"participating_agents"`

	MessageID        string            `json:"message_id"`
	SourceAgentID    string            `json:"source_agent_id"`
	SourceAgentName  string            `json:"source_agent_name"`
	TargetAgentIDs   []string          `json:"target_agent_ids"` // empty = broadcast
	RelayType        string            `json:"relay_type"`
	Content          string            `json:"content"`
	Importance       float64           `json:"importance"`
	Metadata         map[string]any    `json:"metadata"`
	ViewedBy         []string          `json:"viewed_by"`
	AcknowledgedBy   []string          `json:"acknowledged_by"`
	ViewedTimestamps map[string]string `json:"viewed_timestamps"`

	Summary string `json:"summary"` // RELAY_STATION_CLOSED only
}

// PlanPhase is one phase of a generated plan.
type PlanPhase struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Roles       []string `json:"roles"`
	Duration    int      `json:"duration"`
}

// PlanPayload covers PLAN_GENERATED.
type PlanPayload struct {
	PlanID            string      `json:"plan_id"`
	OriginalTask      string      `json:"original_task"`
	Analysis          string      `json:"analysis"`
	Phases            []PlanPhase `json:"phases"`
	EstimatedDuration int         `json:"estimated_duration"`
	TotalAgents       int         `json:"total_agents"`
}

// RolePayload covers ROLE_EMERGED.
type RolePayload struct {
	RoleID       string   `json:"role_id"`
	RoleName     string   `json:"role_name"`
	Description  string   `json:"description"`
	Capabilities []string `json:"capabilities"`
	FocusAreas   []string `json:"focus_areas"`
	Reasoning    string   `json:"reasoning"`
}

// StateChange covers SESSION_STATE_CHANGED, the summarized transition
// notification subscribers receive instead of full event replay.
type StateChange struct {
	ChangeType string         `json:"change_type"` // "completed", "error", ...
	Summary    map[string]any `json:"summary"`
}

// InterventionPayload covers the INTERVENTION_* events.
type InterventionPayload struct {
	RequestID        string         `json:"request_id"`
	InterventionID   string         `json:"intervention_id"`
	InterventionType string         `json:"intervention_type"`
	Scope            string         `json:"scope"`
	StationID        string         `json:"station_id"`
	SourceName       string         `json:"source_name"`
	TargetAgentID    string         `json:"target_agent_id"`
	TargetAgentIDs   []string       `json:"target_agent_ids"`
	MessageContent   string         `json:"message_content"`
	Priority         int            `json:"priority"`
	Importance       float64        `json:"importance"`
	Reason           string         `json:"reason"`
	Payload          map[string]any `json:"payload"`
	Result           string         `json:"result"`
}

// Snapshot is the STATE_SNAPSHOT bulk payload: the hub's full view of one
// session, sent as the first frame of every subscription.
type Snapshot struct {
	IsLive          bool              `json:"is_live"`
	Task            string            `json:"task"`
	Status          string            `json:"status"`
	Plan            *PlanPayload      `json:"plan"`
	Agents          []AgentSnapshot   `json:"agents"`
	RelayStations   []StationSnapshot `json:"relay_stations"`
	Messages        []MessageSnapshot `json:"messages"`
	SubscriberCount int               `json:"subscriber_count"`
}

// AgentSnapshot is one agent entry of a Snapshot.
type AgentSnapshot struct {
	AgentID         string   `json:"agent_id"`
	Name            string   `json:"name"`
	RoleName        string   `json:"role_name"`
	RoleDescription string   `json:"role_description"`
	Capabilities    []string `json:"capabilities"`
	TaskSegment     string   `json:"task_segment"`
	Status          string   `json:"status"`
	Progress        float64  `json:"progress"`
	CurrentStep     string   `json:"current_step"`
	Iterations      int      `json:"iterations"`
	Thinking        string   `json:"thinking"`
	WorkObjective   string   `json:"work_objective"`
	Deliverables    []string `json:"deliverables"`
	Methodology     string   `json:"methodology"`
}

// StationSnapshot is one relay station entry of a Snapshot.
type StationSnapshot struct {
	StationID           string                 `json:"station_id"`
	Name                string                 `json:"name"`
	Phase               int                    `json:"phase"`
	ParticipatingAgents []string               `json:"participating_agents"`
	IsActive            bool                   `json:"is_active"`
	Messages            []RelayMessageSnapshot `json:"messages"`
}

// RelayMessageSnapshot is one relay message as returned in snapshots and by
// the relay-history endpoint.
type RelayMessageSnapshot struct {
	MessageID        string            `json:"message_id"`
	StationID        string            `json:"station_id"`
	SourceAgentID    string            `json:"source_agent_id"`
	SourceAgentName  string            `json:"source_agent_name"`
	TargetAgentIDs   []string          `json:"target_agent_ids"`
	RelayType        string            `json:"relay_type"`
	Content          string            `json:"content"`
	Importance       float64           `json:"importance"`
	Timestamp        string            `json:"timestamp"`
	Metadata         map[string]any    `json:"metadata"`
	ViewedBy         []string          `json:"viewed_by"`
	AcknowledgedBy   []string          `json:"acknowledged_by"`
	ViewedTimestamps map[string]string `json:"viewed_timestamps"`
}

// MessageSnapshot is one transcript entry of a Snapshot. The hub writes
// message ids under "message_id" or "id" depending on the code path.
type MessageSnapshot struct {
	MessageID string `json:"message_id"`
	AltID     string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ID returns whichever id field the hub populated.
func (m MessageSnapshot) ID() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return m.AltID
}
