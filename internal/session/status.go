package session

// Status is the local lifecycle state of a session or agent.
//
// Sessions move pending → planning → running → {completed | failed |
// cancelled}; paused is reachable from running and returns to running.
// Agents use the same vocabulary plus the relay-coordination states.
type Status string

const (
	StatusPending      Status = "pending"
	StatusPlanning     Status = "planning"
	StatusRunning      Status = "running"
	StatusPaused       Status = "paused"
	StatusWaitingRelay Status = "waiting_relay" // agents only
	StatusRelaying     Status = "relaying"      // agents only
	StatusCompleted    Status = "completed"
	StatusFailed       Status = "failed"
	StatusCancelled    Status = "cancelled"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// serverStatuses maps the hub's status vocabulary ("active", "expired", ...)
// to local lifecycle states. "active" is absent on purpose: it depends on
// liveness and is handled in TranslateStatus.
var serverStatuses = map[string]Status{
	"pending":   StatusPending,
	"planning":  StatusPlanning,
	"running":   StatusRunning,
	"paused":    StatusPaused,
	"completed": StatusCompleted,
	"failed":    StatusFailed,
	"error":     StatusFailed,
	"expired":   StatusFailed,
	"cancelled": StatusCancelled,
}

// TranslateStatus maps a hub-side status string to a local state. An
// "active" session is running when the hub still holds it live and completed
// when it only survives in storage. Unknown strings map to pending.
func TranslateStatus(server string, isLive bool) Status {
	if server == "active" {
		if isLive {
			return StatusRunning
		}
		return StatusCompleted
	}
	if st, ok := serverStatuses[server]; ok {
		return st
	}
	return StatusPending
}
