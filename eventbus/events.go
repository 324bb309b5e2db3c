package eventbus

// Event type tags for the agent-kernel domain, replacing the teacher's
// pipeline/agent-stage vocabulary (AgentStarted/AgentCompleted) with
// kernel/dispatch/policy/memory lifecycle events.
const (
	TypeAgentRegistered       = "agent.registered"
	TypeCallReceived          = "call.received"
	TypeCallCompleted         = "call.completed"
	TypeHeartbeatSent         = "heartbeat.sent"
	TypePendingRequestExpired = "pending_request.expired"
	TypePolicyDecisionMade    = "policy.decision_made"
	TypeMemoryRecordWritten   = "memory.record_written"
	TypeMemoryRecordDropped   = "memory.record_dropped"
	TypeStreamOpened          = "stream.opened"
	TypeStreamClosed          = "stream.closed"
)

// BasicEvent is a minimal Event implementation carrying only a type tag and
// a free-form field map, sufficient for fan-out to metrics/logging
// subscribers that don't need a richer payload shape.
type BasicEvent struct {
	EventType string
	AgentID   string
	TraceID   string
	Fields    map[string]any
}

func (e BasicEvent) Type() string { return e.EventType }
