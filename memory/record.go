// Package memory provides the policy-gated memory bus: every write fans to
// a bounded volatile ring (for fast recent-history reads) and a durable
// AppendJournal collaborator (§4.8).
package memory

import "time"

// Channel classifies what kind of memory a record represents.
type Channel string

const (
	ChannelObservation Channel = "observation"
	ChannelDecision    Channel = "decision"
	ChannelToolResult  Channel = "tool_result"
	ChannelAudit       Channel = "audit"
)

// Record is one append-only memory entry.
type Record struct {
	AgentID   string
	Channel   Channel
	TraceID   string
	Content   []byte
	WrittenAt time.Time
}
