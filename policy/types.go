// Package policy provides the governance gate every call and tool
// invocation passes through before execution: an ordered rule engine that
// returns Allow, Deny, or Escalate, plus approval tracking for the
// Escalate path (§4.7).
package policy

import "time"

// Verdict is the tagged-union outcome of evaluating a PolicyRequest.
type Verdict int

const (
	// VerdictAllow permits execution to proceed immediately.
	VerdictAllow Verdict = iota
	// VerdictDeny blocks execution; the caller must not proceed.
	VerdictDeny
	// VerdictEscalate defers the decision to an external approver with a
	// deadline; execution is suspended until Resolve or expiry.
	VerdictEscalate
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllow:
		return "Allow"
	case VerdictDeny:
		return "Deny"
	case VerdictEscalate:
		return "Escalate"
	default:
		return "Unknown"
	}
}

// Request describes the action a caller wants to perform, evaluated
// against the rule set.
type Request struct {
	AgentID    string
	Capability string
	Action     string
	Scopes     []string
	Metadata   map[string]string
}

// Decision is the result of evaluating a Request: the verdict, the rule
// that produced it (for audit), and — for Escalate — the approval record
// tracking its resolution.
type Decision struct {
	Verdict    Verdict
	MatchedRule string
	Reason     string
	Approval   *Approval // non-nil only when Verdict == VerdictEscalate
	DecidedAt  time.Time
}
