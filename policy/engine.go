package policy

import "time"

// Rule is one ordered matcher in the engine: the first Rule whose Match
// returns true decides the Request, per §4.7's first-match-wins semantics.
type Rule struct {
	Name    string
	Match   func(Request) bool
	Verdict Verdict
	Reason  string
	// Approvers lists the identifiers required to resolve an Escalate
	// verdict produced by this rule (§4.7). Ignored for Allow/Deny rules.
	Approvers []string
}

// Logger is the policy engine's structured-logging contract.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Engine evaluates a Request against an ordered rule list, falling back to
// a configured default decision if no rule matches.
type Engine struct {
	rules              []Rule
	defaultVerdict     Verdict
	defaultReason      string
	defaultApprovers   []string
	escalationDeadline time.Duration
	approvals          *ApprovalTracker
	logger             Logger
}

// Config configures an Engine.
type Config struct {
	Rules              []Rule
	DefaultVerdict     Verdict
	DefaultReason      string
	DefaultApprovers   []string
	EscalationDeadline time.Duration
}

// NewEngine builds an Engine from cfg, backed by its own ApprovalTracker for
// the Escalate path.
func NewEngine(cfg Config, logger Logger) *Engine {
	if cfg.EscalationDeadline <= 0 {
		cfg.EscalationDeadline = 5 * time.Minute
	}
	return &Engine{
		rules:              append([]Rule(nil), cfg.Rules...),
		defaultVerdict:     cfg.DefaultVerdict,
		defaultReason:      cfg.DefaultReason,
		defaultApprovers:   cfg.DefaultApprovers,
		escalationDeadline: cfg.EscalationDeadline,
		approvals:          NewApprovalTracker(),
		logger:             logger,
	}
}

// Approvals returns the engine's approval tracker, for the executor/observer
// to query pending escalations and for an external approver to resolve them.
func (e *Engine) Approvals() *ApprovalTracker { return e.approvals }

// Evaluate runs req through the rule list in order and returns the first
// match's Decision, or the configured default if none match. An Escalate
// verdict creates a tracked Approval with the engine's escalation deadline.
func (e *Engine) Evaluate(req Request) Decision {
	for _, rule := range e.rules {
		if rule.Match == nil || !rule.Match(req) {
			continue
		}
		d := Decision{Verdict: rule.Verdict, MatchedRule: rule.Name, Reason: rule.Reason, DecidedAt: time.Now().UTC()}
		if rule.Verdict == VerdictEscalate {
			d.Approval = e.approvals.Create(req, e.escalationDeadline, rule.Approvers)
		}
		if e.logger != nil {
			e.logger.Info("policy_decision", "rule", rule.Name, "verdict", d.Verdict.String(), "agent_id", req.AgentID, "action", req.Action)
		}
		return d
	}

	d := Decision{Verdict: e.defaultVerdict, MatchedRule: "default", Reason: e.defaultReason, DecidedAt: time.Now().UTC()}
	if e.defaultVerdict == VerdictEscalate {
		d.Approval = e.approvals.Create(req, e.escalationDeadline, e.defaultApprovers)
	}
	if e.logger != nil {
		e.logger.Info("policy_decision", "rule", "default", "verdict", d.Verdict.String(), "agent_id", req.AgentID, "action", req.Action)
	}
	return d
}
