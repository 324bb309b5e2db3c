package memory

import (
	"context"
	"fmt"
)

// Logger is the memory bus's structured-logging contract.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Gate authorizes a memory write before it is recorded, the policy-gating
// hook named in §4.8 ("every memory write passes through the policy
// engine first"). Implementations typically close over a policy.Engine.
type Gate func(Record) bool

// ErrDenied is returned by Write when Gate rejects the record.
var ErrDenied = fmt.Errorf("memory: write denied by policy gate")

// Bus fans an authorized Record to a volatile Ring and a durable
// AppendJournal. Ring writes never fail; journal failures are logged and
// reported to the caller but do not block subsequent writes.
type Bus struct {
	gate    Gate
	ring    *Ring
	journal AppendJournal
	logger  Logger
}

// NewBus builds a Bus. journal may be nil to disable durable persistence
// (ring-only operation, e.g. for tests).
func NewBus(gate Gate, ring *Ring, journal AppendJournal, logger Logger) *Bus {
	return &Bus{gate: gate, ring: ring, journal: journal, logger: logger}
}

// Write authorizes rec via the Gate, appends it to the ring, and forwards
// it to the durable journal. Returns ErrDenied if the gate rejects it, or
// the journal's error (the ring write still happened) if persistence fails.
func (b *Bus) Write(ctx context.Context, rec Record) error {
	if b.gate != nil && !b.gate(rec) {
		if b.logger != nil {
			b.logger.Warn("memory_write_denied", "agent_id", rec.AgentID, "channel", string(rec.Channel))
		}
		return ErrDenied
	}

	b.ring.Append(rec)

	if b.journal == nil {
		return nil
	}
	if err := b.journal.Append(ctx, rec); err != nil {
		if b.logger != nil {
			b.logger.Error("memory_journal_append_failed", "agent_id", rec.AgentID, "error", err.Error())
		}
		return err
	}
	return nil
}

// Recent delegates to the underlying Ring for recent-history reads.
func (b *Bus) Recent(n int) []Record { return b.ring.Recent(n) }
