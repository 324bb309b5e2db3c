package observer

import "context"

// LogSink is the simplest Observer: it writes every event through a
// structured Logger. Typically wrapped in a BoundedQueue only if the
// logger itself can block (e.g. shipping to a remote aggregator).
type LogSink struct {
	logger Logger
}

// NewLogSink builds a LogSink writing through logger.
func NewLogSink(logger Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(ctx context.Context, ev Event) {
	if s.logger == nil {
		return
	}
	fields := []any{"kind", ev.Kind, "agent_id", ev.AgentID, "trace_id", ev.TraceID}
	if ev.Decision != nil {
		fields = append(fields, "verdict", ev.Decision.Verdict.String(), "rule", ev.Decision.MatchedRule)
	}
	if ev.Detail != "" {
		fields = append(fields, "detail", ev.Detail)
	}
	s.logger.Info("observer_event", fields...)
}

var _ Observer = (*LogSink)(nil)
