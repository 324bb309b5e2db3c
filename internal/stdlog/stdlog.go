// Package stdlog provides the default structured-logging implementation
// shared across the agent kernel's packages. Each package declares its own
// minimal Logger interface (the teacher's protocol-first convention — see
// commbus.BusLogger and agents.Logger); Logger here satisfies all of them
// structurally so callers can pass one concrete value everywhere.
package stdlog

import "log"

// Logger is the common shape every package-local Logger interface reduces
// to: leveled, structured (key-value) logging plus field binding.
type Logger struct {
	prefix string
	fields []any
}

// New returns a Logger that writes through the standard library's log
// package, exactly as the teacher's defaultBusLogger does.
func New() *Logger {
	return &Logger{}
}

// Bind returns a derived Logger with additional fields attached to every
// subsequent call, mirroring agents.Logger.Bind.
func (l *Logger) Bind(fields ...any) *Logger {
	merged := make([]any, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{prefix: l.prefix, fields: merged}
}

func (l *Logger) Debug(msg string, keysAndValues ...any) {
	log.Printf("[DEBUG] %s %v", msg, append(append([]any{}, l.fields...), keysAndValues...))
}

func (l *Logger) Info(msg string, keysAndValues ...any) {
	log.Printf("[INFO] %s %v", msg, append(append([]any{}, l.fields...), keysAndValues...))
}

func (l *Logger) Warn(msg string, keysAndValues ...any) {
	log.Printf("[WARN] %s %v", msg, append(append([]any{}, l.fields...), keysAndValues...))
}

func (l *Logger) Error(msg string, keysAndValues ...any) {
	log.Printf("[ERROR] %s %v", msg, append(append([]any{}, l.fields...), keysAndValues...))
}

// Noop is a Logger that discards everything, used in tests and as a safe
// zero value when no logger is configured.
type Noop struct{}

func (Noop) Debug(string, ...any) {}
func (Noop) Info(string, ...any)  {}
func (Noop) Warn(string, ...any)  {}
func (Noop) Error(string, ...any) {}
