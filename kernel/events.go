package kernel

import "time"

// KernelEventType tags the kind of lifecycle notification a Kernel emits to
// its registered handlers and, from there, onward to the event bus and
// observability layer.
type KernelEventType string

const (
	KernelEventStateChanged   KernelEventType = "kernel.state_changed"
	KernelEventHeartbeatSent  KernelEventType = "kernel.heartbeat_sent"
	KernelEventCallReceived   KernelEventType = "kernel.call_received"
	KernelEventCallCompleted  KernelEventType = "kernel.call_completed"
	KernelEventShutdownBegin  KernelEventType = "kernel.shutdown_begin"
	KernelEventShutdownDone   KernelEventType = "kernel.shutdown_done"
)

// KernelEvent is a single lifecycle notification, generalized from the
// teacher's process-lifecycle KernelEvent to agent lifecycle state.
type KernelEvent struct {
	EventType KernelEventType
	At        time.Time
	From      State
	To        State
	Detail    string
	Err       error
}

// StateChangedEvent builds a KernelEventStateChanged notification.
func StateChangedEvent(from, to State) *KernelEvent {
	return &KernelEvent{EventType: KernelEventStateChanged, From: from, To: to}
}

// DetailEvent builds a notification carrying only a free-form detail string,
// used for heartbeat/call/shutdown events that don't describe a transition.
func DetailEvent(t KernelEventType, detail string, err error) *KernelEvent {
	return &KernelEvent{EventType: t, Detail: detail, Err: err}
}

// KernelEventHandler handles a kernel event synchronously; handlers must not
// block for long since emit invokes them inline under no lock.
type KernelEventHandler func(*KernelEvent)
