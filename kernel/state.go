package kernel

import (
	"fmt"
	"sync/atomic"
)

// State is the kernel's lifecycle state (§3, §4.4). Transitions are
// monotonic except Active⇄Suspended; nothing regresses past Retiring.
type State int32

const (
	StateInit State = iota
	StateReady
	StateActive
	StateSuspended
	StateRetiring
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateReady:
		return "Ready"
	case StateActive:
		return "Active"
	case StateSuspended:
		return "Suspended"
	case StateRetiring:
		return "Retiring"
	case StateTerminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// CanHeartbeat reports whether a heartbeat may be emitted from this state
// (invariant: only {Ready, Active, Suspended}, never Init).
func (s State) CanHeartbeat() bool {
	return s == StateReady || s == StateActive || s == StateSuspended
}

// validStateTransitions mirrors the teacher's validTransitions table
// (kernel/lifecycle.go), generalized from process states to agent
// lifecycle states per §4.4.
var validStateTransitions = map[State]map[State]bool{
	StateInit: {
		StateReady: true,
	},
	StateReady: {
		StateActive:   true,
		StateRetiring: true,
	},
	StateActive: {
		StateSuspended: true,
		StateRetiring:  true,
	},
	StateSuspended: {
		StateActive:   true,
		StateRetiring: true,
	},
	StateRetiring: {
		StateTerminated: true,
	},
	StateTerminated: {}, // terminal
}

// IsValidStateTransition reports whether a transition from `from` to `to`
// is legal per §4.4.
func IsValidStateTransition(from, to State) bool {
	if targets, ok := validStateTransitions[from]; ok {
		return targets[to]
	}
	return false
}

// ErrInvalidState is returned by transition attempts that are illegal from
// the current state; the state is left unchanged.
type ErrInvalidState struct {
	From, To State
}

func (e *ErrInvalidState) Error() string {
	return fmt.Sprintf("kernel: invalid transition from %s to %s", e.From, e.To)
}

// stateMachine guards State with a compare-and-set discipline (§5: "the
// lifecycle state is guarded by an atomic-update discipline; transitions
// compare-and-set; illegal CAS returns InvalidState").
type stateMachine struct {
	v atomic.Int32
}

func newStateMachine(initial State) *stateMachine {
	sm := &stateMachine{}
	sm.v.Store(int32(initial))
	return sm
}

func (sm *stateMachine) current() State {
	return State(sm.v.Load())
}

// transition attempts from -> to via CAS, retrying only while the current
// state still equals a value for which the transition is legal (so a
// concurrent legal transition to a different still-valid source is not
// silently clobbered). Returns *ErrInvalidState if the transition is not
// legal from whatever the current state turns out to be.
func (sm *stateMachine) transition(to State) (State, error) {
	for {
		from := State(sm.v.Load())
		if !IsValidStateTransition(from, to) {
			return from, &ErrInvalidState{From: from, To: to}
		}
		if sm.v.CompareAndSwap(int32(from), int32(to)) {
			return from, nil
		}
		// Lost the race; re-read and retry.
	}
}
