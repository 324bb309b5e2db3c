// Package kernel provides the agent kernel: the lifecycle state machine,
// configuration surface, and composition root that the rest of the core
// (dispatch, scheduler, policy, memory, observer, executor, registryclient)
// is wired around (§4.4).
package kernel

import (
	"fmt"
	"sync"
	"time"

	"github.com/jeeves-cluster-organization/agentkernel/identity"
)

// Logger is the kernel's minimal structured-logging contract, declared
// per-package the way the teacher declares Logger wherever it needs one
// (commbus.BusLogger, agents.Logger, kernel.Logger in resources.go).
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Kernel owns the lifecycle state machine and identity of one agent
// instance, and fans lifecycle notifications out to registered handlers.
// It does not itself dispatch calls or talk to the wire: that is the job of
// the dispatch/scheduler/executor packages the composition root wires
// around it, mirroring the teacher's microkernel analogy ("the Kernel
// doesn't execute the actual work... it manages the lifecycle").
type Kernel struct {
	config   Config
	logger   Logger
	identity identity.AgentIdentity
	sm       *stateMachine

	eventHandlers []KernelEventHandler
	eventMu       sync.RWMutex

	startedAt time.Time
}

// New builds a Kernel in StateInit for the given identity and configuration.
func New(id identity.AgentIdentity, config Config, logger Logger) *Kernel {
	return &Kernel{
		config:        config,
		logger:        logger,
		identity:      id,
		sm:            newStateMachine(StateInit),
		eventHandlers: []KernelEventHandler{},
		startedAt:     time.Now().UTC(),
	}
}

// Identity returns the kernel's immutable agent identity.
func (k *Kernel) Identity() identity.AgentIdentity { return k.identity }

// Config returns the kernel's configuration.
func (k *Kernel) Config() Config { return k.config }

// State returns the current lifecycle state.
func (k *Kernel) State() State { return k.sm.current() }

// OnEvent registers a handler invoked synchronously for every emitted
// KernelEvent. Handlers are appended under a lock but invoked outside it.
func (k *Kernel) OnEvent(handler KernelEventHandler) {
	k.eventMu.Lock()
	defer k.eventMu.Unlock()
	k.eventHandlers = append(k.eventHandlers, handler)
}

func (k *Kernel) emit(event *KernelEvent) {
	event.At = time.Now().UTC()
	k.eventMu.RLock()
	handlers := make([]KernelEventHandler, len(k.eventHandlers))
	copy(handlers, k.eventHandlers)
	k.eventMu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// transition performs a guarded state change, logging and emitting a
// KernelEventStateChanged on success.
func (k *Kernel) transition(to State) error {
	from, err := k.sm.transition(to)
	if err != nil {
		if k.logger != nil {
			k.logger.Warn("kernel_transition_rejected", "from", from.String(), "to", to.String())
		}
		return err
	}
	if k.logger != nil {
		k.logger.Info("kernel_transition", "from", from.String(), "to", to.String())
	}
	k.emit(StateChangedEvent(from, to))
	return nil
}

// Start moves Init -> Ready. Called once after all collaborators (registry
// client, dispatch table, scheduler) have been wired by the composition
// root.
func (k *Kernel) Start() error {
	return k.transition(StateReady)
}

// Activate moves Ready -> Active, marking the kernel as actively serving calls.
func (k *Kernel) Activate() error {
	return k.transition(StateActive)
}

// Suspend moves Active -> Suspended. Heartbeats remain permitted in
// Suspended; the kernel does not itself gate call dispatch on this state.
func (k *Kernel) Suspend() error {
	return k.transition(StateSuspended)
}

// Resume moves Suspended -> Active.
func (k *Kernel) Resume() error {
	return k.transition(StateActive)
}

// Heartbeat reports whether the kernel's current state permits emitting a
// heartbeat (§4.4 invariant: never from Init or past Retiring).
func (k *Kernel) Heartbeat() (time.Time, error) {
	if !k.State().CanHeartbeat() {
		return time.Time{}, fmt.Errorf("kernel: cannot heartbeat from state %s", k.State())
	}
	now := time.Now().UTC()
	k.emit(DetailEvent(KernelEventHeartbeatSent, "", nil))
	return now, nil
}

// ShutdownError aggregates errors encountered while draining the kernel,
// mirroring the teacher's ShutdownError aggregation shape.
type ShutdownError struct {
	Errors []error
}

func (e *ShutdownError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "kernel: shutdown completed with no errors"
	case 1:
		return fmt.Sprintf("kernel: shutdown error: %v", e.Errors[0])
	default:
		return fmt.Sprintf("kernel: shutdown completed with %d errors", len(e.Errors))
	}
}

func (e *ShutdownError) Unwrap() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// Drain is a caller-supplied hook run during Shutdown to drain one
// collaborator (e.g. scheduler stop, registry deregister); it returns an
// error to be aggregated into the ShutdownError rather than aborting the
// remaining drain steps.
type Drain func() error

// Shutdown moves the kernel through Retiring -> Terminated, running each
// drain hook in order and aggregating failures rather than stopping early,
// the way the teacher's Kernel.Shutdown keeps terminating remaining
// processes even after one failure.
func (k *Kernel) Shutdown(drains ...Drain) error {
	k.emit(DetailEvent(KernelEventShutdownBegin, "", nil))

	var errs []error
	if err := k.transition(StateRetiring); err != nil {
		errs = append(errs, err)
	}

	for _, d := range drains {
		if err := d(); err != nil {
			errs = append(errs, err)
			if k.logger != nil {
				k.logger.Warn("kernel_drain_failed", "error", err.Error())
			}
		}
	}

	if err := k.transition(StateTerminated); err != nil {
		errs = append(errs, err)
	}

	if k.logger != nil {
		k.logger.Info("kernel_shutdown_completed", "errors", len(errs))
	}
	k.emit(DetailEvent(KernelEventShutdownDone, "", nil))

	if len(errs) > 0 {
		return &ShutdownError{Errors: errs}
	}
	return nil
}
