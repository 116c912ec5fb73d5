// Package device implements the Device Runtime & Lifecycle FSM (§4.2):
// instantiating devices from blueprints, driving each through the
// formal lifecycle state machine, restart policies, health, child
// supervision and timers.
package device

import (
	"context"
	"fmt"
	"sync"

	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/failure"
	"github.com/devicemesh-io/devicecore/message"
)

// LifecycleState is a node of the device lifecycle FSM (§4.2).
type LifecycleState string

const (
	StateDetached  LifecycleState = "Detached"
	StateAttaching LifecycleState = "Attaching"
	StateStopped   LifecycleState = "Stopped"
	StateStarting  LifecycleState = "Starting"
	StateRunning   LifecycleState = "Running"
	StateStopping  LifecycleState = "Stopping"
	StateFailed    LifecycleState = "Failed"
	StateDetaching LifecycleState = "Detaching"
)

// transient reports whether a state is one of the "in progress"
// states that kick off a lifecycle plan and a completion hook on
// entry (§4.2).
func (s LifecycleState) transient() bool {
	switch s {
	case StateAttaching, StateStarting, StateStopping, StateDetaching:
		return true
	default:
		return false
	}
}

// LifecycleEvent is an external stimulus driving the FSM (§3).
type LifecycleEvent string

const (
	EventAttach LifecycleEvent = "Attach"
	EventStart  LifecycleEvent = "Start"
	EventStop   LifecycleEvent = "Stop"
	EventReset  LifecycleEvent = "Reset"
	EventDetach LifecycleEvent = "Detach"
	EventFail   LifecycleEvent = "Fail"
)

// transitionTable encodes the graph in §4.2: for a given (state,
// event) pair, the target transient or terminal state. "ok" completion
// of a transient state is driven internally by completeTransition, not
// by an external event, so the table only needs the event-triggered
// edges.
var transitionTable = map[LifecycleState]map[LifecycleEvent]LifecycleState{
	StateDetached: {
		EventAttach: StateAttaching,
	},
	StateStopped: {
		EventStart:  StateStarting,
		EventDetach: StateDetaching,
	},
	StateRunning: {
		EventStop: StateStopping,
	},
	StateFailed: {
		EventReset:  StateStopped,
		EventDetach: StateDetaching,
	},
}

// completionTarget names the state a transient state settles into on
// successful completion of its lifecycle plan and hook (§4.2).
var completionTarget = map[LifecycleState]LifecycleState{
	StateAttaching: StateStopped,
	StateStarting:  StateRunning,
	StateStopping:  StateStopped,
	StateDetaching: StateDetached,
}

// Hook is a component's own lifecycle callback, run alongside the
// blueprint's lifecycle plan (if any) when entering a transient state
// (§4.2). Returning an error fails the transition, moving the FSM to
// Failed.
type Hook func(ctx context.Context) error

// LifecycleFSM drives one device instance's lifecycle state, per
// §4.2/§5: transitions for a single device are totally ordered (one
// transition executes at a time), and every observed state sequence is
// a walk on the graph above (§8 invariant 1).
type LifecycleFSM struct {
	mu    sync.Mutex
	state LifecycleState

	deviceName string
	bus        *MessageBus
	logger     core.Logger

	// hooks, keyed by the transient state they run on entry to.
	hooks map[LifecycleState]Hook

	lastFailure *failure.Failure
}

// NewLifecycleFSM builds an FSM starting in Detached, the mandated
// initial state (§3).
func NewLifecycleFSM(deviceName string, bus *MessageBus, logger core.Logger) *LifecycleFSM {
	if logger == nil {
		logger = core.NopLogger()
	}
	return &LifecycleFSM{
		state:      StateDetached,
		deviceName: deviceName,
		bus:        bus,
		logger:     logger.Named("device.lifecycle"),
		hooks:      map[LifecycleState]Hook{},
	}
}

// SetHook registers the component's own completion hook for entry into
// a transient state, run after any lifecycle plan configured on the
// blueprint for that transition. The hook is skipped when that plan
// fails.
func (f *LifecycleFSM) SetHook(state LifecycleState, hook Hook) {
	if !state.transient() {
		panic(fmt.Sprintf("device: hooks may only be set on transient states, got %q", state))
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[state] = hook
}

// State returns the current lifecycle state.
func (f *LifecycleFSM) State() LifecycleState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// LastFailure returns the failure that most recently moved the FSM to
// Failed, if any.
func (f *LifecycleFSM) LastFailure() *failure.Failure {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFailure
}

// planRunner executes a blueprint's lifecycle plan for the transition
// being entered, if one is configured. Device supplies this as a
// closure over its own blueprint and transaction coordinator, keeping
// LifecycleFSM free of a dependency on the transaction/blueprint
// packages.
type planRunner func(ctx context.Context, state LifecycleState) error

// Trigger applies event to the FSM. If event moves the FSM into a
// transient state, runPlan (if non-nil) and then any registered Hook
// are executed; success completes into the corresponding terminal
// state, failure moves the FSM to Failed with the given failure
// recorded (§4.2, §7: "a failure during Starting/Stopping moves FSM to
// Failed").
func (f *LifecycleFSM) Trigger(ctx context.Context, event LifecycleEvent, runPlan planRunner) error {
	f.mu.Lock()
	if event == EventFail {
		if f.state == StateDetached || f.state == StateFailed {
			f.mu.Unlock()
			return fmt.Errorf("device: event %q not valid from state %q", event, f.state)
		}
		from := f.state
		f.state = StateFailed
		f.mu.Unlock()
		f.emitTransition(from, StateFailed)
		return nil
	}
	edges, ok := transitionTable[f.state]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("device: no transitions defined from state %q", f.state)
	}
	target, ok := edges[event]
	if !ok {
		f.mu.Unlock()
		return fmt.Errorf("device: event %q not valid from state %q", event, f.state)
	}
	from := f.state
	f.state = target
	f.mu.Unlock()
	f.emitTransition(from, target)

	if !target.transient() {
		return nil
	}
	return f.runTransient(ctx, target, runPlan)
}

// runTransient executes the lifecycle plan and component hook for a
// transient state, then completes into the next state or fails.
func (f *LifecycleFSM) runTransient(ctx context.Context, transient LifecycleState, runPlan planRunner) error {
	var stepErr error
	if runPlan != nil {
		stepErr = runPlan(ctx, transient)
	}
	if stepErr == nil {
		f.mu.Lock()
		hook := f.hooks[transient]
		f.mu.Unlock()
		if hook != nil {
			stepErr = hook(ctx)
		}
	}

	if stepErr != nil {
		fl, ok := failure.As(stepErr)
		if !ok {
			fl = failure.New(failure.KindUnknown, "lifecycle transition failed", stepErr)
		}
		f.mu.Lock()
		from := f.state
		f.state = StateFailed
		f.lastFailure = fl
		f.mu.Unlock()
		f.logger.Error("lifecycle transition failed",
			core.StringLogField("from", string(from)),
			core.ErrorLogField("error", stepErr))
		f.emitTransition(from, StateFailed)
		return stepErr
	}

	target := completionTarget[transient]
	f.mu.Lock()
	from := f.state
	f.state = target
	f.mu.Unlock()
	f.emitTransition(from, target)
	return nil
}

func (f *LifecycleFSM) emitTransition(from, to LifecycleState) {
	f.logger.Info("lifecycle state changed",
		core.StringLogField("from", string(from)),
		core.StringLogField("to", string(to)))
	if f.bus != nil {
		f.bus.Publish(message.LifecycleStateChanged(f.deviceName, string(from), string(to)))
	}
}
