package device

import "sync"

// OperationalFSM is a generic, user-defined state machine carried by a
// device instance when its blueprint declares the operationalFsm
// feature (§3). Unlike LifecycleFSM, both the state and event types
// are caller-defined (e.g. a boiler's own Idle/Heating/Cooling model);
// the runtime only provides the thread-safe transition table and
// current-state bookkeeping, mirroring how LifecycleFSM is structured
// but generalized with Go generics since the operational states are
// not known to the core.
type OperationalFSM[S comparable, E comparable] struct {
	mu          sync.Mutex
	state       S
	transitions map[S]map[E]S
	onChange    func(from, to S)
}

// NewOperationalFSM builds an OperationalFSM starting in initial, with
// the given transition table. onChange, if non-nil, is invoked after
// every successful transition (devices typically wire this to publish
// a message on their bus).
func NewOperationalFSM[S comparable, E comparable](initial S, transitions map[S]map[E]S, onChange func(from, to S)) *OperationalFSM[S, E] {
	return &OperationalFSM[S, E]{state: initial, transitions: transitions, onChange: onChange}
}

// State returns the current operational state.
func (f *OperationalFSM[S, E]) State() S {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Trigger applies event, returning the new state and whether the
// transition was valid; an invalid (state, event) pair leaves the FSM
// unchanged and returns ok=false.
func (f *OperationalFSM[S, E]) Trigger(event E) (newState S, ok bool) {
	f.mu.Lock()
	edges, exists := f.transitions[f.state]
	if !exists {
		f.mu.Unlock()
		var zero S
		return zero, false
	}
	target, exists := edges[event]
	if !exists {
		f.mu.Unlock()
		var zero S
		return zero, false
	}
	from := f.state
	f.state = target
	onChange := f.onChange
	f.mu.Unlock()

	if onChange != nil {
		onChange(from, target)
	}
	return target, true
}
