package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/message"
)

func TestAttachStartStopDetachRoundTrip(t *testing.T) {
	bus := NewMessageBus()
	fsm := NewLifecycleFSM("boiler", bus, core.NopLogger())

	sub, cancel := bus.Subscribe()
	defer cancel()

	require.Equal(t, StateDetached, fsm.State())

	require.NoError(t, fsm.Trigger(context.Background(), EventAttach, nil))
	assert.Equal(t, StateStopped, fsm.State())

	require.NoError(t, fsm.Trigger(context.Background(), EventStart, nil))
	assert.Equal(t, StateRunning, fsm.State())

	require.NoError(t, fsm.Trigger(context.Background(), EventStop, nil))
	assert.Equal(t, StateStopped, fsm.State())

	require.NoError(t, fsm.Trigger(context.Background(), EventDetach, nil))
	assert.Equal(t, StateDetached, fsm.State())

	var transitions []message.Message
	drain := true
	for drain {
		select {
		case m := <-sub:
			transitions = append(transitions, m)
		default:
			drain = false
		}
	}
	// Attach: Detached->Attaching, Attaching->Stopped.
	// Start: Stopped->Starting, Starting->Running.
	// Stop: Running->Stopping, Stopping->Stopped.
	// Detach: Stopped->Detaching, Detaching->Detached.
	require.Len(t, transitions, 8)
	assert.Equal(t, "Detached", transitions[0].Payload["from"])
	assert.Equal(t, "Attaching", transitions[0].Payload["to"])
	assert.Equal(t, "Detached", transitions[7].Payload["to"])
}

func TestTransitionFailureMovesToFailed(t *testing.T) {
	bus := NewMessageBus()
	fsm := NewLifecycleFSM("boiler", bus, core.NopLogger())
	require.NoError(t, fsm.Trigger(context.Background(), EventAttach, nil))

	boom := errors.New("plan step failed")
	err := fsm.Trigger(context.Background(), EventStart, func(ctx context.Context, state LifecycleState) error {
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, StateFailed, fsm.State())
	require.NotNil(t, fsm.LastFailure())
}

func TestResetFromFailed(t *testing.T) {
	bus := NewMessageBus()
	fsm := NewLifecycleFSM("boiler", bus, core.NopLogger())
	require.NoError(t, fsm.Trigger(context.Background(), EventAttach, nil))
	require.NoError(t, fsm.Trigger(context.Background(), EventFail, nil))
	assert.Equal(t, StateFailed, fsm.State())

	require.NoError(t, fsm.Trigger(context.Background(), EventReset, nil))
	assert.Equal(t, StateStopped, fsm.State())
}

func TestInvalidTransitionRejected(t *testing.T) {
	bus := NewMessageBus()
	fsm := NewLifecycleFSM("boiler", bus, core.NopLogger())
	err := fsm.Trigger(context.Background(), EventStart, nil) // can't Start from Detached
	require.Error(t, err)
	assert.Equal(t, StateDetached, fsm.State())
}

func TestFailNotValidFromDetachedOrFailed(t *testing.T) {
	bus := NewMessageBus()
	fsm := NewLifecycleFSM("boiler", bus, core.NopLogger())
	require.Error(t, fsm.Trigger(context.Background(), EventFail, nil))

	require.NoError(t, fsm.Trigger(context.Background(), EventAttach, nil))
	require.NoError(t, fsm.Trigger(context.Background(), EventFail, nil))
	require.Error(t, fsm.Trigger(context.Background(), EventFail, nil))
}

func TestLifecycleMonotonicityRandomWalk(t *testing.T) {
	// §8 invariant 1: any sequence of valid events produces only states
	// in the declared graph.
	bus := NewMessageBus()
	fsm := NewLifecycleFSM("boiler", bus, core.NopLogger())

	validStates := map[LifecycleState]bool{
		StateDetached: true, StateAttaching: true, StateStopped: true,
		StateStarting: true, StateRunning: true, StateStopping: true,
		StateFailed: true, StateDetaching: true,
	}

	events := []LifecycleEvent{EventAttach, EventStart, EventStop, EventStart, EventStop}
	for _, ev := range events {
		_ = fsm.Trigger(context.Background(), ev, nil)
		assert.True(t, validStates[fsm.State()], "state %q must be in the declared graph", fsm.State())
	}
}
