package device

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type thermoState string
type thermoEvent string

const (
	thermoIdle    thermoState = "Idle"
	thermoHeating thermoState = "Heating"
	thermoCooling thermoState = "Cooling"

	evHeat thermoEvent = "Heat"
	evCool thermoEvent = "Cool"
	evStop thermoEvent = "Stop"
)

func TestOperationalFSMUserDefinedTransitions(t *testing.T) {
	var transitions [][2]thermoState
	fsm := NewOperationalFSM(thermoIdle, map[thermoState]map[thermoEvent]thermoState{
		thermoIdle:    {evHeat: thermoHeating, evCool: thermoCooling},
		thermoHeating: {evStop: thermoIdle},
		thermoCooling: {evStop: thermoIdle},
	}, func(from, to thermoState) {
		transitions = append(transitions, [2]thermoState{from, to})
	})

	state, ok := fsm.Trigger(evHeat)
	assert.True(t, ok)
	assert.Equal(t, thermoHeating, state)

	state, ok = fsm.Trigger(evStop)
	assert.True(t, ok)
	assert.Equal(t, thermoIdle, state)

	_, ok = fsm.Trigger(evStop) // invalid from Idle
	assert.False(t, ok)
	assert.Equal(t, thermoIdle, fsm.State())

	assert.Len(t, transitions, 2)
}
