package message

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	original := Message{
		Type:          TypePropertyChanged,
		Time:          time.Date(2026, 3, 1, 12, 30, 0, 123_000_000, time.UTC),
		SourceDevice:  "boiler.pump1",
		TargetDevice:  "dashboard",
		RequestID:     "req-1",
		CorrelationID: "corr-1",
		Payload: map[string]any{
			"propertyName": "setpoint",
			"value":        21.5,
		},
	}

	encoded, err := Encode(original)
	require.NoError(t, err)

	decoded, err := Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, original.Type, decoded.Type)
	assert.True(t, original.Time.Equal(decoded.Time))
	assert.Equal(t, original.SourceDevice, decoded.SourceDevice)
	assert.Equal(t, original.TargetDevice, decoded.TargetDevice)
	assert.Equal(t, original.RequestID, decoded.RequestID)
	assert.Equal(t, original.CorrelationID, decoded.CorrelationID)
	assert.Equal(t, original.Payload["propertyName"], decoded.Payload["propertyName"])
	assert.Equal(t, original.Payload["value"], decoded.Payload["value"])
}

func TestLifecycleStateChangedPayload(t *testing.T) {
	m := LifecycleStateChanged("boiler", "Stopped", "Starting")
	assert.Equal(t, TypeLifecycleStateChanged, m.Type)
	assert.Equal(t, "Stopped", m.Payload["from"])
	assert.Equal(t, "Starting", m.Payload["to"])
}

func TestDecodeRejectsMalformedTime(t *testing.T) {
	_, err := Decode([]byte(`{"type":"error","time":"not-a-time","sourceDevice":"x"}`))
	require.Error(t, err)
}
