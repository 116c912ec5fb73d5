// Package message implements the wire representation of DeviceMessage
// described in §6: a tagged union with a closed set of standard
// payload types, encoded/decoded as JSON over the envelope framing
// defined in the peer package.
package message

import (
	"encoding/json"
	"fmt"
	"time"
)

// Type names a standard DeviceMessage payload kind (§6).
type Type string

const (
	TypePropertyChanged    Type = "property.changed"
	TypeActionFault        Type = "action.fault"
	TypeError              Type = "error"
	TypeDescription        Type = "description"
	TypeBinaryReady        Type = "binary.ready"
	TypeBinaryRequest      Type = "binary.request"
	TypeHubDeviceAttached  Type = "hub.deviceAttached"
	TypeHubDeviceDetached  Type = "hub.deviceDetached"
	TypeLifecycleStateChanged Type = "lifecycle.stateChanged"
)

// Message is the tagged union described in §6: common envelope fields
// plus a type-specific Payload. Time is rendered as ISO-8601 with
// millisecond precision on the wire, matching §6's stated format.
type Message struct {
	Type          Type
	Time          time.Time
	SourceDevice  string
	TargetDevice  string // optional, empty if unset
	RequestID     string // optional; echoed on responses
	CorrelationID string // optional
	Payload       map[string]any
}

// wireMessage is the JSON-serializable shape of Message; Time is
// rendered with millisecond precision as §6 requires.
type wireMessage struct {
	Type          Type           `json:"type"`
	Time          string         `json:"time"`
	SourceDevice  string         `json:"sourceDevice"`
	TargetDevice  string         `json:"targetDevice,omitempty"`
	RequestID     string         `json:"requestId,omitempty"`
	CorrelationID string         `json:"correlationId,omitempty"`
	Payload       map[string]any `json:"payload,omitempty"`
}

const isoMilli = "2006-01-02T15:04:05.000Z07:00"

// Encode renders m as its wire JSON form.
func Encode(m Message) ([]byte, error) {
	w := wireMessage{
		Type:          m.Type,
		Time:          m.Time.UTC().Format(isoMilli),
		SourceDevice:  m.SourceDevice,
		TargetDevice:  m.TargetDevice,
		RequestID:     m.RequestID,
		CorrelationID: m.CorrelationID,
		Payload:       m.Payload,
	}
	return json.Marshal(w)
}

// Decode parses the wire JSON form produced by Encode.
func Decode(data []byte) (Message, error) {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return Message{}, fmt.Errorf("decoding message: %w", err)
	}
	t, err := time.Parse(isoMilli, w.Time)
	if err != nil {
		// Fall back to RFC3339Nano for timestamps produced by other
		// encoders that don't pad to exactly millisecond precision.
		t, err = time.Parse(time.RFC3339Nano, w.Time)
		if err != nil {
			return Message{}, fmt.Errorf("decoding message time %q: %w", w.Time, err)
		}
	}
	return Message{
		Type:          w.Type,
		Time:          t,
		SourceDevice:  w.SourceDevice,
		TargetDevice:  w.TargetDevice,
		RequestID:     w.RequestID,
		CorrelationID: w.CorrelationID,
		Payload:       w.Payload,
	}, nil
}

// PropertyChanged builds the standard payload for a property mutation.
func PropertyChanged(sourceDevice, propertyName string, value any) Message {
	return Message{
		Type:         TypePropertyChanged,
		Time:         time.Now(),
		SourceDevice: sourceDevice,
		Payload: map[string]any{
			"propertyName": propertyName,
			"value":        value,
		},
	}
}

// LifecycleStateChanged builds the standard payload emitted on every
// lifecycle FSM transition (§4.2, §7).
func LifecycleStateChanged(sourceDevice, from, to string) Message {
	return Message{
		Type:         TypeLifecycleStateChanged,
		Time:         time.Now(),
		SourceDevice: sourceDevice,
		Payload: map[string]any{
			"from": from,
			"to":   to,
		},
	}
}

// DeviceAttached builds the standard hub notification for a newly
// attached device.
func DeviceAttached(sourceDevice string) Message {
	return Message{Type: TypeHubDeviceAttached, Time: time.Now(), SourceDevice: sourceDevice}
}

// DeviceDetached builds the standard hub notification for a detached
// device.
func DeviceDetached(sourceDevice string) Message {
	return Message{Type: TypeHubDeviceDetached, Time: time.Now(), SourceDevice: sourceDevice}
}

// ActionFault builds the standard payload reporting a business-level
// fault returned by an action (§7: faults don't move the FSM).
func ActionFault(sourceDevice, actionName string, code string, faultMessage string) Message {
	return Message{
		Type:         TypeActionFault,
		Time:         time.Now(),
		SourceDevice: sourceDevice,
		Payload: map[string]any{
			"actionName": actionName,
			"code":       code,
			"message":    faultMessage,
		},
	}
}

// ErrorMessage builds the standard payload reporting an unexpected
// failure (§7).
func ErrorMessage(sourceDevice string, kind string, errMessage string) Message {
	return Message{
		Type:         TypeError,
		Time:         time.Now(),
		SourceDevice: sourceDevice,
		Payload: map[string]any{
			"kind":    kind,
			"message": errMessage,
		},
	}
}
