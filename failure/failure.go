// Package failure implements the "unexpected error" half of the
// taxonomy in §7: failures are surfaced as SerializableDeviceFailure
// and, unlike faults, can move a device's lifecycle FSM to Failed.
package failure

import "fmt"

// Kind classifies the origin of an unexpected failure.
type Kind string

const (
	KindIO                  Kind = "IO"
	KindPeerDisconnected    Kind = "PEER_DISCONNECTED"
	KindDriverError         Kind = "DRIVER_ERROR"
	KindCancelled           Kind = "CANCELLED"
	KindUnknown             Kind = "UNKNOWN"
)

// Failure is the serializable representation of an unexpected error,
// referred to in spec.md as SerializableDeviceFailure.
type Failure struct {
	Kind    Kind
	Message string
	Cause   error
}

func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Cause
}

// New wraps cause as a Failure of the given kind.
func New(kind Kind, message string, cause error) *Failure {
	return &Failure{Kind: kind, Message: message, Cause: cause}
}

func IO(message string, cause error) *Failure {
	return New(KindIO, message, cause)
}

func PeerDisconnected(peerName string, cause error) *Failure {
	return New(KindPeerDisconnected, fmt.Sprintf("peer %q disconnected", peerName), cause)
}

func DriverError(message string, cause error) *Failure {
	return New(KindDriverError, message, cause)
}

// Cancelled reports that a supervisor cancelled the operation, as
// opposed to the operation failing on its own.
func Cancelled(message string) *Failure {
	return New(KindCancelled, message, nil)
}

// As extracts a *Failure from err if it is one.
func As(err error) (*Failure, bool) {
	fl, ok := err.(*Failure)
	return fl, ok
}
