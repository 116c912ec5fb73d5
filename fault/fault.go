// Package fault implements the "predictable, serializable business
// outcome" half of the error taxonomy described in §7: faults are
// returned as regular values and never move a device's lifecycle FSM
// to Failed.
package fault

import "fmt"

// Code identifies the stable, wire-serializable reason for a Fault.
type Code string

const (
	CodeValidationError       Code = "VALIDATION_ERROR"
	CodePreconditionFailed    Code = "PRECONDITION_FAILED"
	CodeResourceBusy          Code = "RESOURCE_BUSY"
	CodeTimeout               Code = "TIMEOUT"
	CodeNotFound              Code = "NOT_FOUND"
	CodeAuthenticationFailed  Code = "AUTHENTICATION_FAILED"
	CodeAuthorizationDenied   Code = "AUTHORIZATION_DENIED"
	CodeInvalidState          Code = "INVALID_STATE"
	CodeIncompatibleSchema    Code = "INCOMPATIBLE_SCHEMA"
	CodeGeneric               Code = "GENERIC"
)

// Fault is a business-level outcome: expected, stable and safe to
// transport back to a caller as a regular response (§7).
type Fault struct {
	Code    Code
	Message string
	Details map[string]any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

// New creates a generic fault with an arbitrary caller-supplied code.
func New(code Code, message string, details map[string]any) *Fault {
	return &Fault{Code: code, Message: message, Details: details}
}

func ValidationError(message string, details map[string]any) *Fault {
	return New(CodeValidationError, message, details)
}

func PreconditionFailed(message string) *Fault {
	return New(CodePreconditionFailed, message, nil)
}

func ResourceBusy(resource string) *Fault {
	return New(CodeResourceBusy, fmt.Sprintf("resource %q is busy", resource), map[string]any{
		"resource": resource,
	})
}

func Timeout(operation string) *Fault {
	return New(CodeTimeout, fmt.Sprintf("%q timed out", operation), map[string]any{
		"operation": operation,
	})
}

func NotFound(kind, name string) *Fault {
	return New(CodeNotFound, fmt.Sprintf("%s %q not found", kind, name), map[string]any{
		"kind": kind,
		"name": name,
	})
}

func AuthenticationFailed(message string) *Fault {
	return New(CodeAuthenticationFailed, message, nil)
}

func AuthorizationDenied(principal, operation string) *Fault {
	return New(CodeAuthorizationDenied, fmt.Sprintf("%q is not permitted to perform %q", principal, operation), map[string]any{
		"principal": principal,
		"operation": operation,
	})
}

// InvalidState reports that an operation is not valid for a device's
// current lifecycle state, naming both the current and required state
// as mandated by §7.
func InvalidState(currentState, requiredState, operation string) *Fault {
	return &Fault{
		Code:    CodeInvalidState,
		Message: fmt.Sprintf("cannot perform %q while in state %q, requires %q", operation, currentState, requiredState),
		Details: map[string]any{
			"currentState":  currentState,
			"requiredState": requiredState,
			"operation":     operation,
		},
	}
}

// IncompatibleSchema reports that a snapshot's schema version is newer
// than what the current blueprint understands, so no migrator can
// possibly bridge it (§4.4).
func IncompatibleSchema(snapshotSchemaVersion, blueprintSchemaVersion uint32) *Fault {
	return &Fault{
		Code:    CodeIncompatibleSchema,
		Message: fmt.Sprintf("snapshot schema version %d is newer than blueprint schema version %d", snapshotSchemaVersion, blueprintSchemaVersion),
		Details: map[string]any{
			"snapshotSchemaVersion":  snapshotSchemaVersion,
			"blueprintSchemaVersion": blueprintSchemaVersion,
		},
	}
}

// As extracts a *Fault from err if it is one.
func As(err error) (*Fault, bool) {
	f, ok := err.(*Fault)
	return f, ok
}
