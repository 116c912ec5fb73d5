package hub

import (
	"time"

	"github.com/devicemesh-io/devicecore/failure"
)

// ExecutionContext carries the principal, correlation id and deadline
// that accompany every public hub operation (§4.5).
type ExecutionContext struct {
	Principal     string
	CorrelationID string
	Deadline      time.Time // zero value means no deadline
}

// HasDeadline reports whether a deadline was set.
func (c ExecutionContext) HasDeadline() bool {
	return !c.Deadline.IsZero()
}

// JobState names a point in a deferred job's status lifecycle (§4.5).
// Queued and Running are transient; Completed, Failed and Cancelled
// are absorbing.
type JobState string

const (
	JobQueued    JobState = "Queued"
	JobRunning   JobState = "Running"
	JobCompleted JobState = "Completed"
	JobFailed    JobState = "Failed"
	JobCancelled JobState = "Cancelled"
)

// Terminal reports whether a JobState is absorbing: once reached, no
// further transition occurs.
func (s JobState) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// JobStatus is a single point on a deferred job's status stream.
type JobStatus struct {
	State    JobState
	Progress *float64
	Message  string
	Output   any
	Failure  *failure.Failure
}

// ExecutionResultKind discriminates the ExecutionResult sum type.
type ExecutionResultKind string

const (
	ExecutionImmediate ExecutionResultKind = "Immediate"
	ExecutionDeferred  ExecutionResultKind = "Deferred"
)

// ExecutionResult is the outcome of DeviceHub.Execute (§4.5): either an
// immediately-available output, or a job id plus a hot status stream
// for a long-running action.
type ExecutionResult struct {
	Kind   ExecutionResultKind
	Output any // Immediate only

	JobID      string           // Deferred only
	StatusFlow <-chan JobStatus // Deferred only; terminal state delivered exactly once, then closed
}

func immediate(output any) ExecutionResult {
	return ExecutionResult{Kind: ExecutionImmediate, Output: output}
}
