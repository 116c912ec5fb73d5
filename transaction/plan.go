// Package transaction implements the Transaction Coordinator (§4.3):
// interpreting declarative TransactionPlan trees, executing leaves
// against a hub, and running Saga-style compensation on failure.
package transaction

import (
	"time"

	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/core"
)

// ActionKind discriminates the ActionSpec sum type (§3).
type ActionKind string

const (
	ActionAttach        ActionKind = "Attach"
	ActionDetach        ActionKind = "Detach"
	ActionStart         ActionKind = "Start"
	ActionStop          ActionKind = "Stop"
	ActionWriteProperty ActionKind = "WriteProperty"
	ActionSequence      ActionKind = "Sequence"
	ActionParallel      ActionKind = "Parallel"
)

// CompensationPolicy controls what happens when a compensation itself
// fails during rollback (§4.3).
type CompensationPolicy string

const (
	CompensationAbort            CompensationPolicy = "ABORT"
	CompensationContinueAndFlag  CompensationPolicy = "CONTINUE_AND_FLAG"
	CompensationRetry            CompensationPolicy = "RETRY"
)

// FailureStrategy controls how a Parallel node reacts to a failing
// child (§4.3).
type FailureStrategy string

const (
	FailFast   FailureStrategy = "FAIL_FAST"
	CollectAll FailureStrategy = "COLLECT_ALL"
	BestEffort FailureStrategy = "BEST_EFFORT"
)

// CompensationOrder controls how a Parallel node's compensations are
// run during rollback (§4.3).
type CompensationOrder string

const (
	SequentialReverse CompensationOrder = "SEQUENTIAL_REVERSE"
	ParallelOrder     CompensationOrder = "PARALLEL"
)

// RetryPolicy configures leaf retry-on-failure behaviour (§4.3). The
// coordinator drives retries with an exponential backoff clock
// (github.com/cenkalti/backoff/v4), seeded from InitialInterval and
// capped at MaxInterval.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ActionSpec is the sum type for a single TransactionPlan node: the
// leaves Attach/Detach/Start/Stop/WriteProperty, and the composites
// Sequence/Parallel (§3). Every node may carry an idempotency key,
// a compensation plan, a timeout and a retry policy.
type ActionSpec struct {
	Kind ActionKind

	// Leaf fields.
	Address      address.Address
	BlueprintID  address.BlueprintId // Attach only
	Config       map[string]any      // Attach only
	PropertyName string              // WriteProperty only
	Value        any                 // WriteProperty only

	// Composite fields.
	Children          []ActionSpec
	FailureStrategy   FailureStrategy   // Parallel only
	CompensationOrder CompensationOrder // Parallel only

	// Shared across all node kinds.
	IdempotencyKey     *string
	Compensation       *TransactionPlan
	CompensationPolicy CompensationPolicy
	Timeout            *time.Duration
	Retry              *RetryPolicy
	RequiredLocks      []core.ResourceLockSpec
}

// Attach builds a leaf that attaches a new device instance at addr
// from the given blueprint.
func Attach(addr address.Address, blueprintID address.BlueprintId, config map[string]any) ActionSpec {
	return ActionSpec{Kind: ActionAttach, Address: addr, BlueprintID: blueprintID, Config: config}
}

// Detach builds a leaf that detaches the device instance at addr.
func Detach(addr address.Address) ActionSpec {
	return ActionSpec{Kind: ActionDetach, Address: addr}
}

// Start builds a leaf that starts the device instance at addr.
func Start(addr address.Address) ActionSpec {
	return ActionSpec{Kind: ActionStart, Address: addr}
}

// Stop builds a leaf that stops the device instance at addr.
func Stop(addr address.Address) ActionSpec {
	return ActionSpec{Kind: ActionStop, Address: addr}
}

// WriteProperty builds a leaf that writes a property on the device
// instance at addr.
func WriteProperty(addr address.Address, propertyName string, value any) ActionSpec {
	return ActionSpec{Kind: ActionWriteProperty, Address: addr, PropertyName: propertyName, Value: value}
}

// Sequence builds a composite node that executes children strictly in
// order, stopping and rolling back at the first failure (§4.3).
func Sequence(children ...ActionSpec) ActionSpec {
	return ActionSpec{Kind: ActionSequence, Children: children}
}

// Parallel builds a composite node that launches children
// concurrently under the given failure and compensation-ordering
// strategies (§4.3).
func Parallel(failureStrategy FailureStrategy, compensationOrder CompensationOrder, children ...ActionSpec) ActionSpec {
	return ActionSpec{
		Kind:              ActionParallel,
		Children:          children,
		FailureStrategy:   failureStrategy,
		CompensationOrder: compensationOrder,
	}
}

// WithIdempotencyKey returns a copy of spec carrying the given
// idempotency key, scoped to a single transaction invocation (§4.3).
func (spec ActionSpec) WithIdempotencyKey(key string) ActionSpec {
	spec.IdempotencyKey = &key
	return spec
}

// WithCompensation returns a copy of spec carrying the given
// compensation plan and policy.
func (spec ActionSpec) WithCompensation(plan TransactionPlan, policy CompensationPolicy) ActionSpec {
	spec.Compensation = &plan
	spec.CompensationPolicy = policy
	return spec
}

// WithTimeout returns a copy of spec with a wall-clock timeout.
func (spec ActionSpec) WithTimeout(d time.Duration) ActionSpec {
	spec.Timeout = &d
	return spec
}

// WithRetry returns a copy of spec with a retry policy.
func (spec ActionSpec) WithRetry(policy RetryPolicy) ActionSpec {
	spec.Retry = &policy
	return spec
}

// WithLocks returns a copy of spec declaring the resource locks that
// must be held while it executes.
func (spec ActionSpec) WithLocks(locks ...core.ResourceLockSpec) ActionSpec {
	spec.RequiredLocks = locks
	return spec
}

// TransactionPlan is the root of a declarative, Saga-compensated
// action tree, with an optional overall deadline (§3).
type TransactionPlan struct {
	Root     ActionSpec
	Deadline *time.Time
}

// NewPlan builds a TransactionPlan with no deadline.
func NewPlan(root ActionSpec) TransactionPlan {
	return TransactionPlan{Root: root}
}

// WithDeadline returns a copy of the plan with the given absolute
// deadline (§4.3).
func (p TransactionPlan) WithDeadline(deadline time.Time) TransactionPlan {
	p.Deadline = &deadline
	return p
}
