package transaction

import (
	"context"
	"sync"

	"go.uber.org/multierr"

	"github.com/devicemesh-io/devicecore/core"
)

// Coordinator executes TransactionPlan trees against a LeafExecutor
// with Saga-style compensation, idempotency, retry, timeout, resource
// locking and plan-level deadlines (§4.3).
type Coordinator struct {
	executor LeafExecutor
	locks    LockManager
	clock    core.Clock
	logger   core.Logger
}

// NewCoordinator builds a Coordinator. If locks is nil, an
// InMemoryLockManager is used; if clock is nil, the real clock is
// used.
func NewCoordinator(executor LeafExecutor, locks LockManager, clock core.Clock, logger core.Logger) *Coordinator {
	if locks == nil {
		locks = NewInMemoryLockManager()
	}
	if clock == nil {
		clock = core.NewRealClock()
	}
	if logger == nil {
		logger = core.NopLogger()
	}
	return &Coordinator{executor: executor, locks: locks, clock: clock, logger: logger.Named("transaction")}
}

// undoUnit is a single entry in the transaction-scoped LIFO undo log
// (§4.3). It is either a single leaf's compensation plan, or the
// grouped compensations of a Parallel node, replayed according to
// that node's own CompensationOrder.
type undoUnit struct {
	// leaf fields
	plan               *TransactionPlan
	compensationPolicy CompensationPolicy

	// group fields (set when plan is nil)
	group             []undoUnit
	compensationOrder CompensationOrder
}

func (u undoUnit) isGroup() bool {
	return u.plan == nil && u.group != nil
}

// sharedState is the idempotency-key table for one transaction
// invocation. It is shared by a parent invocation and every
// sub-invocation spawned for concurrently executing Parallel children
// so that siblings observe each other's completed idempotency keys,
// scoped to this single call and never persisted across invocations
// (§4.3 "Determinism").
type sharedState struct {
	mu        sync.Mutex
	completed map[string]bool
}

// invocation holds the per-Execute-call state: the undo log and
// rollback bookkeeping are local to one invocation (or one Parallel
// child's sub-invocation); the idempotency table is shared.
type invocation struct {
	shared *sharedState

	mu                 sync.Mutex
	undo               []undoUnit
	compensationErrors error
	manualIntervention bool
}

func newInvocation() *invocation {
	return &invocation{shared: &sharedState{completed: map[string]bool{}}}
}

// child returns a sub-invocation for a concurrently executing
// Parallel branch: it shares the idempotency table but keeps its own
// isolated undo log, which the parent merges in after the branch
// completes.
func (inv *invocation) child() *invocation {
	return &invocation{shared: inv.shared}
}

func (inv *invocation) isCompleted(key string) bool {
	inv.shared.mu.Lock()
	defer inv.shared.mu.Unlock()
	return inv.shared.completed[key]
}

func (inv *invocation) markCompleted(key string) {
	inv.shared.mu.Lock()
	defer inv.shared.mu.Unlock()
	inv.shared.completed[key] = true
}

func (inv *invocation) push(u undoUnit) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.undo = append(inv.undo, u)
}

func (inv *invocation) popAll() []undoUnit {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	units := inv.undo
	inv.undo = nil
	return units
}

func (inv *invocation) flagManualIntervention() {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.manualIntervention = true
}

func (inv *invocation) addCompensationError(err error) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.compensationErrors = multierr.Append(inv.compensationErrors, err)
}

// Execute runs plan to completion or failure, rolling back on failure
// or on the plan's deadline elapsing (§4.3).
func (c *Coordinator) Execute(ctx context.Context, plan TransactionPlan) Result {
	runCtx := ctx
	if plan.Deadline != nil {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(ctx, *plan.Deadline)
		defer cancel()
	}

	inv := newInvocation()
	err := c.executeNode(runCtx, inv, plan.Root)
	if err == nil {
		return success()
	}

	c.logger.Warn("transaction plan failed, rolling back", core.ErrorLogField("error", err))
	rollbackCtx := context.Background()
	inv.rollback(rollbackCtx, c)

	inv.mu.Lock()
	manualIntervention := inv.manualIntervention
	compensationErrors := inv.compensationErrors
	inv.mu.Unlock()

	result := failure(err)
	result.RolledBack = true
	result.NeedsManualIntervention = manualIntervention
	result.CompensationErrors = compensationErrors
	return result
}

// executeNode dispatches a node to leaf execution or to the
// Sequence/Parallel composite handlers.
func (c *Coordinator) executeNode(ctx context.Context, inv *invocation, spec ActionSpec) error {
	switch spec.Kind {
	case ActionSequence:
		return c.executeSequence(ctx, inv, spec)
	case ActionParallel:
		return c.executeParallel(ctx, inv, spec)
	default:
		return c.executeLeaf(ctx, inv, spec)
	}
}

func (c *Coordinator) executeSequence(ctx context.Context, inv *invocation, spec ActionSpec) error {
	for _, child := range spec.Children {
		if err := c.executeNode(ctx, inv, child); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) executeLeaf(ctx context.Context, inv *invocation, spec ActionSpec) error {
	var release func()
	if len(spec.RequiredLocks) > 0 {
		var err error
		release, err = c.locks.Acquire(ctx, spec.RequiredLocks)
		if err != nil {
			return err
		}
		defer release()
	}

	if spec.IdempotencyKey != nil && inv.isCompleted(*spec.IdempotencyKey) {
		return nil
	}

	leafCtx := ctx
	if spec.Timeout != nil {
		var cancel context.CancelFunc
		leafCtx, cancel = context.WithTimeout(ctx, *spec.Timeout)
		defer cancel()
	}

	if err := c.runLeafWithRetry(leafCtx, spec); err != nil {
		return err
	}

	if spec.IdempotencyKey != nil {
		inv.markCompleted(*spec.IdempotencyKey)
	}
	if spec.Compensation != nil {
		inv.push(undoUnit{plan: spec.Compensation, compensationPolicy: spec.CompensationPolicy})
	}
	return nil
}
