package transaction

import (
	"context"
	"sync"
)

// rollback pops every unit off the undo log, in LIFO order, and
// compensates each one. It stops immediately if a compensation's
// failure is handled by the ABORT policy (§4.3, §8 invariant 4).
func (inv *invocation) rollback(ctx context.Context, c *Coordinator) {
	units := inv.popAll()
	for i := len(units) - 1; i >= 0; i-- {
		inv.rollbackUnit(ctx, c, units[i])
		inv.mu.Lock()
		aborted := inv.manualIntervention
		inv.mu.Unlock()
		if aborted {
			return
		}
	}
}

func (inv *invocation) rollbackUnit(ctx context.Context, c *Coordinator, u undoUnit) {
	if u.isGroup() {
		inv.rollbackGroup(ctx, c, u)
		return
	}

	subInv := newInvocation()
	err := c.executeNode(ctx, subInv, u.plan.Root)
	if err == nil {
		return
	}

	switch u.compensationPolicy {
	case CompensationRetry:
		retryInv := newInvocation()
		if err2 := c.executeNode(ctx, retryInv, u.plan.Root); err2 == nil {
			return
		}
		inv.flagManualIntervention()
	case CompensationContinueAndFlag:
		inv.addCompensationError(err)
	default: // ABORT, or unset defaults to ABORT (the safe choice)
		inv.flagManualIntervention()
	}
}

func (inv *invocation) rollbackGroup(ctx context.Context, c *Coordinator, u undoUnit) {
	if u.compensationOrder == ParallelOrder {
		var wg sync.WaitGroup
		for _, member := range u.group {
			member := member
			wg.Add(1)
			go func() {
				defer wg.Done()
				inv.rollbackUnit(ctx, c, member)
			}()
		}
		wg.Wait()
		return
	}

	// SequentialReverse (also the zero-value default): replay in
	// reverse completion order, one at a time.
	for i := len(u.group) - 1; i >= 0; i-- {
		inv.rollbackUnit(ctx, c, u.group[i])
		inv.mu.Lock()
		aborted := inv.manualIntervention
		inv.mu.Unlock()
		if aborted {
			return
		}
	}
}
