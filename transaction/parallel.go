package transaction

import (
	"context"
	"sync"
)

// executeParallel launches spec's children concurrently under the
// node's FailureStrategy, then records a single group undo unit
// capturing each completed child's own compensations so that rollback
// can replay them per the node's CompensationOrder (§4.3).
//
// Children run against groupCtx directly rather than a context derived
// from a library that auto-cancels on the first error: COLLECT_ALL and
// BEST_EFFORT must let every sibling run to completion, so the only
// thing allowed to cancel groupCtx is the explicit FailFast branch
// below.
func (c *Coordinator) executeParallel(ctx context.Context, inv *invocation, spec ActionSpec) error {
	if len(spec.Children) == 0 {
		return nil
	}

	groupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var completionMu sync.Mutex
	var completionOrder []undoUnit
	var successCount int
	var firstErr error

	var wg sync.WaitGroup
	for _, child := range spec.Children {
		child := child
		wg.Add(1)
		go func() {
			defer wg.Done()

			childInv := inv.child()
			err := c.executeNode(groupCtx, childInv, child)

			completionMu.Lock()
			defer completionMu.Unlock()

			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				if spec.FailureStrategy == FailFast {
					cancel()
				}
				return
			}

			successCount++
			if units := childInv.popAll(); len(units) > 0 {
				completionOrder = append(completionOrder, undoUnit{
					group:             units,
					compensationOrder: SequentialReverse,
				})
			}
		}()
	}
	wg.Wait()

	if len(completionOrder) > 0 {
		inv.push(undoUnit{
			group:             completionOrder,
			compensationOrder: spec.CompensationOrder,
		})
	}

	switch spec.FailureStrategy {
	case BestEffort:
		if successCount >= 1 {
			return nil
		}
		return firstErr
	default: // FAIL_FAST, COLLECT_ALL
		return firstErr
	}
}
