package transaction

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/devicemesh-io/devicecore/core"
)

// LockManager acquires and releases named resource locks for a plan
// leaf, in name-sorted order to avoid deadlock (§5).
type LockManager interface {
	// Acquire blocks until all of the given locks are held and
	// returns a release function that must be called on every exit
	// path, including cancellation.
	Acquire(ctx context.Context, specs []core.ResourceLockSpec) (release func(), err error)
}

// lockCapacity is the full weight of a namedLock's semaphore.
// EXCLUSIVE_WRITE acquires the whole weight; SHARED_READ acquires a
// single unit, so any number of readers can co-hold while a writer
// holds none at all — the standard weighted-semaphore emulation of a
// RWMutex.
const lockCapacity = 1 << 30

type namedLock struct {
	sem *semaphore.Weighted
}

func newNamedLock() *namedLock {
	return &namedLock{sem: semaphore.NewWeighted(lockCapacity)}
}

// InMemoryLockManager is the default LockManager, backed by one
// golang.org/x/sync/semaphore.Weighted per named resource. Unlike a
// plain sync.RWMutex, Weighted.Acquire takes a context and returns
// promptly if it is cancelled while still waiting to be granted, so a
// plan leaf blocked on a contended lock honours deadline/cancellation
// the same way every other suspension point in the coordinator does.
type InMemoryLockManager struct {
	mu    sync.Mutex
	locks map[string]*namedLock
}

func NewInMemoryLockManager() *InMemoryLockManager {
	return &InMemoryLockManager{locks: map[string]*namedLock{}}
}

func (m *InMemoryLockManager) lockFor(name string) *namedLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[name]
	if !ok {
		l = newNamedLock()
		m.locks[name] = l
	}
	return l
}

func (m *InMemoryLockManager) Acquire(ctx context.Context, specs []core.ResourceLockSpec) (func(), error) {
	sorted := append([]core.ResourceLockSpec(nil), specs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ResourceName < sorted[j].ResourceName })

	type held struct {
		lock   *namedLock
		weight int64
	}
	acquired := make([]held, 0, len(sorted))
	release := func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			acquired[i].lock.sem.Release(acquired[i].weight)
		}
	}

	for _, spec := range sorted {
		l := m.lockFor(spec.ResourceName)
		weight := int64(1)
		if spec.LockType == core.LockTypeExclusiveWrite {
			weight = lockCapacity
		}
		if err := l.sem.Acquire(ctx, weight); err != nil {
			release()
			return nil, err
		}
		acquired = append(acquired, held{lock: l, weight: weight})
	}
	return release, nil
}
