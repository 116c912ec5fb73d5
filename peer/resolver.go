package peer

import (
	"fmt"
	"math/rand"
	"sync"
)

// FailoverStrategy controls how AddressResolver picks among several
// physical addresses registered for one logical hub id (§4.5).
type FailoverStrategy string

const (
	FailoverOrdered    FailoverStrategy = "Ordered"
	FailoverRandom     FailoverStrategy = "Random"
	FailoverRoundRobin FailoverStrategy = "RoundRobin"
)

// AddressResolver maps logical hub ids to one of their registered
// physical transport addresses, applying FailoverStrategy to choose
// among several (§4.5).
type AddressResolver struct {
	mu       sync.Mutex
	strategy FailoverStrategy
	physical map[string][]string
	counters map[string]int
	rng      *rand.Rand
}

// NewAddressResolver creates a resolver using the given strategy.
func NewAddressResolver(strategy FailoverStrategy) *AddressResolver {
	return &AddressResolver{
		strategy: strategy,
		physical: map[string][]string{},
		counters: map[string]int{},
		rng:      rand.New(rand.NewSource(1)),
	}
}

// Register associates one or more physical addresses with a logical
// hub id, in priority order for FailoverOrdered.
func (r *AddressResolver) Register(logicalID string, physicalAddresses ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.physical[logicalID] = append([]string(nil), physicalAddresses...)
}

// Resolve returns a physical address for logicalID per the
// configured FailoverStrategy:
//   - Ordered always returns the first registered address (callers
//     advance past a failed address themselves via a future retry).
//   - Random returns a uniformly chosen address.
//   - RoundRobin cycles through the list on successive calls.
func (r *AddressResolver) Resolve(logicalID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	addrs, ok := r.physical[logicalID]
	if !ok || len(addrs) == 0 {
		return "", fmt.Errorf("peer: no physical address registered for %q", logicalID)
	}

	switch r.strategy {
	case FailoverRandom:
		return addrs[r.rng.Intn(len(addrs))], nil
	case FailoverRoundRobin:
		idx := r.counters[logicalID] % len(addrs)
		r.counters[logicalID]++
		return addrs[idx], nil
	default: // FailoverOrdered
		return addrs[0], nil
	}
}
