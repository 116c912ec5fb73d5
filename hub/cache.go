package hub

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/blueprint"
)

// ActionCache caches ExecutionResult::Immediate outcomes per §4.5's
// CachePolicy contract, backed by jellydator/ttlcache/v3 the same way
// the pack's doublezero telemetry provider backs its circuit/epoch
// caches.
//
// Cache invalidation is scoped globally by topic regardless of a given
// policy's Scope: Scope only salts the cache *key* (so a PerPrincipal
// policy never serves one principal's cached result to another), but
// an invalidation event clears every entry whose action declared a
// matching invalidationEvents pattern, irrespective of which
// hub/principal produced it. This resolves the ambiguity left open by
// treating Global as "requires an external shared store, out of scope"
// while keeping invalidation itself simple and correct for the common
// single-hub deployment.
type ActionCache struct {
	store *ttlcache.Cache[string, ExecutionResult]
}

// NewActionCache creates an ActionCache with no default TTL; every
// entry's TTL is supplied explicitly at Set time from the action's own
// CachePolicy.
func NewActionCache() *ActionCache {
	store := ttlcache.New[string, ExecutionResult]()
	go store.Start()
	return &ActionCache{store: store}
}

// Close stops the cache's background TTL-eviction goroutine.
func (c *ActionCache) Close() {
	c.store.Stop()
}

// Key computes the deterministic cache key from (addr, actionName,
// canonicalized(input), scope-salt) described in §4.5.
func Key(policy blueprint.CachePolicy, addr address.Address, actionName string, input any, principal string) string {
	canonical, _ := json.Marshal(input) // Go's json.Marshal sorts map keys, giving a canonical form
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", addr.String(), actionName, canonical)

	switch policy.Scope {
	case blueprint.CacheScopePerPrincipal:
		fmt.Fprintf(h, "|principal=%s", principal)
	case blueprint.CacheScopeGlobal:
		fmt.Fprint(h, "|scope=global")
	default:
		fmt.Fprint(h, "|scope=hub")
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached result for key, if present and unexpired.
func (c *ActionCache) Get(key string) (ExecutionResult, bool) {
	item := c.store.Get(key)
	if item == nil {
		return ExecutionResult{}, false
	}
	return item.Value(), true
}

// Put stores result under key with the given TTL.
func (c *ActionCache) Put(key string, result ExecutionResult, ttl time.Duration) {
	c.store.Set(key, result, ttl)
}

// Invalidator tracks which invalidation-event patterns apply to which
// cache keys, since ttlcache does not expose pattern-based eviction
// directly. Track and OnMessage run concurrently — one per attached
// device's forwarding goroutine, plus directly from WriteProperty/
// Execute/Publish on the caller's own goroutine — so entries is
// guarded by mu the same way ActionCache's own store guards itself.
type Invalidator struct {
	mu      sync.Mutex
	cache   *ActionCache
	entries map[string][]string // cache key -> invalidation patterns
}

// NewInvalidator builds an Invalidator bound to cache.
func NewInvalidator(cache *ActionCache) *Invalidator {
	return &Invalidator{cache: cache, entries: map[string][]string{}}
}

// Track records which invalidation patterns apply to a cache key, so a
// later OnMessage call can evict it.
func (inv *Invalidator) Track(key string, patterns []string) {
	if len(patterns) == 0 {
		return
	}
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.entries[key] = patterns
}

// OnMessage evicts every tracked cache entry whose invalidation
// patterns match topic (§4.5: "Any message whose topic matches an
// invalidationEvents pattern invalidates the entry").
func (inv *Invalidator) OnMessage(topic string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	for key, patterns := range inv.entries {
		for _, pattern := range patterns {
			if MatchTopic(pattern, topic) {
				inv.cache.store.Delete(key)
				delete(inv.entries, key)
				break
			}
		}
	}
}
