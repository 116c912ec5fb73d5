// Package stateful implements the Stateful Property Subsystem (§4.4):
// dirty-version tracking with CAS clear semantics, versioned snapshots
// with optional binary blobs, and migration across schema versions.
package stateful

import (
	"sync"
	"sync/atomic"
)

// StructuredValue is the serialized form of a device's stateful
// properties, the same loosely-typed tree shape the blueprint package
// uses for feature/action config (§1: the concrete serialization
// format of configuration metadata is out of scope; this is just the
// in-memory structural shape snapshot/restore operate on).
type StructuredValue map[string]any

// DeviceState holds every persistent property of one device instance
// plus the dirty-version counter described in §4.4. The dirty counter
// uses atomic increment and CAS clear per §5 ("no general lock
// required for writes"); the property map itself is guarded by a
// plain RWMutex since reads/writes of individual properties are not on
// the hot atomic path the way the counter is.
type DeviceState struct {
	mu         sync.RWMutex
	properties map[string]any

	dirtyVersion uint64
	isDirty      uint32 // 0 or 1, read/written atomically alongside dirtyVersion
}

// NewDeviceState creates an empty, clean DeviceState.
func NewDeviceState() *DeviceState {
	return &DeviceState{properties: map[string]any{}}
}

// Set writes a persistent property's value and marks the device dirty
// (§4.4: "Writing mutates the state AND triggers the owning device's
// markDirty").
func (s *DeviceState) Set(name string, value any) {
	s.mu.Lock()
	s.properties[name] = value
	s.mu.Unlock()
	s.MarkDirty()
}

// Get reads a persistent property's current value.
func (s *DeviceState) Get(name string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.properties[name]
	return v, ok
}

// MarkDirty increments the dirty-version counter by exactly 1 and sets
// isDirty (§8 invariant 2: dirtyVersion never decreases, each call
// increments by exactly 1).
func (s *DeviceState) MarkDirty() {
	atomic.AddUint64(&s.dirtyVersion, 1)
	atomic.StoreUint32(&s.isDirty, 1)
}

// DirtyVersion returns the current dirty-version counter.
func (s *DeviceState) DirtyVersion() uint64 {
	return atomic.LoadUint64(&s.dirtyVersion)
}

// IsDirty reports whether a markDirty has occurred since the last
// successful ClearDirtyFlag.
func (s *DeviceState) IsDirty() bool {
	return atomic.LoadUint32(&s.isDirty) == 1
}

// ClearDirtyFlag performs the CAS clear described in §4.4: only clears
// (and marks not-dirty) if the current dirtyVersion still equals
// expected, i.e. no markDirty has interleaved since the caller observed
// expected (typically the version captured by Snapshot). Returns
// whether it cleared (§8 invariant 3).
func (s *DeviceState) ClearDirtyFlag(expected uint64) bool {
	if atomic.CompareAndSwapUint64(&s.dirtyVersion, expected, expected) {
		// dirtyVersion equalled expected at the CAS, so the clear
		// succeeds. A MarkDirty racing with it may bump dirtyVersion
		// before the store below; re-checking afterwards re-marks the
		// device dirty so the store cannot hide that newer write. A
		// MarkDirty after the re-check sets isDirty itself.
		atomic.StoreUint32(&s.isDirty, 0)
		if atomic.LoadUint64(&s.dirtyVersion) != expected {
			atomic.StoreUint32(&s.isDirty, 1)
		}
		return true
	}
	return false
}

// Properties returns a snapshot copy of every persistent property's
// current value, taken under a read lock (§4.4: "the simplest
// implementation takes a read-lock over stateful properties during
// serialization").
func (s *DeviceState) Properties() StructuredValue {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(StructuredValue, len(s.properties))
	for k, v := range s.properties {
		out[k] = v
	}
	return out
}

// Restore replaces every persistent property's value wholesale, as
// used by Restore after a (possibly migrated) snapshot's state is
// ready to apply. Does not itself mark the device dirty: restoring a
// snapshot reflects a previously-clean state, not a new mutation.
func (s *DeviceState) Restore(state StructuredValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = make(map[string]any, len(state))
	for k, v := range state {
		s.properties[k] = v
	}
}
