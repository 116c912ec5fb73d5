package device

import (
	"context"
	"fmt"

	"github.com/devicemesh-io/devicecore/stateful"
)

// SwapInHub performs the final, hub-owned step of a hot swap: making
// newDevice visible under old's address and rewiring any children or
// parent references that pointed at old. Supplied by the hub so this
// package never imports it (§4.4 step 5).
type SwapInHub func(ctx context.Context, old, newDevice *Device) error

// HotSwap upgrades a running device to a new blueprint version in
// place, following the five-step procedure in §4.4: snapshot the old
// device, instantiate the new one in Attaching, migrate the schema,
// restore the migrated snapshot, then hand off to the hub to swap it
// in atomically. Failure at any step aborts and returns old
// unmodified; only on full success is newDevice returned as the live
// replacement.
func HotSwap(ctx context.Context, old *Device, newCfg Config, migrators *stateful.MigratorRegistry, migratorTag string, blobs map[string][]byte, swap SwapInHub) (*Device, error) {
	snap := old.Snapshot(blobs)

	newDevice := New(newCfg)
	if err := newDevice.TriggerAttach(ctx); err != nil {
		return old, fmt.Errorf("hot swap: failed to attach new device: %w", err)
	}

	targetSchema := uint32(newCfg.Blueprint.SchemaVersion)
	migrated := snap
	if snap.SchemaVersion != targetSchema {
		if migrators == nil {
			return old, fmt.Errorf("hot swap: schema changed (%d -> %d) but no migrator registry supplied", snap.SchemaVersion, targetSchema)
		}
		var err error
		migrated, err = migrators.Migrate(migratorTag, snap, targetSchema)
		if err != nil {
			return old, fmt.Errorf("hot swap: migration failed: %w", err)
		}
	}

	if err := newDevice.RestoreSnapshot(migrated); err != nil {
		return old, fmt.Errorf("hot swap: restore failed: %w", err)
	}

	if swap != nil {
		if err := swap(ctx, old, newDevice); err != nil {
			return old, fmt.Errorf("hot swap: hub swap-in failed: %w", err)
		}
	}

	return newDevice, nil
}
