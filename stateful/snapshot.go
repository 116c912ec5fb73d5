package stateful

import (
	"fmt"

	"github.com/devicemesh-io/devicecore/fault"
)

// Snapshot is the versioned, serializable capture of one device's
// stateful properties described in §4.4: a dirty-version stamp, the
// schema version the state was written against, the structured state
// itself, and optional named binary blobs for properties that are not
// well-represented as structured values (firmware images, calibration
// tables, ...).
type Snapshot struct {
	Version       uint64
	SchemaVersion uint32
	State         StructuredValue
	Blobs         map[string][]byte
}

// TakeSnapshot captures the current state plus the dirtyVersion
// observed at capture time, for later use with ClearDirtyFlag (§4.4:
// "the version recorded in the snapshot is what a subsequent
// clearDirtyFlag call should compare against").
func TakeSnapshot(state *DeviceState, schemaVersion uint32, blobs map[string][]byte) Snapshot {
	version := state.DirtyVersion()
	return Snapshot{
		Version:       version,
		SchemaVersion: schemaVersion,
		State:         state.Properties(),
		Blobs:         blobs,
	}
}

// Restore applies a snapshot to state, enforcing the rules in §4.4:
//   - a snapshot whose schemaVersion is newer than the blueprint's
//     current schema is rejected with IncompatibleSchema: no migrator
//     can run forward in time.
//   - a snapshot whose schemaVersion is older is migrated via
//     migrators before Restore is called at all (see Migrate);
//     Restore itself never invokes a migrator.
//   - apply is only permitted while the device is Stopped or
//     Attaching; any other current state fails with InvalidState.
func Restore[S comparable](state *DeviceState, snap Snapshot, blueprintSchemaVersion uint32, currentLifecycleState S, allowed ...S) error {
	if snap.SchemaVersion > blueprintSchemaVersion {
		return fault.IncompatibleSchema(snap.SchemaVersion, blueprintSchemaVersion)
	}
	if snap.SchemaVersion < blueprintSchemaVersion {
		return fault.New(fault.CodeInvalidState,
			"snapshot schema version is older than blueprint schema; migrate before restoring",
			map[string]any{
				"snapshotSchemaVersion":  snap.SchemaVersion,
				"blueprintSchemaVersion": blueprintSchemaVersion,
			})
	}

	permitted := false
	for _, s := range allowed {
		if s == currentLifecycleState {
			permitted = true
			break
		}
	}
	if !permitted {
		return fault.New(fault.CodeInvalidState, "restore is only valid while Stopped or Attaching", map[string]any{
			"currentState": fmt.Sprintf("%v", currentLifecycleState),
		})
	}

	state.Restore(snap.State)
	return nil
}
