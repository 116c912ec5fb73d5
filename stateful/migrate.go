package stateful

import (
	"fmt"

	"github.com/devicemesh-io/devicecore/core"
)

// Migrator transforms a snapshot's structured state from From to To
// schema version. Migrators are registered per blueprint kind the same
// way feature validators are registered in the blueprint registry
// (§4.4, §9): a process-wide TypeRegistry keyed by a tag the caller
// supplies (typically the blueprint id).
type Migrator struct {
	From uint32
	To   uint32
	Fn   func(state StructuredValue) (StructuredValue, error)
}

// MigratorRegistry holds the chain of registered migrators for each
// blueprint tag.
type MigratorRegistry struct {
	chains *core.TypeRegistry[[]Migrator]
}

// NewMigratorRegistry creates an empty registry.
func NewMigratorRegistry() *MigratorRegistry {
	return &MigratorRegistry{chains: core.NewTypeRegistry[[]Migrator]()}
}

// Register appends a migrator to the chain for tag. Migrators need not
// be registered in order; Migrate looks each step up by its From
// version.
func (r *MigratorRegistry) Register(tag string, m Migrator) {
	chain, _ := r.chains.Get(tag)
	r.chains.Register(tag, append(chain, m))
}

// Migrate walks the registered chain for tag, applying each migrator
// whose From matches the current schema version in turn, until the
// state reaches targetSchemaVersion. Returns an error if no migrator
// bridges the current version to the next required step.
func (r *MigratorRegistry) Migrate(tag string, snap Snapshot, targetSchemaVersion uint32) (Snapshot, error) {
	if snap.SchemaVersion == targetSchemaVersion {
		return snap, nil
	}
	chain, ok := r.chains.Get(tag)
	if !ok {
		return Snapshot{}, fmt.Errorf("stateful: no migrators registered for %q", tag)
	}

	current := snap
	for current.SchemaVersion != targetSchemaVersion {
		step, found := findStep(chain, current.SchemaVersion)
		if !found {
			return Snapshot{}, fmt.Errorf("stateful: no migration path from schema %d to %d for %q",
				current.SchemaVersion, targetSchemaVersion, tag)
		}
		next, err := step.Fn(current.State)
		if err != nil {
			return Snapshot{}, fmt.Errorf("stateful: migration %d->%d failed for %q: %w", step.From, step.To, tag, err)
		}
		current = Snapshot{
			Version:       current.Version,
			SchemaVersion: step.To,
			State:         next,
			Blobs:         current.Blobs,
		}
	}
	return current, nil
}

func findStep(chain []Migrator, from uint32) (Migrator, bool) {
	for _, m := range chain {
		if m.From == from {
			return m, true
		}
	}
	return Migrator{}, false
}
