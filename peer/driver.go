package peer

import (
	"context"

	"github.com/devicemesh-io/devicecore/core"
)

// PeerDriver dials a physical transport address and returns a
// PeerConnection to it. Blueprints reference a driver by id via
// `blueprint.PeerBlueprint.DriverID`, and a process-wide DriverRegistry
// maps those ids to drivers (§3, §9: "global registries ... peer-driver
// registry"). hub.Hub does not consult the registry: it has no
// remote-child dispatch path.
type PeerDriver interface {
	Dial(ctx context.Context, physicalAddress string) (PeerConnection, error)
}

// DriverRegistry is the process-wide registry of named PeerDrivers,
// the same TypeRegistry shape used for feature validators and
// migrators.
type DriverRegistry struct {
	drivers *core.TypeRegistry[PeerDriver]
}

// NewDriverRegistry creates an empty registry.
func NewDriverRegistry() *DriverRegistry {
	return &DriverRegistry{drivers: core.NewTypeRegistry[PeerDriver]()}
}

// Register adds or replaces the driver for id.
func (r *DriverRegistry) Register(id string, driver PeerDriver) {
	r.drivers.Register(id, driver)
}

// Get returns the driver registered for id, if any.
func (r *DriverRegistry) Get(id string) (PeerDriver, bool) {
	return r.drivers.Get(id)
}
