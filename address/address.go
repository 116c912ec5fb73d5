// Package address implements the Address and BlueprintId identity
// types described in §3: the sole routing identity in the network and
// the stable identifier of a blueprint declaration.
package address

import (
	"fmt"
	"strings"
)

// Address is the pair (route, device) naming a device in the network.
// route identifies the hub, possibly multiple hops away; device is the
// hierarchical local name inside that hub, e.g. "boiler.pump1".
type Address struct {
	Route  string
	Device string
}

// New constructs an Address.
func New(route, device string) Address {
	return Address{Route: route, Device: device}
}

// Local constructs an Address with an empty route, meaning "this hub".
func Local(device string) Address {
	return Address{Device: device}
}

// IsLocal reports whether the address has no route, i.e. it names a
// device hosted on the current hub.
func (a Address) IsLocal() bool {
	return a.Route == ""
}

// String renders the address as "route:device", or just "device" when
// local.
func (a Address) String() string {
	if a.IsLocal() {
		return a.Device
	}
	return fmt.Sprintf("%s:%s", a.Route, a.Device)
}

// Child returns the address of a hierarchical child of this device,
// e.g. Local("boiler").Child("pump1") == Local("boiler.pump1").
func (a Address) Child(localName string) Address {
	return Address{Route: a.Route, Device: joinDeviceName(a.Device, localName)}
}

// Parent returns the address of the hierarchical parent of this
// device and whether one exists.
func (a Address) Parent() (Address, bool) {
	idx := strings.LastIndex(a.Device, ".")
	if idx < 0 {
		return Address{}, false
	}
	return Address{Route: a.Route, Device: a.Device[:idx]}, true
}

func joinDeviceName(parent, local string) string {
	if parent == "" {
		return local
	}
	return parent + "." + local
}

// BlueprintId is the stable, reverse-DNS-style identifier of a
// blueprint declaration, paired with a semantic version (§3).
type BlueprintId struct {
	ID      string
	Version string
}

func (b BlueprintId) String() string {
	if b.Version == "" {
		return b.ID
	}
	return fmt.Sprintf("%s@%s", b.ID, b.Version)
}

// Equal reports whether two blueprint ids name the same id and
// version.
func (b BlueprintId) Equal(other BlueprintId) bool {
	return b.ID == other.ID && b.Version == other.Version
}
