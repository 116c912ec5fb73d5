package device

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/stateful"
)

func TestHotSwapMigratesAndRestoresState(t *testing.T) {
	old := newTestDevice(t, "thermostat", nil)
	ctx := context.Background()
	require.NoError(t, old.TriggerAttach(ctx))
	old.State.Set("setpoint", 21.0)

	migrators := stateful.NewMigratorRegistry()
	migrators.Register("thermostat", stateful.Migrator{
		From: 0,
		To:   1,
		Fn: func(s stateful.StructuredValue) (stateful.StructuredValue, error) {
			out := stateful.StructuredValue{}
			for k, v := range s {
				out[k] = v
			}
			out["units"] = "celsius"
			return out, nil
		},
	})

	newCfg := Config{
		Name:          address.Local("thermostat"),
		Blueprint:     &blueprint.DeviceBlueprint{ID: address.BlueprintId{ID: "io.example.thermostat", Version: "2.0.0"}, SchemaVersion: 1},
		RestartPolicy: RestartPolicy{MaxAttempts: 3, Strategy: RestartLinear, Base: time.Millisecond},
		Clock:         core.NewFakeClock(time.Unix(0, 0)),
		Logger:        core.NopLogger(),
	}

	var swappedOld, swappedNew *Device
	swap := func(ctx context.Context, o, n *Device) error {
		swappedOld, swappedNew = o, n
		return nil
	}

	newDevice, err := HotSwap(ctx, old, newCfg, migrators, "thermostat", nil, swap)
	require.NoError(t, err)
	assert.Same(t, old, swappedOld)
	assert.Same(t, newDevice, swappedNew)

	v, ok := newDevice.State.Get("setpoint")
	require.True(t, ok)
	assert.Equal(t, 21.0, v)
	units, ok := newDevice.State.Get("units")
	require.True(t, ok)
	assert.Equal(t, "celsius", units)
	assert.Equal(t, StateStopped, newDevice.FSM.State())
}

func TestHotSwapAbortsAndRetainsOldOnMigrationFailure(t *testing.T) {
	old := newTestDevice(t, "valve", nil)
	ctx := context.Background()
	require.NoError(t, old.TriggerAttach(ctx))
	old.State.Set("position", 50)

	newCfg := Config{
		Name:          address.Local("valve"),
		Blueprint:     &blueprint.DeviceBlueprint{ID: address.BlueprintId{ID: "io.example.valve", Version: "2.0.0"}, SchemaVersion: 7},
		RestartPolicy: RestartPolicy{MaxAttempts: 3, Strategy: RestartLinear, Base: time.Millisecond},
		Clock:         core.NewFakeClock(time.Unix(0, 0)),
		Logger:        core.NopLogger(),
	}

	result, err := HotSwap(ctx, old, newCfg, nil, "valve", nil, nil)
	require.Error(t, err)
	assert.Same(t, old, result)
}
