package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/address"
	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/core"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	reg := blueprint.NewRegistry(core.NopLogger())
	bp := &blueprint.DeviceBlueprint{
		ID: address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"},
		Properties: []blueprint.PropertyDescriptor{
			{Name: "setpoint", ValueType: blueprint.ValueTypeFloat, Readable: true, Mutable: true},
		},
		Actions: []blueprint.ActionDescriptor{
			{Name: "readTemp", OutputType: blueprint.ValueTypeFloat,
				CachePolicy: &blueprint.CachePolicy{TTLSeconds: 60, Scope: blueprint.CacheScopePerHub}},
		},
	}
	require.NoError(t, reg.Register(bp))

	h := NewHub(reg, core.NewFakeClock(time.Unix(0, 0)), core.NopLogger())
	t.Cleanup(h.Close)
	return h
}

func TestHubAttachReadWriteProperty(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	addr := address.Local("thermostat1")

	require.NoError(t, h.Attach(ctx, addr, address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"}, nil))

	require.NoError(t, h.WriteProperty(ctx, addr, "setpoint", 21.5))

	v, err := h.ReadProperty(ctx, ExecutionContext{}, addr, "setpoint")
	require.NoError(t, err)
	assert.Equal(t, 21.5, v)
}

func TestHubWritePropertyRejectsUnknownProperty(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	addr := address.Local("thermostat2")
	require.NoError(t, h.Attach(ctx, addr, address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"}, nil))

	err := h.WriteProperty(ctx, addr, "unknown", 1)
	assert.Error(t, err)
}

func TestHubExecuteUsesActionHandlerAndCaches(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	addr := address.Local("thermostat3")
	require.NoError(t, h.Attach(ctx, addr, address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"}, nil))

	calls := 0
	h.RegisterActionHandler(address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"}, "readTemp",
		func(ctx context.Context, ectx ExecutionContext, addr address.Address, input any) (ExecutionResult, error) {
			calls++
			return immediate(21.0), nil
		})

	result, err := h.Execute(ctx, ExecutionContext{}, addr, "readTemp", nil)
	require.NoError(t, err)
	assert.Equal(t, ExecutionImmediate, result.Kind)
	assert.Equal(t, 21.0, result.Output)
	assert.Equal(t, 1, calls)

	// The second call is served from the action cache.
	result, err = h.Execute(ctx, ExecutionContext{}, addr, "readTemp", nil)
	require.NoError(t, err)
	assert.Equal(t, 21.0, result.Output)
	assert.Equal(t, 1, calls)
}

func TestHubAttachPublishesDeviceAttachedEvent(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	addr := address.Local("thermostat4")

	ch, cancel := h.Subscribe("hub.deviceAttached.**")
	defer cancel()

	require.NoError(t, h.Attach(ctx, addr, address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"}, nil))

	select {
	case got := <-ch:
		assert.Equal(t, "thermostat4", got.Message.SourceDevice)
	case <-time.After(time.Second):
		t.Fatal("expected hub.deviceAttached event")
	}
}

func TestHubDetachRemovesDevice(t *testing.T) {
	h := newTestHub(t)
	ctx := context.Background()
	addr := address.Local("thermostat5")
	require.NoError(t, h.Attach(ctx, addr, address.BlueprintId{ID: "io.example.thermostat", Version: "1.0.0"}, nil))

	require.NoError(t, h.Detach(ctx, addr))

	_, err := h.ReadProperty(ctx, ExecutionContext{}, addr, "setpoint")
	assert.Error(t, err)
}
