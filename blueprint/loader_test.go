package blueprint

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/core"
)

const thermostatYAML = `
id: io.example.thermostat
version: 1.0.0
features:
  - kind: lifecycle
    config:
      maxAttempts: 3
properties:
  - name: setpoint
    valueType: float
    readable: true
    mutable: true
actions:
  - name: calibrate
    inputType: object
    outputType: object
peerConnections:
  cloudBroker:
    driverId: mqtt
    addresses: ["tcp://broker:1883"]
children:
  sensor:
    peer: cloudBroker
    remoteName: outdoorSensor
    blueprintId: io.example.sensor@1.0.0
`

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "thermostat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(thermostatYAML), 0o644))

	reg := NewRegistry(core.NopLogger())
	require.NoError(t, LoadYAMLFile(reg, path))

	resolved, err := reg.Resolve("io.example.thermostat", "1.0.0")
	require.NoError(t, err)
	require.Len(t, resolved.Properties, 1)
	assert.Equal(t, "setpoint", resolved.Properties[0].Name)
	require.Len(t, resolved.Actions, 1)
	assert.Equal(t, "calibrate", resolved.Actions[0].Name)

	sensorChild, ok := resolved.Children["sensor"]
	require.True(t, ok)
	assert.True(t, sensorChild.IsRemote())
	assert.Equal(t, "cloudBroker", sensorChild.Remote.PeerName)
	assert.Equal(t, "io.example.sensor", sensorChild.Remote.BlueprintID.ID)
	assert.Equal(t, "1.0.0", sensorChild.Remote.BlueprintID.Version)
}

func TestLoadYAMLDirOrdersLexically(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-base.yaml"), []byte(`
id: io.example.base
version: 1.0.0
features:
  - kind: lifecycle
    config: { maxAttempts: 1 }
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b-derived.yaml"), []byte(`
id: io.example.derived
version: 1.0.0
inheritsFrom: io.example.base@1.0.0
features:
  - kind: lifecycle
    config: { maxAttempts: 1 }
`), 0o644))

	reg := NewRegistry(core.NopLogger())
	require.NoError(t, LoadYAMLDir(reg, dir))

	_, err := reg.Resolve("io.example.derived", "1.0.0")
	require.NoError(t, err)
}

func TestLoadYAMLFileRejectsInvalidBlueprint(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: io.example.bad
version: 1.0.0
properties:
  - name: x
    persistent: true
    transient: true
`), 0o644))

	reg := NewRegistry(core.NopLogger())
	err := LoadYAMLFile(reg, path)
	require.Error(t, err)
}
