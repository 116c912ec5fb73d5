package stateful

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicemesh-io/devicecore/fault"
)

type fakeLifecycleState string

const (
	fakeStopped   fakeLifecycleState = "Stopped"
	fakeAttaching fakeLifecycleState = "Attaching"
	fakeRunning   fakeLifecycleState = "Running"
)

func TestSnapshotRoundTripPreservesState(t *testing.T) {
	s := NewDeviceState()
	s.Set("mode", "eco")
	s.Set("setpoint", 21.0)

	snap := TakeSnapshot(s, 1, nil)
	assert.Equal(t, uint32(1), snap.SchemaVersion)
	assert.Equal(t, s.DirtyVersion(), snap.Version)

	restored := NewDeviceState()
	require.NoError(t, Restore(restored, snap, 1, fakeStopped, fakeStopped, fakeAttaching))

	v, ok := restored.Get("mode")
	require.True(t, ok)
	assert.Equal(t, "eco", v)
}

func TestRestoreRejectsWhenNotStoppedOrAttaching(t *testing.T) {
	s := NewDeviceState()
	snap := TakeSnapshot(s, 1, nil)

	err := Restore(NewDeviceState(), snap, 1, fakeRunning, fakeStopped, fakeAttaching)
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.CodeInvalidState, f.Code)
}

func TestRestoreRejectsNewerSchemaAsIncompatible(t *testing.T) {
	s := NewDeviceState()
	snap := TakeSnapshot(s, 3, nil)

	err := Restore(NewDeviceState(), snap, 1, fakeStopped, fakeStopped, fakeAttaching)
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.CodeIncompatibleSchema, f.Code)
}

func TestRestoreRejectsOlderSchemaWithoutMigration(t *testing.T) {
	s := NewDeviceState()
	snap := TakeSnapshot(s, 1, nil)

	err := Restore(NewDeviceState(), snap, 2, fakeStopped, fakeStopped, fakeAttaching)
	require.Error(t, err)
	f, ok := fault.As(err)
	require.True(t, ok)
	assert.Equal(t, fault.CodeInvalidState, f.Code)
}

func TestSnapshotCapturesBlobs(t *testing.T) {
	s := NewDeviceState()
	snap := TakeSnapshot(s, 1, map[string][]byte{"firmware": {0x01, 0x02}})
	assert.Equal(t, []byte{0x01, 0x02}, snap.Blobs["firmware"])
}
