package stateful

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkDirtyIncrementsVersionMonotonically(t *testing.T) {
	s := NewDeviceState()
	assert.Equal(t, uint64(0), s.DirtyVersion())
	assert.False(t, s.IsDirty())

	s.MarkDirty()
	assert.Equal(t, uint64(1), s.DirtyVersion())
	assert.True(t, s.IsDirty())

	s.MarkDirty()
	s.MarkDirty()
	assert.Equal(t, uint64(3), s.DirtyVersion())
}

func TestSetMarksDirtyAndStoresValue(t *testing.T) {
	s := NewDeviceState()
	s.Set("temperature", 21.5)

	v, ok := s.Get("temperature")
	require.True(t, ok)
	assert.Equal(t, 21.5, v)
	assert.True(t, s.IsDirty())
	assert.Equal(t, uint64(1), s.DirtyVersion())
}

func TestClearDirtyFlagSucceedsWhenVersionUnchanged(t *testing.T) {
	s := NewDeviceState()
	s.Set("a", 1)
	version := s.DirtyVersion()

	assert.True(t, s.ClearDirtyFlag(version))
	assert.False(t, s.IsDirty())
}

func TestClearDirtyFlagFailsWhenConcurrentWriteRaced(t *testing.T) {
	s := NewDeviceState()
	s.Set("a", 1)
	staleVersion := s.DirtyVersion()

	s.Set("a", 2) // bumps version past staleVersion

	assert.False(t, s.ClearDirtyFlag(staleVersion))
	assert.True(t, s.IsDirty())
}

func TestDirtyVersionNeverDecreasesUnderConcurrentWrites(t *testing.T) {
	s := NewDeviceState()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Set("k", i)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, uint64(50), s.DirtyVersion())
}

func TestPropertiesReturnsIndependentCopy(t *testing.T) {
	s := NewDeviceState()
	s.Set("a", 1)

	props := s.Properties()
	props["a"] = 999

	v, _ := s.Get("a")
	assert.Equal(t, 1, v)
}

func TestRestoreReplacesAllProperties(t *testing.T) {
	s := NewDeviceState()
	s.Set("a", 1)
	s.Set("b", 2)

	s.Restore(StructuredValue{"c": 3})

	_, ok := s.Get("a")
	assert.False(t, ok)
	v, ok := s.Get("c")
	require.True(t, ok)
	assert.Equal(t, 3, v)
}
