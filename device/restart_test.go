package device

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearBackoffDelays(t *testing.T) {
	policy := RestartPolicy{MaxAttempts: 3, Strategy: RestartLinear, Base: time.Second}
	sup := NewRestartSupervisor(policy)

	d1, ok := sup.ShouldRestart()
	require.True(t, ok)
	assert.Equal(t, time.Second, d1)

	d2, ok := sup.ShouldRestart()
	require.True(t, ok)
	assert.Equal(t, 2*time.Second, d2)

	d3, ok := sup.ShouldRestart()
	require.True(t, ok)
	assert.Equal(t, 3*time.Second, d3)

	_, ok = sup.ShouldRestart()
	assert.False(t, ok, "maxAttempts exhausted")
}

func TestFibonacciBackoffDelays(t *testing.T) {
	policy := RestartPolicy{MaxAttempts: 5, Strategy: RestartFibonacci, Base: time.Second}
	sup := NewRestartSupervisor(policy)

	want := []time.Duration{1, 1, 2, 3, 5}
	for i, w := range want {
		d, ok := sup.ShouldRestart()
		require.True(t, ok, "attempt %d", i+1)
		assert.Equal(t, w*time.Second, d)
	}
	_, ok := sup.ShouldRestart()
	assert.False(t, ok)
}

func TestExponentialBackoffDelaysGrow(t *testing.T) {
	policy := RestartPolicy{MaxAttempts: 4, Strategy: RestartExponential, Base: 100 * time.Millisecond}
	sup := NewRestartSupervisor(policy)

	var prev time.Duration
	for i := 0; i < 4; i++ {
		d, ok := sup.ShouldRestart()
		require.True(t, ok)
		assert.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestUnboundedRestartNeverExhausts(t *testing.T) {
	policy := RestartPolicy{MaxAttempts: 0, Strategy: RestartLinear, Base: time.Millisecond}
	sup := NewRestartSupervisor(policy)
	for i := 0; i < 100; i++ {
		_, ok := sup.ShouldRestart()
		require.True(t, ok)
	}
}

func TestResetOnSuccessClearsAttemptCounter(t *testing.T) {
	policy := RestartPolicy{MaxAttempts: 2, Strategy: RestartLinear, Base: time.Millisecond, ResetOnSuccess: true}
	sup := NewRestartSupervisor(policy)

	_, ok := sup.ShouldRestart()
	require.True(t, ok)
	sup.NotifyRunning()
	assert.Equal(t, 0, sup.Attempts())

	_, ok = sup.ShouldRestart()
	require.True(t, ok)
	_, ok = sup.ShouldRestart()
	require.True(t, ok)
	_, ok = sup.ShouldRestart()
	assert.False(t, ok)
}
