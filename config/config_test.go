package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvAppliesDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, "./blueprints", cfg.BlueprintDir)
	require.Equal(t, "Ordered", cfg.Peer.FailoverStrategy)
	require.Equal(t, uint32(5), cfg.Peer.BreakerConsecutiveFailures)
	require.Equal(t, int64(60000), cfg.Cache.DefaultTTLMS)
}

func TestLoadFromEnvHonoursOverrides(t *testing.T) {
	t.Setenv("DEVICEHUBD_ENVIRONMENT", "development")
	t.Setenv("DEVICEHUBD_PEER_FAILOVER_STRATEGY", "RoundRobin")
	t.Setenv("DEVICEHUBD_PEER_LOGICAL_ID", "hub-east-1")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, "RoundRobin", cfg.Peer.FailoverStrategy)
	require.Equal(t, "hub-east-1", cfg.Peer.LogicalID)
}
