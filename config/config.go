// Package config loads process configuration for the devicehubd
// bootstrap binary from the environment, the same convention the
// reference stack's apps use for their own config.go.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the top-level devicehubd process configuration.
type Config struct {
	// Environment selects human-readable development logging versus
	// JSON production logging.
	// Defaults to "production".
	Environment string `env:"DEVICEHUBD_ENVIRONMENT" envDefault:"production"`
	// LogLevel is any level zap recognises: debug, info, warn, error,
	// dpanic, panic, fatal.
	// Defaults to "info".
	LogLevel string `env:"DEVICEHUBD_LOG_LEVEL" envDefault:"info"`
	// BlueprintDir is the directory LoadYAMLDir walks at startup to
	// populate the blueprint registry.
	// Defaults to "./blueprints".
	BlueprintDir string `env:"DEVICEHUBD_BLUEPRINT_DIR" envDefault:"./blueprints"`
	// Peer provides configuration for this hub's peer transport.
	Peer PeerConfig `envPrefix:"DEVICEHUBD_PEER_"`
	// Cache provides configuration for the action-result cache.
	Cache CacheConfig `envPrefix:"DEVICEHUBD_CACHE_"`
}

// PeerConfig configures this hub's address resolution and default
// circuit-breaker tuning for outbound peer connections.
type PeerConfig struct {
	// LogicalID is this hub's own logical id, advertised to peers that
	// resolve it through their AddressResolver.
	LogicalID string `env:"LOGICAL_ID" envDefault:"hub-local"`
	// FailoverStrategy selects among Ordered, Random and RoundRobin.
	// Defaults to "Ordered".
	FailoverStrategy string `env:"FAILOVER_STRATEGY" envDefault:"Ordered"`
	// BreakerConsecutiveFailures is the number of consecutive failed
	// sends/receives that trips a peer connection's circuit breaker.
	// devicehubd loads it but builds no peer connection that uses it.
	// Defaults to 5.
	BreakerConsecutiveFailures uint32 `env:"BREAKER_CONSECUTIVE_FAILURES" envDefault:"5"`
	// BreakerOpenTimeoutMS is the time in milliseconds a tripped
	// breaker stays open before allowing a half-open probe.
	// devicehubd loads it but builds no peer connection that uses it.
	// Defaults to 30,000ms (30 seconds).
	BreakerOpenTimeoutMS int64 `env:"BREAKER_OPEN_TIMEOUT_MS" envDefault:"30000"`
}

// CacheConfig configures the hub's ActionCache.
type CacheConfig struct {
	// DefaultTTLMS is loaded from the environment but not read by the
	// hub: each cached action result's TTL comes from its action's
	// CachePolicy.TTLSeconds.
	// Defaults to 60,000ms (1 minute).
	DefaultTTLMS int64 `env:"DEFAULT_TTL_MS" envDefault:"60000"`
}

// LoadFromEnv loads Config from the process environment, applying the
// defaults above for anything unset.
func LoadFromEnv() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
