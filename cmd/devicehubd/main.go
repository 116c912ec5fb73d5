// Command devicehubd is a minimal example process that wires a
// blueprint registry, a Hub, and the peer transport together from
// environment configuration, the same bootstrap shape as the
// reference stack's own app entry points (apps/deploy-engine,
// apps/api): parse config, build the logger, build the dependency
// graph, run until signalled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/devicemesh-io/devicecore/blueprint"
	"github.com/devicemesh-io/devicecore/config"
	"github.com/devicemesh-io/devicecore/core"
	"github.com/devicemesh-io/devicecore/hub"
	"github.com/devicemesh-io/devicecore/peer"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("devicehubd: loading configuration: %s", err)
	}

	zapLogger, err := newZapLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("devicehubd: building logger: %s", err)
	}
	defer zapLogger.Sync()
	logger := core.NewLoggerFromZap(zapLogger).Named("devicehubd")

	registry := blueprint.NewRegistry(logger)
	if err := blueprint.LoadYAMLDir(registry, cfg.BlueprintDir); err != nil {
		logger.Warn("no blueprints loaded at startup",
			core.StringLogField("blueprintDir", cfg.BlueprintDir),
			core.ErrorLogField("error", err),
		)
	}

	h := hub.NewHub(registry, core.NewRealClock(), logger)
	defer h.Close()

	drivers := peer.NewDriverRegistry()
	drivers.Register("loopback", peer.NewLoopbackDriver())
	resolver := peer.NewAddressResolver(peer.FailoverStrategy(cfg.Peer.FailoverStrategy))
	resolver.Register(cfg.Peer.LogicalID, "loopback://"+cfg.Peer.LogicalID)

	logger.Info("devicehubd started",
		core.StringLogField("logicalId", cfg.Peer.LogicalID),
		core.StringLogField("failoverStrategy", cfg.Peer.FailoverStrategy),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("devicehubd shutting down")
}

func newZapLogger(environment, level string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	if environment == "development" {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapLevel)
		return cfg.Build()
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	return cfg.Build()
}
