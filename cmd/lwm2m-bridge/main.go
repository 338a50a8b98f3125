// Command lwm2m-bridge runs the LwM2M downlink bridge.
//
// It loads object models and credentials, starts the telemetry bus and the
// pending-request sweeper, and connects simulated devices through the
// in-memory engine. Each device is bootstrapped with initial reads of its
// announced object instances.
//
// Usage:
//
//	lwm2m-bridge [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-devices int          Number of simulated devices (default 1)
//	-protocol-log string  Protocol capture file (overrides the config)
//	-interactive          Start the operator shell
//
// Examples:
//
//	# Two simulated devices with the operator shell
//	lwm2m-bridge -devices 2 -interactive
//
//	# Publish telemetry to MQTT as configured
//	lwm2m-bridge -config /etc/lwm2m/bridge.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lwm2m-bridge/lwm2m-go/cmd/lwm2m-bridge/interactive"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/config"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/credentials"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/devicesim"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/downlink"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/engine"
	plog "github.com/lwm2m-bridge/lwm2m-go/pkg/log"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/model"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/modelstore"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/session"
	"github.com/lwm2m-bridge/lwm2m-go/pkg/telemetry"
)

var (
	configFile  = flag.String("config", "", "Configuration file path")
	logLevel    = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	devices     = flag.Int("devices", 1, "Number of simulated devices")
	protocolLog = flag.String("protocol-log", "", "Protocol capture file (overrides the config)")
	interact    = flag.Bool("interactive", false, "Start the operator shell")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "lwm2m-bridge: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := setupLogging(*logLevel, os.Stderr)

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if *protocolLog != "" {
		cfg.ProtocolLog = *protocolLog
	}

	var shell *interactive.Shell
	if *interact {
		shell, err = interactive.New(cfg.DispatchTimeout())
		if err != nil {
			return err
		}
		logger = setupLogging(*logLevel, shell.Stdout())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	models := loadModels(cfg, logger)
	provider := openModelStore(ctx, cfg, modelstore.NewStaticProvider(models), logger)

	creds := credentials.Load(cfg.Keystore, cfg.KeystorePath(), logger)
	if creds.Enabled {
		logger.Info("security enabled", "keystore", creds.Path)
	} else {
		logger.Warn("security disabled", "reason", creds.Reason)
	}

	capture, closeCapture, err := openCapture(cfg.ProtocolLog, logger)
	if err != nil {
		return err
	}
	defer closeCapture()

	pub, err := telemetry.NewPublisher(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer pub.Close()
	bus := telemetry.NewBus(pub, cfg.Telemetry.TopicPrefix, cfg.Telemetry.QueueSize)
	bus.SetLogger(logger)
	bus.Start()

	registry := session.NewRegistry()
	registry.SetLogger(logger)
	if err := registry.Start(cfg.Pending.Sweep); err != nil {
		return fmt.Errorf("pending sweeper: %w", err)
	}

	hub := engine.NewHub()
	hub.SetLogger(logger)
	hub.SetProtocolLogger(capture)

	pool := downlink.NewPool(cfg.Workers, cfg.QueueSize, logger)
	router := downlink.NewRouter(bus)
	router.SetLogger(logger)
	router.SetProtocolLogger(capture)
	dispatcher := downlink.NewDispatcher(hub, pool, router, bus)
	dispatcher.SetLogger(logger)
	dispatcher.SetProtocolLogger(capture)
	dispatcher.SetDefaultTimeout(cfg.DispatchTimeout())
	builder := downlink.NewBuilder(provider)
	builder.SetLogger(logger)
	service := downlink.NewService(builder, dispatcher)
	service.SetLogger(logger)
	service.SetPendingTimeout(cfg.Pending.Timeout)

	if shell != nil {
		shell.Bind(registry, service)
	}

	for i := range *devices {
		dev := devicesim.NewDefault(fmt.Sprintf("urn:dev:sim-%d", i+1))
		dev.SetLogger(logger)
		c := devicesim.Register(ctx, registry, hub, dev, fmt.Sprintf("sim:%d", i+1))
		go func() {
			n, err := service.Bootstrap(ctx, c, cfg.DispatchTimeout())
			logger.Info("bootstrap finished", "endpoint", c.Endpoint(), "reads", n, "error", err)
		}()
	}

	if shell != nil {
		shell.Run(ctx, cancel)
	} else {
		waitForSignal(ctx, logger)
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = hub.Close()
	pool.Close()
	if err := registry.Stop(shutdownCtx); err != nil {
		logger.Warn("sweeper did not stop", "error", err)
	}
	if err := bus.Close(shutdownCtx); err != nil {
		logger.Warn("telemetry queue not drained", "error", err)
	}
	logger.Info("stopped", "published", bus.Published(), "dropped", bus.Dropped())
	return nil
}

func setupLogging(level string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// loadModels merges the definition directory over the built-in models. A
// broken directory leaves the built-ins only.
func loadModels(cfg *config.Config, logger *slog.Logger) []*model.ObjectModel {
	dir := cfg.ModelsDir()
	loaded, err := model.LoadDir(dir)
	if err != nil {
		logger.Warn("object models not loaded, using defaults only", "dir", dir, "error", err)
		return model.LoadDefault()
	}
	models := model.Merge(model.LoadDefault(), loaded)
	logger.Info("object models loaded", "dir", dir, "files", len(loaded), "objects", len(models))
	return models
}

func openModelStore(ctx context.Context, cfg *config.Config, static *modelstore.StaticProvider, logger *slog.Logger) modelstore.Provider {
	if cfg.Redis.URL == "" {
		return static
	}
	client, err := modelstore.OpenRedis(ctx, cfg.Redis.URL)
	if err != nil {
		logger.Warn("redis unavailable, using local models", "error", err)
		return static
	}
	p := modelstore.NewRedisProvider(client, cfg.Redis.KeyPrefix, static)
	p.SetLogger(logger)
	return p
}

func openCapture(path string, logger *slog.Logger) (plog.Logger, func(), error) {
	var loggers []plog.Logger
	closeFn := func() {}
	if path != "" {
		fl, err := plog.NewFileLogger(path)
		if err != nil {
			return nil, nil, fmt.Errorf("protocol log: %w", err)
		}
		loggers = append(loggers, fl)
		closeFn = func() {
			_ = fl.Close()
			logger.Info("protocol log closed", "path", fl.Path(), "events", fl.Written())
		}
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		loggers = append(loggers, plog.NewSlogAdapter(logger))
	}
	multi := plog.NewMultiLogger(loggers...)
	if multi.Len() == 0 {
		return plog.NoopLogger{}, closeFn, nil
	}
	return multi, closeFn, nil
}

func waitForSignal(ctx context.Context, logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig)
	case <-ctx.Done():
	}
}
