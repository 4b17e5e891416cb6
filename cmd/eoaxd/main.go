//go:build linux

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/veesix-networks/eoax/internal/bridgesvc"
	"github.com/veesix-networks/eoax/internal/linkwatch"
	"github.com/veesix-networks/eoax/internal/monitor"
	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/bridge"
	"github.com/veesix-networks/eoax/pkg/component"
	"github.com/veesix-networks/eoax/pkg/config"
	"github.com/veesix-networks/eoax/pkg/events/local"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev/nsutil"
	"github.com/veesix-networks/eoax/pkg/netdev/tap"
	"github.com/veesix-networks/eoax/pkg/version"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to configuration file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("eoaxd", version.Full())
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	components := make(map[string]logger.LogLevel, len(cfg.Logging.Components))
	for name, level := range cfg.Logging.Components {
		components[name] = logger.LogLevel(level)
	}
	logger.Configure(cfg.Logging.Format, logger.LogLevel(cfg.Logging.Level), components)

	mainLog := logger.Get(logger.Main)
	mainLog.Info("Starting eoaxd", "version", version.Version, "config", *configPath)

	eventBus := local.NewBusWithSize(cfg.Events.QueueSize)
	eventBus.SetDebugTopics(cfg.Events.DebugTopics)

	ns, err := nsutil.Open(cfg.Bridge.Namespace)
	if err != nil {
		log.Fatalf("Failed to open network namespace: %v", err)
	}

	factory, err := tap.NewFactory(ns)
	if err != nil {
		log.Fatalf("Failed to open netlink handle in %s: %v", ns, err)
	}

	mux := ax25.NewMux()
	br := bridge.New(bridge.Config{
		Namespace:  ns.ID(),
		DumpFrames: cfg.Bridge.DumpFrames,
	})

	bridgeComp := bridgesvc.New(bridgesvc.Config{
		Bridge:       br,
		Factory:      factory,
		Mux:          mux,
		Bus:          eventBus,
		NameTemplate: cfg.Bridge.NameTemplate,
		AutoUp:       cfg.Bridge.AutoUp,
	})
	linkComp := linkwatch.New(eventBus, ns, mux)

	// The bridge subscribes to link events before the watcher starts
	// publishing them.
	orch := component.NewOrchestrator()
	orch.Register(bridgeComp)
	orch.Register(linkComp)

	if cfg.Monitor.Enabled {
		orch.Register(monitor.New(monitor.Config{
			Monitoring: cfg.Monitor,
			Bridge:     br,
			Mux:        mux,
			Bus:        eventBus,
			Interfaces: linkComp.Interfaces,
		}))
	}

	ctx := context.Background()
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start components: %v", err)
	}

	mainLog.Info("eoaxd started", "namespace", ns.String(), "name-template", cfg.Bridge.NameTemplate)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	mainLog.Info("Shutting down eoaxd", "signal", sig.String())

	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := orch.Stop(stopCtx); err != nil {
		mainLog.Error("Error stopping components", "error", err)
	}

	if err := eventBus.Close(); err != nil {
		mainLog.Error("Error closing event bus", "error", err)
	}
	factory.Close()
	if err := ns.Close(); err != nil {
		mainLog.Error("Error closing network namespace", "error", err)
	}

	mainLog.Info("eoaxd stopped")
}

// loadConfig falls back to the defaults when the default path does not
// exist. An explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, os.ErrNotExist) && path == config.DefaultPath {
		return config.Default(), nil
	}
	return cfg, err
}
