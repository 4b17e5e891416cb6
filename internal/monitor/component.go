// Package monitor serves Prometheus metrics and a read-only JSON API over
// the bridge state.
package monitor

import (
	"context"
	"errors"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/bridge"
	"github.com/veesix-networks/eoax/pkg/component"
	"github.com/veesix-networks/eoax/pkg/config/system"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/ifmgr"
	"github.com/veesix-networks/eoax/pkg/logger"
)

type Config struct {
	Monitoring system.MonitoringConfig
	Bridge     *bridge.Bridge
	Mux        *ax25.Mux
	Bus        events.Bus
	// Interfaces lists the links of the managed namespace. It may be nil.
	Interfaces func() []*ifmgr.Interface
}

type Component struct {
	*component.Base

	addr       string
	interval   time.Duration
	bridge     *bridge.Bridge
	mux        *ax25.Mux
	bus        events.Bus
	interfaces func() []*ifmgr.Interface
	history    *History
	handlers   []MetricHandler
	handler    http.Handler
	sub        events.Subscription

	mu      sync.RWMutex
	server  *http.Server
	running bool
}

func New(cfg Config) *Component {
	c := &Component{
		Base:       component.NewBase(logger.Monitor),
		addr:       cfg.Monitoring.ListenAddress,
		interval:   cfg.Monitoring.CollectInterval,
		bridge:     cfg.Bridge,
		mux:        cfg.Mux,
		bus:        cfg.Bus,
		interfaces: cfg.Interfaces,
		history:    NewHistory(cfg.Monitoring.EventHistory),
	}
	if c.addr == "" {
		c.addr = system.DefaultListenAddress
	}

	all := []MetricHandler{
		newPairsMetricHandler(c.bridge),
		newDropsMetricHandler(c.bridge),
		newMuxMetricHandler(c.mux),
		newEventsMetricHandler(c.bus),
	}
	for _, name := range cfg.Monitoring.DisabledCollectors {
		if !slices.Contains(collectorNames, name) {
			c.Logger.Warn("Unknown collector in disabled list", "name", name)
		}
	}
	for _, h := range all {
		if slices.Contains(cfg.Monitoring.DisabledCollectors, h.Name()) {
			continue
		}
		c.handlers = append(c.handlers, h)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(&prometheusCollector{logger: c.Logger, handlers: c.handlers})

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /api/show/pairs", c.handlePairs)
	mux.HandleFunc("GET /api/show/drops", c.handleDrops)
	mux.HandleFunc("GET /api/show/events", c.handleEvents)
	mux.HandleFunc("GET /api/show/interfaces", c.handleInterfaces)
	mux.HandleFunc("GET /api/show/status", c.handleStatus)
	mux.HandleFunc("GET /api/openapi.json", c.handleOpenAPI)
	mux.HandleFunc("GET /healthz", c.handleHealthz)
	mux.HandleFunc("GET /readyz", c.handleReadyz)
	c.handler = mux

	return c
}

// Handler returns the HTTP handler serving all monitor endpoints.
func (c *Component) Handler() http.Handler {
	return c.handler
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.Logger.Info("Starting monitor", "addr", c.addr, "collectors", c.collectorNames())

	ln, err := net.Listen("tcp", c.addr)
	if err != nil {
		c.StopContext()
		return err
	}

	c.sub = c.bus.SubscribeAll(c.history.Add)

	c.mu.Lock()
	c.server = &http.Server{
		Handler:           c.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	c.running = true
	srv := c.server
	c.mu.Unlock()

	c.Go(func() {
		c.serve(srv, ln)
	})
	if c.interval > 0 {
		c.Go(c.watchLoop)
	}
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.Logger.Info("Stopping monitor")

	c.mu.Lock()
	srv := c.server
	c.running = false
	c.mu.Unlock()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			c.Logger.Warn("Monitor server shutdown", "error", err)
		}
	}
	if c.sub != nil {
		c.sub.Unsubscribe()
	}

	c.StopContext()
	return nil
}

func (c *Component) GetStatus() *Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state := "stopped"
	if c.running {
		state = "running"
	}
	return &Status{
		State:         state,
		ListenAddress: c.addr,
		Collectors:    c.collectorNames(),
		Running:       c.running,
	}
}

func (c *Component) collectorNames() []string {
	names := make([]string, 0, len(c.handlers))
	for _, h := range c.handlers {
		names = append(names, h.Name())
	}
	return names
}

func (c *Component) serve(srv *http.Server, ln net.Listener) {
	c.Logger.Info("Monitor listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		c.Logger.Error("Monitor server error", "error", err)
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
	}
}

// watchLoop reports event bus losses, which mean pairs may be out of step
// with the kernel links.
func (c *Component) watchLoop() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	var lastDropped uint64
	for {
		select {
		case <-c.Ctx.Done():
			return
		case <-ticker.C:
		}

		stats := c.bus.Stats()
		if stats.Dropped > lastDropped {
			c.Logger.Warn("Event bus dropped events", "dropped", stats.Dropped-lastDropped, "total", stats.Dropped)
		}
		lastDropped = stats.Dropped

		c.Logger.Debug("Bridge state", "pairs", c.bridge.Registry().Len(), "queued-events", stats.PublishChLen)
	}
}
