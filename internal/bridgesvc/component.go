// Package bridgesvc runs the bridge inside the daemon: it claims the EoAX
// protocol id on the AX.25 receive path and feeds link events to the
// lifecycle controller.
package bridgesvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/bridge"
	"github.com/veesix-networks/eoax/pkg/component"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

type Config struct {
	Bridge       *bridge.Bridge
	Factory      netdev.VirtualFactory
	Mux          *ax25.Mux
	Bus          events.Bus
	NameTemplate string
	AutoUp       bool
}

type Component struct {
	*component.Base

	logger *slog.Logger
	bridge *bridge.Bridge
	ctrl   *bridge.Controller
	mux    *ax25.Mux
	bus    events.Bus
	sub    events.Subscription
}

func New(cfg Config) *Component {
	return &Component{
		Base:   component.NewBase(logger.Bridge),
		logger: logger.Get(logger.Bridge),
		bridge: cfg.Bridge,
		ctrl: bridge.NewController(cfg.Bridge, bridge.ControllerConfig{
			Factory:      cfg.Factory,
			NameTemplate: cfg.NameTemplate,
			AutoUp:       cfg.AutoUp,
			Bus:          cfg.Bus,
		}),
		mux: cfg.Mux,
		bus: cfg.Bus,
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Ethernet over AX.25 encapsulation", "pid", fmt.Sprintf("0x%02x", ax25.PIDEoAX))

	if err := c.mux.Register(ax25.PIDEoAX, c.receive); err != nil {
		return fmt.Errorf("register protocol id: %w", err)
	}
	c.sub = c.ctrl.Subscribe(c.Ctx, c.bus)
	return nil
}

// Stop releases the protocol id first so no new frames arrive, stops
// listening for link changes and then tears down every pair.
func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping bridge")

	c.mux.Release(ax25.PIDEoAX)
	if c.sub != nil {
		c.sub.Unsubscribe()
	}

	err := c.ctrl.Shutdown(ctx)
	c.StopContext()
	return err
}

func (c *Component) Controller() *bridge.Controller {
	return c.ctrl
}

func (c *Component) receive(dev netdev.Device, f *netdev.Frame) {
	c.bridge.Receive(dev, f)
}
