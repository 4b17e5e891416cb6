package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/eoax"
	"github.com/veesix-networks/eoax/pkg/ethernet"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

const DefaultNameTemplate = "eoax%d"

var (
	ErrNoDevice       = errors.New("link event carries no device")
	ErrBadAddress     = errors.New("radio interface has no valid station address")
	ErrMTUTooSmall    = errors.New("radio interface MTU too small for an Ethernet header")
	ErrGroupStation   = errors.New("station SSID maps to a group Ethernet address")
	ErrControllerDone = errors.New("controller shut down")
)

type ControllerConfig struct {
	Factory      netdev.VirtualFactory
	NameTemplate string
	AutoUp       bool
	Bus          events.Bus
}

// Controller creates, stops and destroys virtual interfaces as radio
// interfaces come and go. Transitions run one at a time.
type Controller struct {
	mu           sync.Mutex
	bridge       *Bridge
	factory      netdev.VirtualFactory
	nameTemplate string
	autoUp       bool
	bus          events.Bus
	logger       *slog.Logger
	done         bool
}

func NewController(b *Bridge, cfg ControllerConfig) *Controller {
	c := &Controller{
		bridge:       b,
		factory:      cfg.Factory,
		nameTemplate: cfg.NameTemplate,
		autoUp:       cfg.AutoUp,
		bus:          cfg.Bus,
		logger:       logger.Get(logger.Bridge),
	}
	if c.nameTemplate == "" {
		c.nameTemplate = DefaultNameTemplate
	}
	return c
}

// HandleEvent applies one link state transition.
func (c *Controller) HandleEvent(ctx context.Context, ev netdev.LinkEvent) error {
	if ev.Namespace != c.bridge.namespace {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done {
		return ErrControllerDone
	}

	if ev.Type != netdev.LinkTypeAX25 {
		c.syncVirtual(ev)
		return nil
	}

	switch ev.Kind {
	case netdev.LinkActivated:
		return c.activate(ctx, ev)
	case netdev.LinkDeactivated:
		c.deactivate(ev)
	case netdev.LinkRemoved:
		if e, ok := c.bridge.registry.Lookup(ev.Index); ok {
			c.teardown(e, true)
		}
	}
	return nil
}

// Subscribe feeds link state events from bus into the controller.
func (c *Controller) Subscribe(ctx context.Context, bus events.Bus) events.Subscription {
	return bus.Subscribe(events.TopicLinkState, func(event events.Event) {
		data, ok := event.Data.(*events.LinkStateEvent)
		if !ok {
			c.logger.Warn("Unexpected link state payload", "type", fmt.Sprintf("%T", event.Data))
			return
		}
		if err := c.HandleEvent(ctx, data.Link); err != nil && !errors.Is(err, ErrControllerDone) {
			c.logger.Error("Failed to handle link event",
				"interface", data.Link.Name,
				"event", data.Link.Kind.String(),
				"error", err)
		}
	})
}

func (c *Controller) syncVirtual(ev netdev.LinkEvent) {
	e, ok := c.bridge.registry.lookupVirtualIndex(ev.Index)
	if !ok {
		return
	}
	if s, ok := e.virtual.(netdev.StateSyncer); ok {
		s.SyncState(ev.Up)
	}
}

func (c *Controller) activate(ctx context.Context, ev netdev.LinkEvent) error {
	if _, ok := c.bridge.registry.Lookup(ev.Index); ok {
		return nil
	}

	radio := ev.Device
	if radio == nil {
		return fmt.Errorf("%s: %w", ev.Name, ErrNoDevice)
	}
	addr, err := ax25.AddressFromBytes(radio.HardwareAddr())
	if err != nil {
		return fmt.Errorf("%s: %w", radio.Name(), ErrBadAddress)
	}
	mtu := radio.MTU() - ethernet.HeaderLen
	if mtu < 0 {
		return fmt.Errorf("%s: mtu %d: %w", radio.Name(), radio.MTU(), ErrMTUTooSmall)
	}

	e := &Entry{radio: HoldRadio(radio)}
	virt, err := c.factory.Create(ctx, netdev.VirtualSpec{
		NameTemplate: c.nameTemplate,
		HardwareAddr: eoax.RadioToHardware(addr),
		MTU:          mtu,
		Namespace:    c.bridge.namespace,
		Priv:         e,
		Xmit:         c.bridge.Transmit,
	})
	if err != nil {
		e.radio.Release()
		if errors.Is(err, netdev.ErrGroupAddress) {
			c.logger.Error("Virtual interface rejected group address",
				"radio", radio.Name(),
				"callsign", addr.Callsign(),
				"ssid", addr.SSID(),
				"mac", eoax.RadioToHardware(addr).String())
			err = fmt.Errorf("ssid %d: %w: %w", addr.SSID(), ErrGroupStation, err)
		}
		c.publish(events.PairLifecycleEvent{
			State:      events.PairFailed,
			Radio:      radio.Name(),
			RadioIndex: radio.Index(),
			Error:      err.Error(),
		})
		return fmt.Errorf("create virtual interface for %s: %w", radio.Name(), err)
	}
	e.virtual = virt

	if err := c.bridge.registry.Insert(e); err != nil {
		e.radio.Release()
		if derr := virt.Destroy(); derr != nil {
			c.logger.Warn("Failed to destroy virtual interface", "interface", virt.Name(), "error", derr)
		}
		return fmt.Errorf("pair %s: %w", radio.Name(), err)
	}

	c.logger.Info("Registered new device",
		"interface", virt.Name(),
		"radio", radio.Name(),
		"callsign", radioAddressString(radio),
		"mac", virt.HardwareAddr().String(),
		"mtu", virt.MTU())
	c.publish(pairEvent(events.PairCreated, e))

	if c.autoUp {
		if err := virt.Open(); err != nil {
			c.logger.Warn("Failed to bring up virtual interface", "interface", virt.Name(), "error", err)
		}
	}
	return nil
}

func (c *Controller) deactivate(ev netdev.LinkEvent) {
	e, ok := c.bridge.registry.Lookup(ev.Index)
	if !ok {
		return
	}
	if err := e.virtual.Stop(); err != nil {
		c.logger.Warn("Failed to stop virtual interface", "interface", e.virtual.Name(), "error", err)
	}
	c.publish(pairEvent(events.PairStopped, e))
}

// teardown releases the radio, unlinks the entry and destroys the virtual
// interface. The registry lock is already held when unlink is false.
func (c *Controller) teardown(e *Entry, unlink bool) {
	c.logger.Info("Unregistered device", "interface", e.virtual.Name(), "radio", e.radio.Name())

	info := pairEvent(events.PairDestroyed, e)
	e.radio.Release()
	if unlink {
		c.bridge.registry.Remove(e)
	}
	if err := e.virtual.Destroy(); err != nil {
		c.logger.Warn("Failed to destroy virtual interface", "interface", e.virtual.Name(), "error", err)
	}
	c.publish(info)
}

// Shutdown tears down every remaining pair. Further events are refused.
func (c *Controller) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.done = true
	c.bridge.registry.Drain(func(e *Entry) {
		c.teardown(e, false)
	})
	return ctx.Err()
}

func (c *Controller) publish(ev events.PairLifecycleEvent) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(events.TopicPairLifecycle, events.Event{
		Source: logger.Bridge,
		Data:   &ev,
	})
}

func pairEvent(state events.PairState, e *Entry) events.PairLifecycleEvent {
	return events.PairLifecycleEvent{
		State:        state,
		Radio:        e.radio.Name(),
		RadioIndex:   e.radio.Index(),
		Virtual:      e.virtual.Name(),
		VirtualIndex: e.virtual.Index(),
	}
}
