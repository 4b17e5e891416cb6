//go:build linux

// Package linkwatch follows kernel link state in the managed namespace and
// publishes it on the event bus.
package linkwatch

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/component"
	"github.com/veesix-networks/eoax/pkg/events"
	"github.com/veesix-networks/eoax/pkg/ifmgr"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
	"github.com/veesix-networks/eoax/pkg/netdev/afpacket"
	"github.com/veesix-networks/eoax/pkg/netdev/nsutil"
)

const updateQueueSize = 256

type radioDevice interface {
	netdev.Device
	Update(up bool, mtu int)
	Start(input func(dev netdev.Device, f *netdev.Frame) bool)
}

type openFunc func(cfg afpacket.Config) (radioDevice, error)

func openAFPacket(cfg afpacket.Config) (radioDevice, error) {
	return afpacket.Open(cfg)
}

// Component opens a packet socket for every AX.25 link it sees and
// publishes link transitions on events.TopicLinkState. Every published
// event holds a reference on its device until all subscribers registered
// before the component was started have handled it.
type Component struct {
	*component.Base

	logger *slog.Logger
	bus    events.Bus
	ns     *nsutil.Namespace
	nsID   string
	mux    *ax25.Mux
	ifaces *ifmgr.Manager
	open   openFunc

	mu      sync.Mutex
	radios  map[int]radioDevice
	updates chan netlink.LinkUpdate
	done    chan struct{}
	release events.Subscription
}

func New(bus events.Bus, ns *nsutil.Namespace, mux *ax25.Mux) *Component {
	return newComponent(bus, ns, ns.ID(), mux, openAFPacket)
}

func newComponent(bus events.Bus, ns *nsutil.Namespace, nsID string, mux *ax25.Mux, open openFunc) *Component {
	return &Component{
		Base:   component.NewBase(logger.LinkWatch),
		logger: logger.Get(logger.LinkWatch),
		bus:    bus,
		ns:     ns,
		nsID:   nsID,
		mux:    mux,
		ifaces: ifmgr.New(),
		open:   open,
		radios: make(map[int]radioDevice),
	}
}

func (c *Component) Start(ctx context.Context) error {
	c.StartContext(ctx)
	c.logger.Info("Starting link watcher", "namespace", c.ns.String())

	c.release = c.bus.Subscribe(events.TopicLinkState, c.releaseEvent)

	c.updates = make(chan netlink.LinkUpdate, updateQueueSize)
	c.done = make(chan struct{})
	err := netlink.LinkSubscribeWithOptions(c.updates, c.done, netlink.LinkSubscribeOptions{
		Namespace:    &c.ns.Handle,
		ListExisting: true,
		ErrorCallback: func(err error) {
			c.logger.Error("Link subscription error", "error", err)
		},
	})
	if err != nil {
		c.release.Unsubscribe()
		return fmt.Errorf("subscribe to link updates: %w", err)
	}

	c.Go(c.loop)
	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	c.logger.Info("Stopping link watcher")

	if c.done != nil {
		close(c.done)
	}
	c.StopContext()

	c.mu.Lock()
	for index, dev := range c.radios {
		delete(c.radios, index)
		dev.Put()
	}
	c.mu.Unlock()

	// The release subscription stays until the bus is closed so that events
	// still queued give their references back.
	return nil
}

// Interfaces returns the links currently known.
func (c *Component) Interfaces() []*ifmgr.Interface {
	return c.ifaces.List()
}

func (c *Component) loop() {
	for {
		select {
		case <-c.Ctx.Done():
			return
		case u, ok := <-c.updates:
			if !ok {
				c.logger.Warn("Link subscription closed")
				return
			}
			c.handleUpdate(u)
		}
	}
}

func (c *Component) handleUpdate(u netlink.LinkUpdate) {
	attrs := u.Link.Attrs()
	if attrs == nil {
		return
	}

	if u.Header.Type == unix.RTM_DELLINK {
		c.remove(attrs.Index)
		return
	}

	linkType := linkTypeOf(u.IfInfomsg.Type)
	if linkType == netdev.LinkTypeUnknown {
		return
	}

	iface := &ifmgr.Interface{
		Index:     attrs.Index,
		Name:      attrs.Name,
		Type:      linkType,
		AdminUp:   attrs.Flags&net.FlagUp != 0,
		MTU:       attrs.MTU,
		MAC:       attrs.HardwareAddr,
		Namespace: c.nsID,
	}

	var dev radioDevice
	if iface.IsRadio() {
		dev = c.radio(iface)
	}

	for _, kind := range c.ifaces.Update(iface) {
		c.publish(kind, iface, dev)
	}
}

func (c *Component) radio(iface *ifmgr.Interface) radioDevice {
	c.mu.Lock()
	defer c.mu.Unlock()

	if dev, ok := c.radios[iface.Index]; ok {
		dev.Update(iface.AdminUp, iface.MTU)
		return dev
	}

	dev, err := c.open(afpacket.Config{
		Index:        iface.Index,
		Name:         iface.Name,
		HardwareAddr: iface.MAC,
		MTU:          iface.MTU,
		Up:           iface.AdminUp,
		Namespace:    c.ns,
	})
	if err != nil {
		c.logger.Error("Failed to attach to radio interface", "interface", iface.Name, "error", err)
		return nil
	}
	if c.mux != nil {
		dev.Start(c.mux.Input)
	}
	c.radios[iface.Index] = dev

	c.logger.Info("Attached to radio interface",
		"interface", iface.Name,
		"index", iface.Index,
		"callsign", callsign(iface.MAC))
	return dev
}

func (c *Component) remove(index int) {
	iface, kinds := c.ifaces.Remove(index)
	if iface == nil {
		return
	}

	c.mu.Lock()
	dev := c.radios[index]
	delete(c.radios, index)
	c.mu.Unlock()

	if dev != nil {
		dev.Update(false, iface.MTU)
	}
	iface.AdminUp = false
	for _, kind := range kinds {
		c.publish(kind, iface, dev)
	}
	if dev != nil {
		dev.Put()
		c.logger.Info("Detached from radio interface", "interface", iface.Name)
	}
}

func (c *Component) publish(kind netdev.LinkEventKind, iface *ifmgr.Interface, dev radioDevice) {
	ev := netdev.LinkEvent{
		Kind:      kind,
		Index:     iface.Index,
		Name:      iface.Name,
		Type:      iface.Type,
		Up:        iface.AdminUp,
		MTU:       iface.MTU,
		Namespace: iface.Namespace,
	}
	if dev != nil {
		dev.Hold()
		ev.Device = dev
	}

	c.logger.Debug("Link event", "interface", iface.Name, "event", kind.String(), "type", iface.Type.String())
	c.bus.Publish(events.TopicLinkState, events.Event{
		Source: logger.LinkWatch,
		Data:   &events.LinkStateEvent{Link: ev},
	})
}

func (c *Component) releaseEvent(event events.Event) {
	data, ok := event.Data.(*events.LinkStateEvent)
	if !ok || data.Link.Device == nil {
		return
	}
	data.Link.Device.Put()
}

func linkTypeOf(arphrd uint16) netdev.LinkType {
	switch arphrd {
	case unix.ARPHRD_AX25:
		return netdev.LinkTypeAX25
	case unix.ARPHRD_ETHER:
		return netdev.LinkTypeEther
	default:
		return netdev.LinkTypeUnknown
	}
}

func callsign(hw net.HardwareAddr) string {
	addr, err := ax25.AddressFromBytes(hw)
	if err != nil {
		return ""
	}
	return addr.String()
}
