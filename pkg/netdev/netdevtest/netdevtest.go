// Package netdevtest provides in-memory devices for exercising code that
// depends on package netdev.
package netdevtest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

const Namespace = "test"

type Device struct {
	name      string
	index     int
	linkType  netdev.LinkType
	mtu       atomic.Int64
	hwaddr    net.HardwareAddr
	namespace string
	running   atomic.Bool
	stats     netdev.Stats
	refs      atomic.Int32

	mu      sync.Mutex
	sent    []*netdev.Frame
	txRefs  []int
	sendErr error
}

func NewRadio(name string, index int, addr []byte, mtu int) *Device {
	d := &Device{
		name:      name,
		index:     index,
		linkType:  netdev.LinkTypeAX25,
		hwaddr:    append(net.HardwareAddr(nil), addr...),
		namespace: Namespace,
	}
	d.mtu.Store(int64(mtu))
	d.running.Store(true)
	d.refs.Store(1)
	return d
}

func (d *Device) Name() string                   { return d.name }
func (d *Device) Index() int                     { return d.index }
func (d *Device) Type() netdev.LinkType          { return d.linkType }
func (d *Device) MTU() int                       { return int(d.mtu.Load()) }
func (d *Device) HardwareAddr() net.HardwareAddr { return d.hwaddr }
func (d *Device) Namespace() string              { return d.namespace }
func (d *Device) IsRunning() bool                { return d.running.Load() }
func (d *Device) Stats() *netdev.Stats           { return &d.stats }
func (d *Device) Hold()                          { d.refs.Add(1) }
func (d *Device) Put()                           { d.refs.Add(-1) }

func (d *Device) Refs() int {
	return int(d.refs.Load())
}

func (d *Device) SetNamespace(ns string) {
	d.namespace = ns
}

func (d *Device) SetRunning(up bool) {
	d.running.Store(up)
}

func (d *Device) SetMTU(mtu int) {
	d.mtu.Store(int64(mtu))
}

func (d *Device) FailTransmit(err error) {
	d.mu.Lock()
	d.sendErr = err
	d.mu.Unlock()
}

func (d *Device) Transmit(f *netdev.Frame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.sendErr != nil {
		d.stats.TxErrors.Add(1)
		return d.sendErr
	}
	d.sent = append(d.sent, f)
	d.txRefs = append(d.txRefs, d.Refs())
	return nil
}

// TransmitRefs returns the reference count seen by each successful Transmit.
func (d *Device) TransmitRefs() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.txRefs...)
}

func (d *Device) Sent() []*netdev.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*netdev.Frame(nil), d.sent...)
}

type Virtual struct {
	Device

	priv      any
	xmit      netdev.XmitFunc
	destroyed atomic.Bool

	dmu       sync.Mutex
	delivered []*netdev.Frame
}

func (v *Virtual) Open() error {
	if v.destroyed.Load() {
		return netdev.ErrDeviceClosed
	}
	v.running.Store(true)
	return nil
}

func (v *Virtual) Stop() error {
	v.running.Store(false)
	return nil
}

func (v *Virtual) Destroy() error {
	v.running.Store(false)
	v.destroyed.Store(true)
	return nil
}

func (v *Virtual) Destroyed() bool {
	return v.destroyed.Load()
}

func (v *Virtual) SyncState(up bool) {
	v.running.Store(up)
}

func (v *Virtual) Priv() any {
	return v.priv
}

func (v *Virtual) Deliver(f *netdev.Frame) error {
	if v.destroyed.Load() {
		return netdev.ErrDeviceClosed
	}
	v.dmu.Lock()
	v.delivered = append(v.delivered, f)
	v.dmu.Unlock()
	return nil
}

func (v *Virtual) Delivered() []*netdev.Frame {
	v.dmu.Lock()
	defer v.dmu.Unlock()
	return append([]*netdev.Frame(nil), v.delivered...)
}

// Inject hands a frame to the virtual device's transmit hook as the host
// stack would.
func (v *Virtual) Inject(data []byte, headroom int) netdev.TxResult {
	f := netdev.NewFrame(headroom, len(data))
	copy(f.Bytes(), data)
	f.Dev = v
	return v.xmit(v, f)
}

var ErrFactoryFailed = errors.New("virtual device creation failed")

type Factory struct {
	mu        sync.Mutex
	nextIndex int
	created   []*Virtual
	fail      bool
	autoUp    bool
	noGroup   bool
}

func NewFactory() *Factory {
	return &Factory{nextIndex: 100}
}

func (f *Factory) FailNext(fail bool) {
	f.mu.Lock()
	f.fail = fail
	f.mu.Unlock()
}

// StartUp makes created devices administratively up.
func (f *Factory) StartUp(up bool) {
	f.mu.Lock()
	f.autoUp = up
	f.mu.Unlock()
}

// RejectGroupAddress makes Create fail for hardware addresses with the group
// bit set, as kernel Ethernet devices do.
func (f *Factory) RejectGroupAddress(reject bool) {
	f.mu.Lock()
	f.noGroup = reject
	f.mu.Unlock()
}

func (f *Factory) Create(ctx context.Context, spec netdev.VirtualSpec) (netdev.VirtualDevice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		return nil, ErrFactoryFailed
	}
	if f.noGroup && len(spec.HardwareAddr) > 0 && spec.HardwareAddr[0]&1 != 0 {
		return nil, fmt.Errorf("set address %s: %w", spec.HardwareAddr, netdev.ErrGroupAddress)
	}

	name := spec.NameTemplate
	if strings.Contains(name, "%d") {
		name = fmt.Sprintf(name, len(f.created))
	}

	v := &Virtual{priv: spec.Priv, xmit: spec.Xmit}
	v.name = name
	v.index = f.nextIndex
	v.linkType = netdev.LinkTypeEther
	v.hwaddr = append(net.HardwareAddr(nil), spec.HardwareAddr...)
	v.namespace = spec.Namespace
	v.mtu.Store(int64(spec.MTU))
	v.running.Store(f.autoUp)
	v.refs.Store(1)

	f.nextIndex++
	f.created = append(f.created, v)
	return v, nil
}

func (f *Factory) Created() []*Virtual {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*Virtual(nil), f.created...)
}
