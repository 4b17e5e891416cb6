//go:build linux

// Package tap provides virtual Ethernet interfaces backed by kernel TAP
// devices.
package tap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/vishvananda/netlink"
	"golang.org/x/sys/unix"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/ethernet"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
	"github.com/veesix-networks/eoax/pkg/netdev/nsutil"
)

type Factory struct {
	ns     *nsutil.Namespace
	handle *netlink.Handle
	logger *slog.Logger
}

func NewFactory(ns *nsutil.Namespace) (*Factory, error) {
	h, err := ns.NetlinkHandle()
	if err != nil {
		return nil, err
	}
	return &Factory{
		ns:     ns,
		handle: h,
		logger: logger.Get(logger.TAP),
	}, nil
}

func (f *Factory) Close() {
	f.handle.Close()
}

// Create makes a non-persistent TAP device. The kernel picks the unit number
// for the name template. The device starts administratively down.
func (f *Factory) Create(ctx context.Context, spec netdev.VirtualSpec) (netdev.VirtualDevice, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	link := &netlink.Tuntap{
		LinkAttrs:  netlink.LinkAttrs{Name: spec.NameTemplate},
		Mode:       netlink.TUNTAP_MODE_TAP,
		Flags:      netlink.TUNTAP_NO_PI,
		NonPersist: true,
	}
	if err := f.ns.Do(func() error { return netlink.LinkAdd(link) }); err != nil {
		return nil, fmt.Errorf("create tap %s: %w", spec.NameTemplate, err)
	}

	file, err := pollable(link.Fds)
	if err != nil {
		return nil, fmt.Errorf("tap %s: %w", link.Name, err)
	}

	v := &Virtual{
		name:      link.Name,
		index:     link.Index,
		hwaddr:    append(net.HardwareAddr(nil), spec.HardwareAddr...),
		namespace: spec.Namespace,
		priv:      spec.Priv,
		xmit:      spec.Xmit,
		file:      file,
		handle:    f.handle,
		logger:    f.logger.With("interface", link.Name),
	}
	v.mtu.Store(int64(spec.MTU))
	v.refs = netdev.NewRefCount(nil)

	if err := v.configure(); err != nil {
		file.Close()
		return nil, err
	}

	v.wg.Add(1)
	go v.readLoop()

	f.logger.Debug("Created tap", "interface", v.name, "index", v.index, "mac", v.hwaddr.String(), "mtu", spec.MTU)
	return v, nil
}

// pollable returns the first queue of a TAP device as a non-blocking file so
// that closing it interrupts a pending read. All other descriptors are
// closed.
func pollable(fds []*os.File) (*os.File, error) {
	if len(fds) == 0 {
		return nil, errors.New("no queue descriptors")
	}
	defer func() {
		for _, f := range fds {
			f.Close()
		}
	}()

	fd, err := unix.Dup(int(fds[0].Fd()))
	if err != nil {
		return nil, fmt.Errorf("dup queue descriptor: %w", err)
	}
	unix.CloseOnExec(fd)
	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set non-blocking: %w", err)
	}
	return os.NewFile(uintptr(fd), "/dev/net/tun"), nil
}

// Virtual is one TAP device paired with a radio interface.
type Virtual struct {
	name      string
	index     int
	hwaddr    net.HardwareAddr
	namespace string
	mtu       atomic.Int64
	running   atomic.Bool
	stats     netdev.Stats
	refs      *netdev.RefCount

	priv      any
	xmit      netdev.XmitFunc
	file      *os.File
	handle    *netlink.Handle
	destroyed atomic.Bool
	wg        sync.WaitGroup
	logger    *slog.Logger
}

func (v *Virtual) configure() error {
	link, err := v.handle.LinkByIndex(v.index)
	if err != nil {
		return fmt.Errorf("lookup tap %s: %w", v.name, err)
	}
	if err := v.handle.LinkSetHardwareAddr(link, v.hwaddr); err != nil {
		if errors.Is(err, unix.EADDRNOTAVAIL) && v.hwaddr[0]&1 != 0 {
			return fmt.Errorf("set address %s on %s: %w", v.hwaddr, v.name, netdev.ErrGroupAddress)
		}
		return fmt.Errorf("set address on %s: %w", v.name, err)
	}
	if err := v.handle.LinkSetMTU(link, v.MTU()); err != nil {
		return fmt.Errorf("set mtu on %s: %w", v.name, err)
	}
	if err := v.handle.LinkSetMulticastOff(link); err != nil {
		return fmt.Errorf("disable multicast on %s: %w", v.name, err)
	}
	if err := v.handle.LinkSetTxQLen(link, 0); err != nil {
		return fmt.Errorf("set queue length on %s: %w", v.name, err)
	}
	return nil
}

func (v *Virtual) Name() string                   { return v.name }
func (v *Virtual) Index() int                     { return v.index }
func (v *Virtual) Type() netdev.LinkType          { return netdev.LinkTypeEther }
func (v *Virtual) MTU() int                       { return int(v.mtu.Load()) }
func (v *Virtual) HardwareAddr() net.HardwareAddr { return v.hwaddr }
func (v *Virtual) Namespace() string              { return v.namespace }
func (v *Virtual) IsRunning() bool                { return v.running.Load() }
func (v *Virtual) Stats() *netdev.Stats           { return &v.stats }
func (v *Virtual) Hold()                          { v.refs.Hold() }
func (v *Virtual) Put()                           { v.refs.Put() }
func (v *Virtual) Priv() any                      { return v.priv }

func (v *Virtual) SyncState(up bool) {
	v.running.Store(up && !v.destroyed.Load())
}

func (v *Virtual) Open() error {
	if v.destroyed.Load() {
		return netdev.ErrDeviceClosed
	}
	link, err := v.handle.LinkByIndex(v.index)
	if err != nil {
		return fmt.Errorf("lookup tap %s: %w", v.name, err)
	}
	if err := v.handle.LinkSetUp(link); err != nil {
		return fmt.Errorf("set %s up: %w", v.name, err)
	}
	v.running.Store(true)
	return nil
}

func (v *Virtual) Stop() error {
	v.running.Store(false)
	if v.destroyed.Load() {
		return nil
	}
	link, err := v.handle.LinkByIndex(v.index)
	if err != nil {
		return fmt.Errorf("lookup tap %s: %w", v.name, err)
	}
	if err := v.handle.LinkSetDown(link); err != nil {
		return fmt.Errorf("set %s down: %w", v.name, err)
	}
	return nil
}

// Destroy closes the queue, which removes the non-persistent device.
func (v *Virtual) Destroy() error {
	if !v.destroyed.CompareAndSwap(false, true) {
		return nil
	}
	v.running.Store(false)
	err := v.file.Close()
	v.wg.Wait()
	return err
}

// Deliver hands an Ethernet frame to the host stack.
func (v *Virtual) Deliver(f *netdev.Frame) error {
	defer f.Free()
	if v.destroyed.Load() {
		return netdev.ErrDeviceClosed
	}
	if _, err := v.file.Write(f.Bytes()); err != nil {
		return fmt.Errorf("write to %s: %w", v.name, err)
	}
	return nil
}

// Transmit sends a frame out through the pairing, as if the host had
// queued it on the interface.
func (v *Virtual) Transmit(f *netdev.Frame) error {
	f.Dev = v
	v.xmit(v, f)
	return nil
}

func (v *Virtual) readLoop() {
	defer v.wg.Done()

	for {
		buf := make([]byte, ax25.HeaderLen+ethernet.HeaderLen+v.MTU())
		n, err := v.file.Read(buf[ax25.HeaderLen:])
		if err != nil {
			if errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
				return
			}
			if errors.Is(err, unix.EBADFD) {
				if !v.destroyed.Load() {
					v.logger.Warn("Tap queue detached", "error", err)
				}
				return
			}
			v.stats.TxErrors.Add(1)
			v.logger.Debug("Read failed", "error", err)
			continue
		}

		f := netdev.WrapFrame(buf[:ax25.HeaderLen+n], ax25.HeaderLen)
		f.Dev = v
		v.xmit(v, f)
	}
}
