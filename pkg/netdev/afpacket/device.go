//go:build linux

// Package afpacket attaches to kernel AX.25 interfaces through raw packet
// sockets.
package afpacket

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
	"github.com/veesix-networks/eoax/pkg/netdev/nsutil"
)

const pollTimeoutMs = 500

type Config struct {
	Index        int
	Name         string
	HardwareAddr net.HardwareAddr
	MTU          int
	Up           bool
	Namespace    *nsutil.Namespace
}

// Device is a radio interface. Received frames are handed to the input
// function; Transmit writes complete KISS frames to the interface.
type Device struct {
	name      string
	index     int
	hwaddr    net.HardwareAddr
	namespace string
	mtu       atomic.Int64
	running   atomic.Bool
	stats     netdev.Stats
	refs      *netdev.RefCount

	// fdMu keeps the socket open for the duration of a send.
	fdMu   sync.RWMutex
	fd     int
	closed atomic.Bool
	stop   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger
}

// Open binds a packet socket to the interface in cfg. The returned device
// holds one reference owned by the caller.
func Open(cfg Config) (*Device, error) {
	fd := -1
	open := func() error {
		var err error
		fd, err = unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_AX25)))
		if err != nil {
			return fmt.Errorf("create packet socket: %w", err)
		}
		sa := &unix.SockaddrLinklayer{
			Protocol: htons(unix.ETH_P_AX25),
			Ifindex:  cfg.Index,
		}
		if err := unix.Bind(fd, sa); err != nil {
			unix.Close(fd)
			return fmt.Errorf("bind packet socket to %s: %w", cfg.Name, err)
		}
		return nil
	}

	var err error
	nsID := ""
	if cfg.Namespace != nil {
		nsID = cfg.Namespace.ID()
		err = cfg.Namespace.Do(open)
	} else {
		err = open()
	}
	if err != nil {
		return nil, err
	}

	d := &Device{
		name:      cfg.Name,
		index:     cfg.Index,
		hwaddr:    append(net.HardwareAddr(nil), cfg.HardwareAddr...),
		namespace: nsID,
		fd:        fd,
		stop:      make(chan struct{}),
		logger:    logger.Get(logger.AFPacket).With("interface", cfg.Name),
	}
	d.mtu.Store(int64(cfg.MTU))
	d.running.Store(cfg.Up)
	d.refs = netdev.NewRefCount(d.close)
	return d, nil
}

func (d *Device) Name() string                   { return d.name }
func (d *Device) Index() int                     { return d.index }
func (d *Device) Type() netdev.LinkType          { return netdev.LinkTypeAX25 }
func (d *Device) MTU() int                       { return int(d.mtu.Load()) }
func (d *Device) HardwareAddr() net.HardwareAddr { return d.hwaddr }
func (d *Device) Namespace() string              { return d.namespace }
func (d *Device) IsRunning() bool                { return d.running.Load() }
func (d *Device) Stats() *netdev.Stats           { return &d.stats }
func (d *Device) Hold()                          { d.refs.Hold() }
func (d *Device) Put()                           { d.refs.Put() }

// Update applies link attributes reported by the kernel.
func (d *Device) Update(up bool, mtu int) {
	d.running.Store(up)
	d.mtu.Store(int64(mtu))
}

func (d *Device) Transmit(f *netdev.Frame) error {
	defer f.Free()

	d.fdMu.RLock()
	defer d.fdMu.RUnlock()
	if d.closed.Load() {
		d.stats.TxErrors.Add(1)
		return netdev.ErrDeviceClosed
	}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_AX25),
		Ifindex:  d.index,
	}
	if err := unix.Sendto(d.fd, f.Bytes(), unix.MSG_DONTWAIT, sa); err != nil {
		d.stats.TxErrors.Add(1)
		return fmt.Errorf("send on %s: %w", d.name, err)
	}
	return nil
}

// Start runs the receive loop. Every frame read from the interface is
// passed to input, which takes ownership of it.
func (d *Device) Start(input func(dev netdev.Device, f *netdev.Frame) bool) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.readLoop(input)
	}()
}

func (d *Device) readLoop(input func(dev netdev.Device, f *netdev.Frame) bool) {
	fds := []unix.PollFd{{Fd: int32(d.fd), Events: unix.POLLIN}}

	for {
		select {
		case <-d.stop:
			return
		default:
		}

		n, err := unix.Poll(fds, pollTimeoutMs)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			d.logger.Error("Poll failed", "error", err)
			return
		}
		if n == 0 || fds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		buf := make([]byte, d.MTU()+ax25.HeaderLen+ax25.MaxDigis*ax25.AddrLen)
		nread, from, err := unix.Recvfrom(d.fd, buf, unix.MSG_DONTWAIT)
		if err != nil {
			if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EINTR) {
				continue
			}
			d.stats.RxErrors.Add(1)
			d.logger.Debug("Receive failed", "error", err)
			continue
		}

		// Frames we sent ourselves are looped back to packet sockets.
		if ll, ok := from.(*unix.SockaddrLinklayer); ok && ll.Pkttype == unix.PACKET_OUTGOING {
			continue
		}

		d.stats.CountRx(nread)
		if !input(d, netdev.WrapFrame(buf[:nread], 0)) {
			d.stats.RxDropped.Add(1)
		}
	}
}

func (d *Device) close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	close(d.stop)
	d.wg.Wait()

	d.fdMu.Lock()
	err := unix.Close(d.fd)
	d.fd = -1
	d.fdMu.Unlock()
	if err != nil {
		d.logger.Warn("Failed to close packet socket", "error", err)
	}
	d.logger.Debug("Closed")
}

func htons(v uint16) uint16 {
	return (v >> 8) | (v << 8)
}
