// Package bridge pairs AX.25 interfaces with virtual Ethernet interfaces and
// moves frames between them.
//
// Frames arriving on a radio interface with the EoAX protocol id carry a
// complete Ethernet frame; they are delivered unchanged to the paired virtual
// interface. Frames the host sends through a virtual interface get an AX.25
// UI header addressed to the station derived from the Ethernet destination
// and are queued on the radio interface.
package bridge

import (
	"context"
	"log/slog"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/logger"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

// HeaderBuilder produces the on-air link header for a frame leaving on dev.
type HeaderBuilder interface {
	BuildHeader(f *netdev.Frame, dev netdev.Device, pid byte, dst ax25.Address) error
}

type Config struct {
	// Namespace identifies the network namespace whose interfaces are
	// bridged. Interfaces reporting another namespace are ignored.
	Namespace  string
	Allocator  netdev.Allocator
	Header     HeaderBuilder
	DumpFrames bool
}

type Bridge struct {
	registry   *Registry
	namespace  string
	alloc      netdev.Allocator
	header     HeaderBuilder
	drops      *DropCounters
	logger     *slog.Logger
	oomLimiter *logger.RateLimiter
	dumpFrames bool
}

func New(cfg Config) *Bridge {
	b := &Bridge{
		registry:   NewRegistry(),
		namespace:  cfg.Namespace,
		alloc:      cfg.Allocator,
		header:     cfg.Header,
		drops:      &DropCounters{},
		logger:     logger.Get(logger.Bridge),
		oomLimiter: logger.NewRateLimiter(logger.DefaultRateInterval, logger.DefaultRateBurst),
		dumpFrames: cfg.DumpFrames,
	}
	if b.alloc == nil {
		b.alloc = netdev.DefaultAllocator
	}
	if b.header == nil {
		b.header = ax25.HeaderOps{}
	}
	return b
}

func (b *Bridge) Registry() *Registry {
	return b.registry
}

func (b *Bridge) Drops() *DropCounters {
	return b.drops
}

func (b *Bridge) Namespace() string {
	return b.namespace
}

func (b *Bridge) Pairs() []PairInfo {
	entries := b.registry.Entries()
	out := make([]PairInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Info())
	}
	return out
}

func (b *Bridge) dump(direction string, dev netdev.Device, f *netdev.Frame) {
	if !b.dumpFrames || !b.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	pkt := gopacket.NewPacket(f.Bytes(), layers.LayerTypeEthernet, gopacket.NoCopy)
	b.logger.Debug("Frame dump", "direction", direction, "interface", dev.Name(), "len", f.Len(), "dump", pkt.Dump())
}

func radioAddressString(dev netdev.Device) string {
	addr, err := ax25.AddressFromBytes(dev.HardwareAddr())
	if err != nil {
		return dev.HardwareAddr().String()
	}
	return addr.String()
}
