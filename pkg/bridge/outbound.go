package bridge

import (
	"encoding/binary"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/eoax"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

// Transmit sends a frame the host queued on virt out of the paired radio
// interface. The frame is always reported as accepted; failures show up in
// the interface counters only.
func (b *Bridge) Transmit(virt netdev.VirtualDevice, f *netdev.Frame) netdev.TxResult {
	// The radio interface may already be gone when the virtual one is down.
	if !virt.IsRunning() {
		b.dropTx(f, DropVirtualDown)
		return netdev.TxOK
	}

	f, err := f.Unshare(ax25.HeaderLen, b.alloc)
	if err != nil {
		b.oomLimiter.Error(b.logger, "Out of memory", "interface", virt.Name(), "error", err)
		b.drops.add(Outbound, DropNoBuffer)
		return netdev.TxOK
	}

	radio, put, ok := b.registry.LookupByVirtual(virt)
	if !ok {
		virt.Stats().TxDropped.Add(1)
		b.dropTx(f, DropNoPair)
		return netdev.TxOK
	}
	defer put()

	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(f.Bytes(), gopacket.NilDecodeFeedback); err != nil {
		virt.Stats().TxDropped.Add(1)
		b.dropTx(f, DropRunt)
		return netdev.TxOK
	}

	b.dump("tx", virt, f)

	f.Dev = radio
	dst := destination(eth.DstMAC)
	// Broadcast frames are marked as host frames too.
	f.Type = netdev.PacketHost
	f.Protocol = binary.BigEndian.Uint16(f.Bytes()[12:14])

	if err := b.header.BuildHeader(f, radio, ax25.PIDEoAX, dst); err != nil {
		radio.Stats().TxErrors.Add(1)
		b.dropTx(f, DropHeader)
		return netdev.TxOK
	}

	radio.Stats().CountTx(f.Len())

	_ = radio.Transmit(f)
	return netdev.TxOK
}

func destination(dst net.HardwareAddr) ax25.Address {
	if eoax.IsBroadcast(dst) {
		return ax25.Broadcast
	}
	return eoax.HardwareToRadio(dst)
}

func (b *Bridge) dropTx(f *netdev.Frame, reason DropReason) {
	f.Free()
	b.drops.add(Outbound, reason)
}
