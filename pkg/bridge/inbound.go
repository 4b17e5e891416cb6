package bridge

import (
	"bytes"
	"encoding/binary"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"github.com/veesix-networks/eoax/pkg/ethernet"
	"github.com/veesix-networks/eoax/pkg/netdev"
)

type Verdict int

const (
	Delivered Verdict = iota
	Dropped
)

func (v Verdict) String() string {
	if v == Delivered {
		return "delivered"
	}
	return "dropped"
}

// Receive takes a frame that arrived on radio with the AX.25 header already
// removed and delivers it to the paired virtual interface. It never blocks
// and never retries; every failure is a silent drop.
func (b *Bridge) Receive(radio netdev.Device, f *netdev.Frame) Verdict {
	if radio.Namespace() != b.namespace {
		return b.dropRx(f, DropForeignNamespace)
	}

	f, err := f.Unshare(0, b.alloc)
	if err != nil {
		b.drops.add(Inbound, DropNoBuffer)
		return Dropped
	}

	virt, ok := b.registry.LookupByRadio(radio.Index())
	if !ok {
		return b.dropRx(f, DropNoPair)
	}
	if !virt.IsRunning() {
		return b.dropRx(f, DropVirtualDown)
	}

	if err := typeTrans(f, virt); err != nil {
		virt.Stats().RxDropped.Add(1)
		return b.dropRx(f, DropRunt)
	}

	virt.Stats().CountRx(f.Len())
	b.dump("rx", virt, f)

	if err := virt.Deliver(f); err != nil {
		virt.Stats().RxDropped.Add(1)
		b.drops.add(Inbound, DropDeliver)
		return Dropped
	}
	return Delivered
}

func (b *Bridge) dropRx(f *netdev.Frame, reason DropReason) Verdict {
	f.Free()
	b.drops.add(Inbound, reason)
	return Dropped
}

// typeTrans sets the protocol and packet type of an Ethernet frame received
// on dev.
func typeTrans(f *netdev.Frame, dev netdev.Device) error {
	var eth layers.Ethernet
	if err := eth.DecodeFromBytes(f.Bytes(), gopacket.NilDecodeFeedback); err != nil {
		return err
	}

	dst := eth.DstMAC
	switch {
	case dst[0]&1 != 0 && bytes.Equal(dst, layers.EthernetBroadcast):
		f.Type = netdev.PacketBroadcast
	case dst[0]&1 != 0:
		f.Type = netdev.PacketMulticast
	case !bytes.Equal(dst, dev.HardwareAddr()):
		f.Type = netdev.PacketOtherHost
	default:
		f.Type = netdev.PacketHost
	}

	data := f.Bytes()
	proto := binary.BigEndian.Uint16(data[12:14])
	if proto < ethernet.EtherTypeMin {
		// Raw 802.3 frames carry 0xFFFF where the LLC header would be.
		proto = ethernet.EtherType8022
		if len(data) >= ethernet.HeaderLen+2 && data[14] == 0xff && data[15] == 0xff {
			proto = ethernet.EtherType8023
		}
	}
	f.Protocol = proto
	f.Dev = dev
	return nil
}
