// Package eoax maps AX.25 station addresses onto Ethernet hardware addresses
// and back.
//
// The six callsign bytes are copied verbatim. The four SSID bits of the
// seventh byte (bits 4..1) are scattered into bit 0 of hardware bytes 0..3,
// most significant first. The reverse direction can only rebuild those four
// bits; the C, E and reserved bits of the SSID octet come back as zero.
package eoax

import (
	"net"

	"github.com/veesix-networks/eoax/pkg/ax25"
)

const HardwareAddrLen = 6

type HardwareAddr [HardwareAddrLen]byte

var EthernetBroadcast = HardwareAddr{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

func ToHardware(a ax25.Address) HardwareAddr {
	var hw HardwareAddr
	copy(hw[:], a[:HardwareAddrLen])
	ssid := a[6]
	hw[0] |= (ssid >> 4) & 1
	hw[1] |= (ssid >> 3) & 1
	hw[2] |= (ssid >> 2) & 1
	hw[3] |= (ssid >> 1) & 1
	return hw
}

func ToRadio(hw HardwareAddr) ax25.Address {
	var a ax25.Address
	copy(a[:HardwareAddrLen], hw[:])
	var ssid byte
	ssid |= (hw[0] & 1) << 4
	ssid |= (hw[1] & 1) << 3
	ssid |= (hw[2] & 1) << 2
	ssid |= (hw[3] & 1) << 1
	a[6] = ssid
	return a
}

func RadioToHardware(a ax25.Address) net.HardwareAddr {
	hw := ToHardware(a)
	return net.HardwareAddr(hw[:])
}

// HardwareToRadio translates a 6-byte hardware address. Shorter input is
// zero padded.
func HardwareToRadio(addr net.HardwareAddr) ax25.Address {
	var hw HardwareAddr
	copy(hw[:], addr)
	return ToRadio(hw)
}

func IsBroadcast(addr []byte) bool {
	if len(addr) != HardwareAddrLen {
		return false
	}
	return HardwareAddr(addr) == EthernetBroadcast
}
