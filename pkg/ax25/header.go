package ax25

import (
	"errors"
	"fmt"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

const (
	KISSData byte = 0x00

	ControlUI byte = 0x03
	PFBit     byte = 0x10

	PIDEoAX byte = 0xD0
	PIDIP   byte = 0xCC
	PIDARP  byte = 0xCD
	PIDNoL3 byte = 0xF0

	MaxDigis = 8

	// HeaderLen is the KISS byte plus a UI frame header without digipeaters.
	HeaderLen = 1 + 2*AddrLen + 2

	DefaultPacLen = 256
)

var (
	ErrShortFrame   = errors.New("ax25 frame too short")
	ErrNotData      = errors.New("not a KISS data frame")
	ErrNotUI        = errors.New("not a UI frame")
	ErrTooManyDigis = errors.New("too many digipeaters")
)

type Header struct {
	Dst     Address
	Src     Address
	Digis   []Address
	Control byte
	PID     byte
}

// BuildHeader prepends a KISS data byte and a UI header from dev to dst.
func BuildHeader(f *netdev.Frame, dev netdev.Device, pid byte, dst Address) error {
	if f.Headroom() < HeaderLen {
		return fmt.Errorf("need %d bytes of headroom, have %d", HeaderLen, f.Headroom())
	}

	src := Null
	if hw := dev.HardwareAddr(); len(hw) == AddrLen {
		copy(src[:], hw)
	}

	buf := f.Push(HeaderLen)
	buf[0] = KISSData

	copy(buf[1:], dst[:])
	buf[7] &^= CBit
	buf[7] &^= EBit
	buf[7] |= SSIDSpare

	copy(buf[8:], src[:])
	buf[14] &^= CBit
	buf[14] |= EBit
	buf[14] |= SSIDSpare

	buf[15] = ControlUI
	buf[16] = pid
	return nil
}

// HeaderOps adapts BuildHeader to the bridge's header collaborator.
type HeaderOps struct{}

func (HeaderOps) BuildHeader(f *netdev.Frame, dev netdev.Device, pid byte, dst Address) error {
	return BuildHeader(f, dev, pid, dst)
}

// ParseHeader decodes a KISS data frame carrying a UI frame and returns the
// header together with the number of bytes it occupies.
func ParseHeader(b []byte) (Header, int, error) {
	var h Header

	if len(b) < HeaderLen {
		return h, 0, ErrShortFrame
	}
	if b[0]&0x0F != KISSData {
		return h, 0, ErrNotData
	}

	off := 1
	copy(h.Dst[:], b[off:off+AddrLen])
	off += AddrLen
	copy(h.Src[:], b[off:off+AddrLen])
	off += AddrLen

	last := h.Src[6]&EBit != 0
	for !last {
		if len(h.Digis) == MaxDigis {
			return h, 0, ErrTooManyDigis
		}
		if len(b) < off+AddrLen+2 {
			return h, 0, ErrShortFrame
		}
		var d Address
		copy(d[:], b[off:off+AddrLen])
		off += AddrLen
		h.Digis = append(h.Digis, d)
		last = d[6]&EBit != 0
	}

	h.Control = b[off]
	if h.Control&^PFBit != ControlUI {
		return h, 0, ErrNotUI
	}
	h.PID = b[off+1]
	off += 2

	return h, off, nil
}
