package netdev

import (
	"fmt"
	"sync/atomic"
)

type PacketType uint8

const (
	PacketHost PacketType = iota
	PacketBroadcast
	PacketMulticast
	PacketOtherHost
	PacketOutgoing
)

func (t PacketType) String() string {
	switch t {
	case PacketHost:
		return "host"
	case PacketBroadcast:
		return "broadcast"
	case PacketMulticast:
		return "multicast"
	case PacketOtherHost:
		return "otherhost"
	case PacketOutgoing:
		return "outgoing"
	default:
		return "unknown"
	}
}

type Allocator interface {
	Alloc(size int) ([]byte, error)
}

type HeapAllocator struct{}

func (HeapAllocator) Alloc(size int) ([]byte, error) {
	return make([]byte, size), nil
}

var DefaultAllocator Allocator = HeapAllocator{}

// Frame is a link-layer frame with reserved headroom in front of the data.
// A frame whose users count is above one is shared and must be unshared
// before it is modified.
type Frame struct {
	buf   []byte
	off   int
	users atomic.Int32

	Protocol uint16
	Type     PacketType
	Dev      Device
}

func NewFrame(headroom, size int) *Frame {
	return WrapFrame(make([]byte, headroom+size), headroom)
}

// WrapFrame takes ownership of buf; the data starts at off.
func WrapFrame(buf []byte, off int) *Frame {
	f := &Frame{buf: buf, off: off}
	f.users.Store(1)
	return f
}

func (f *Frame) Bytes() []byte {
	return f.buf[f.off:]
}

func (f *Frame) Len() int {
	return len(f.buf) - f.off
}

func (f *Frame) Headroom() int {
	return f.off
}

// Get takes an additional reference, marking the frame as shared.
func (f *Frame) Get() *Frame {
	f.users.Add(1)
	return f
}

func (f *Frame) Free() {
	f.users.Add(-1)
}

func (f *Frame) Shared() bool {
	return f.users.Load() > 1
}

func (f *Frame) Push(n int) []byte {
	if n > f.off {
		panic(fmt.Sprintf("netdev: push %d exceeds headroom %d", n, f.off))
	}
	f.off -= n
	return f.buf[f.off : f.off+n]
}

func (f *Frame) Pull(n int) ([]byte, error) {
	if n > f.Len() {
		return nil, fmt.Errorf("pull %d bytes from %d byte frame", n, f.Len())
	}
	hdr := f.buf[f.off : f.off+n]
	f.off += n
	return hdr, nil
}

func (f *Frame) Clone(headroom int, a Allocator) (*Frame, error) {
	if a == nil {
		a = DefaultAllocator
	}
	buf, err := a.Alloc(headroom + f.Len())
	if err != nil {
		return nil, err
	}
	copy(buf[headroom:], f.Bytes())
	c := WrapFrame(buf, headroom)
	c.Protocol = f.Protocol
	c.Type = f.Type
	c.Dev = f.Dev
	return c, nil
}

// Unshare returns a frame the caller owns exclusively with at least
// headroom bytes in front of the data. f itself is returned when it already
// qualifies; otherwise the caller's reference on f is dropped. On error f is
// released as well.
func (f *Frame) Unshare(headroom int, a Allocator) (*Frame, error) {
	if !f.Shared() && f.off >= headroom {
		return f, nil
	}
	c, err := f.Clone(headroom, a)
	f.Free()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoBuffer, err)
	}
	return c, nil
}
