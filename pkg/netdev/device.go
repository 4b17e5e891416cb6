package netdev

import (
	"context"
	"errors"
	"net"
)

var (
	ErrDeviceClosed = errors.New("device closed")
	ErrNoBuffer     = errors.New("no buffer space available")
	// ErrGroupAddress is returned by factories that cannot give a virtual
	// device a hardware address with the group bit set.
	ErrGroupAddress = errors.New("group hardware address not accepted")
)

type LinkType uint16

const (
	LinkTypeUnknown LinkType = iota
	LinkTypeEther
	LinkTypeAX25
)

func (t LinkType) String() string {
	switch t {
	case LinkTypeEther:
		return "ether"
	case LinkTypeAX25:
		return "ax25"
	default:
		return "unknown"
	}
}

type TxResult int

const (
	TxOK TxResult = iota
	TxBusy
)

// Device is the view of a network interface the bridge depends on. Hold and
// Put bracket any use of the device that outlives a single call.
type Device interface {
	Name() string
	Index() int
	Type() LinkType
	MTU() int
	HardwareAddr() net.HardwareAddr
	Namespace() string
	IsRunning() bool
	Stats() *Stats
	Hold()
	Put()
	Transmit(f *Frame) error
}

type XmitFunc func(dev VirtualDevice, f *Frame) TxResult

// VirtualDevice is an Ethernet interface created and owned by the bridge.
type VirtualDevice interface {
	Device
	Open() error
	Stop() error
	Destroy() error
	Deliver(f *Frame) error
	Priv() any
}

// StateSyncer is implemented by virtual devices whose administrative state
// can change outside the process.
type StateSyncer interface {
	SyncState(up bool)
}

type VirtualSpec struct {
	NameTemplate string
	HardwareAddr net.HardwareAddr
	MTU          int
	Namespace    string
	Priv         any
	Xmit         XmitFunc
}

type VirtualFactory interface {
	Create(ctx context.Context, spec VirtualSpec) (VirtualDevice, error)
}

func (t LinkType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
