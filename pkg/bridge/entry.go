package bridge

import (
	"sync"
	"sync/atomic"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

// RadioRef is a counted, non-owning reference to a radio device. The
// reference taken at creation is given back exactly once by Release. Users
// that Acquire the device keep it alive until they call the returned put
// function, so the device reference is dropped only after the last of them.
type RadioRef struct {
	dev  netdev.Device
	refs atomic.Int64
	once sync.Once
}

func HoldRadio(dev netdev.Device) *RadioRef {
	dev.Hold()
	r := &RadioRef{dev: dev}
	r.refs.Store(1)
	return r
}

// Acquire returns the device and a function that must be called once the
// caller is done with it. It fails once Release has run and no other user
// holds the device.
func (r *RadioRef) Acquire() (netdev.Device, func(), bool) {
	if r == nil {
		return nil, nil, false
	}
	for {
		n := r.refs.Load()
		if n <= 0 {
			return nil, nil, false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return r.dev, r.put, true
		}
	}
}

func (r *RadioRef) put() {
	if r.refs.Add(-1) == 0 {
		r.dev.Put()
	}
}

func (r *RadioRef) Index() int {
	return r.dev.Index()
}

func (r *RadioRef) Name() string {
	return r.dev.Name()
}

func (r *RadioRef) Release() {
	r.once.Do(r.put)
}

// Entry is the registry record for one radio/virtual pair. The virtual
// device is owned by the entry; the radio device is only referenced.
type Entry struct {
	radio   *RadioRef
	virtual netdev.VirtualDevice
}

func (e *Entry) RadioIndex() int {
	return e.radio.Index()
}

func (e *Entry) Radio() (netdev.Device, func(), bool) {
	return e.radio.Acquire()
}

func (e *Entry) Virtual() netdev.VirtualDevice {
	return e.virtual
}

type PairInfo struct {
	Radio        string               `json:"radio"`
	RadioIndex   int                  `json:"radio-index"`
	RadioAddress string               `json:"radio-address"`
	RadioMTU     int                  `json:"radio-mtu"`
	RadioUp      bool                 `json:"radio-up"`
	RadioStats   netdev.StatsSnapshot `json:"radio-stats"`
	Virtual      string               `json:"virtual"`
	VirtualIndex int                  `json:"virtual-index"`
	VirtualMAC   string               `json:"virtual-mac"`
	VirtualMTU   int                  `json:"virtual-mtu"`
	VirtualUp    bool                 `json:"virtual-up"`
	VirtualStats netdev.StatsSnapshot `json:"virtual-stats"`
}

func (e *Entry) Info() PairInfo {
	info := PairInfo{
		Radio:        e.radio.Name(),
		RadioIndex:   e.radio.Index(),
		Virtual:      e.virtual.Name(),
		VirtualIndex: e.virtual.Index(),
		VirtualMAC:   e.virtual.HardwareAddr().String(),
		VirtualMTU:   e.virtual.MTU(),
		VirtualUp:    e.virtual.IsRunning(),
		VirtualStats: e.virtual.Stats().Snapshot(),
	}
	if radio, put, ok := e.radio.Acquire(); ok {
		defer put()
		info.RadioAddress = radioAddressString(radio)
		info.RadioMTU = radio.MTU()
		info.RadioUp = radio.IsRunning()
		info.RadioStats = radio.Stats().Snapshot()
	}
	return info
}
