package ax25

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

// Handler consumes a frame whose AX.25 header has already been pulled.
type Handler func(dev netdev.Device, f *netdev.Frame)

// Mux dispatches received UI frames to the handler registered for their PID.
type Mux struct {
	mu       sync.RWMutex
	handlers map[byte]Handler

	unknown   atomic.Uint64
	malformed atomic.Uint64
}

type MuxStats struct {
	UnknownPID uint64 `json:"unknown-pid"`
	Malformed  uint64 `json:"malformed"`
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[byte]Handler)}
}

func (m *Mux) Register(pid byte, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.handlers[pid]; exists {
		return fmt.Errorf("pid 0x%02x already registered", pid)
	}
	m.handlers[pid] = h
	return nil
}

func (m *Mux) Release(pid byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.handlers, pid)
}

func (m *Mux) Registered(pid byte) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handlers[pid]
	return ok
}

// Input parses f and hands it to the matching handler. It reports whether
// the frame was consumed.
func (m *Mux) Input(dev netdev.Device, f *netdev.Frame) bool {
	h, n, err := ParseHeader(f.Bytes())
	if err != nil {
		m.malformed.Add(1)
		f.Free()
		return false
	}

	m.mu.RLock()
	handler := m.handlers[h.PID]
	m.mu.RUnlock()

	if handler == nil {
		m.unknown.Add(1)
		f.Free()
		return false
	}

	if _, err := f.Pull(n); err != nil {
		m.malformed.Add(1)
		f.Free()
		return false
	}
	f.Dev = dev
	handler(dev, f)
	return true
}

func (m *Mux) Stats() MuxStats {
	return MuxStats{
		UnknownPID: m.unknown.Load(),
		Malformed:  m.malformed.Load(),
	}
}
