package bridge

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/veesix-networks/eoax/pkg/netdev"
)

var ErrDuplicatePair = errors.New("radio interface already paired")

// Registry holds the active pairs. Readers load an immutable snapshot and
// never take a lock; Insert and Remove are serialized and publish a fresh
// copy, so a reader racing a removal finishes against the entry it loaded.
type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]*Entry]
}

func NewRegistry() *Registry {
	r := &Registry{}
	empty := make([]*Entry, 0)
	r.entries.Store(&empty)
	return r
}

func (r *Registry) snapshot() []*Entry {
	return *r.entries.Load()
}

func (r *Registry) Insert(e *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.snapshot()
	for _, existing := range cur {
		if existing.RadioIndex() == e.RadioIndex() {
			return ErrDuplicatePair
		}
	}

	next := make([]*Entry, len(cur), len(cur)+1)
	copy(next, cur)
	next = append(next, e)
	r.entries.Store(&next)
	return nil
}

func (r *Registry) Remove(e *Entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeLocked(e)
}

func (r *Registry) removeLocked(e *Entry) bool {
	cur := r.snapshot()
	for i, existing := range cur {
		if existing != e {
			continue
		}
		next := make([]*Entry, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		r.entries.Store(&next)
		return true
	}
	return false
}

func (r *Registry) Lookup(radioIndex int) (*Entry, bool) {
	for _, e := range r.snapshot() {
		if e.RadioIndex() == radioIndex {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) LookupByRadio(radioIndex int) (netdev.VirtualDevice, bool) {
	e, ok := r.Lookup(radioIndex)
	if !ok {
		return nil, false
	}
	return e.virtual, true
}

// LookupByVirtual follows the reverse link kept in the virtual device's
// private state. The radio stays usable until put is called, even if the
// pair is torn down in the meantime.
func (r *Registry) LookupByVirtual(v netdev.VirtualDevice) (radio netdev.Device, put func(), ok bool) {
	e, ok := v.Priv().(*Entry)
	if !ok || e == nil {
		return nil, nil, false
	}
	return e.radio.Acquire()
}

func (r *Registry) lookupVirtualIndex(index int) (*Entry, bool) {
	for _, e := range r.snapshot() {
		if e.virtual.Index() == index {
			return e, true
		}
	}
	return nil, false
}

func (r *Registry) Entries() []*Entry {
	return append([]*Entry(nil), r.snapshot()...)
}

func (r *Registry) Len() int {
	return len(r.snapshot())
}

// Drain removes every entry, oldest first, calling fn for each while the
// mutation lock is held.
func (r *Registry) Drain(fn func(*Entry)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		cur := r.snapshot()
		if len(cur) == 0 {
			return
		}
		e := cur[0]
		r.removeLocked(e)
		fn(e)
	}
}
