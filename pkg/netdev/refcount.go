package netdev

import "sync/atomic"

// RefCount implements Device.Hold and Device.Put. The release hook runs
// once, when the count drops to zero.
type RefCount struct {
	n       atomic.Int32
	release func()
}

func NewRefCount(release func()) *RefCount {
	r := &RefCount{release: release}
	r.n.Store(1)
	return r
}

func (r *RefCount) Hold() {
	r.n.Add(1)
}

func (r *RefCount) Put() {
	if r.n.Add(-1) == 0 && r.release != nil {
		r.release()
	}
}

func (r *RefCount) Refs() int {
	return int(r.n.Load())
}
