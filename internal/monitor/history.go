package monitor

import (
	"sync"

	"github.com/veesix-networks/eoax/pkg/events"
)

// History keeps the most recent events in a fixed ring.
type History struct {
	mu   sync.Mutex
	buf  []events.Event
	next int
	full bool
}

func NewHistory(size int) *History {
	if size <= 0 {
		size = 1
	}
	return &History{buf: make([]events.Event, size)}
}

func (h *History) Add(ev events.Event) {
	h.mu.Lock()
	h.buf[h.next] = ev
	h.next++
	if h.next == len(h.buf) {
		h.next = 0
		h.full = true
	}
	h.mu.Unlock()
}

// List returns the retained events, oldest first. A non-empty topic keeps
// only events of that type; limit > 0 keeps only the newest limit events.
func (h *History) List(topic string, limit int) []events.Event {
	h.mu.Lock()
	var ordered []events.Event
	if h.full {
		ordered = append(ordered, h.buf[h.next:]...)
	}
	ordered = append(ordered, h.buf[:h.next]...)
	h.mu.Unlock()

	out := ordered[:0]
	for _, ev := range ordered {
		if topic == "" || ev.Type == topic {
			out = append(out, ev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
