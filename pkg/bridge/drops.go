package bridge

import "sync/atomic"

type Direction int

const (
	Inbound Direction = iota
	Outbound
	numDirections
)

func (d Direction) String() string {
	if d == Inbound {
		return "inbound"
	}
	return "outbound"
}

type DropReason int

const (
	DropForeignNamespace DropReason = iota
	DropNoBuffer
	DropNoPair
	DropVirtualDown
	DropRunt
	DropDeliver
	DropHeader
	numDropReasons
)

func (r DropReason) String() string {
	switch r {
	case DropForeignNamespace:
		return "foreign-namespace"
	case DropNoBuffer:
		return "no-buffer"
	case DropNoPair:
		return "no-pair"
	case DropVirtualDown:
		return "virtual-down"
	case DropRunt:
		return "runt"
	case DropDeliver:
		return "deliver-failed"
	case DropHeader:
		return "header-failed"
	default:
		return "unknown"
	}
}

// DropCounters counts dropped frames per direction and reason, in addition
// to the per-interface counters.
type DropCounters struct {
	counts [numDirections][numDropReasons]atomic.Uint64
}

func (c *DropCounters) add(d Direction, r DropReason) {
	c.counts[d][r].Add(1)
}

func (c *DropCounters) Get(d Direction, r DropReason) uint64 {
	return c.counts[d][r].Load()
}

type DropSample struct {
	Direction string `json:"direction"`
	Reason    string `json:"reason"`
	Count     uint64 `json:"count"`
}

func (c *DropCounters) Snapshot() []DropSample {
	out := make([]DropSample, 0, int(numDirections)*int(numDropReasons))
	for d := Direction(0); d < numDirections; d++ {
		for r := DropReason(0); r < numDropReasons; r++ {
			out = append(out, DropSample{
				Direction: d.String(),
				Reason:    r.String(),
				Count:     c.counts[d][r].Load(),
			})
		}
	}
	return out
}
