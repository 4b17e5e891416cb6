package events

import "github.com/veesix-networks/eoax/pkg/netdev"

type PairState string

const (
	PairCreated   PairState = "created"
	PairStopped   PairState = "stopped"
	PairDestroyed PairState = "destroyed"
	PairFailed    PairState = "failed"
)

type LinkStateEvent struct {
	Link netdev.LinkEvent `json:"link"`
}

type PairLifecycleEvent struct {
	State        PairState `json:"state"`
	Radio        string    `json:"radio"`
	RadioIndex   int       `json:"radio-index"`
	Virtual      string    `json:"virtual,omitempty"`
	VirtualIndex int       `json:"virtual-index,omitempty"`
	Error        string    `json:"error,omitempty"`
}
