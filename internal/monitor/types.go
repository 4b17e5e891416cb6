package monitor

import (
	"github.com/veesix-networks/eoax/pkg/ax25"
	"github.com/veesix-networks/eoax/pkg/bridge"
	"github.com/veesix-networks/eoax/pkg/events"
)

type ShowResponse struct {
	Path string `json:"path"`
	Data any    `json:"data"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type PairsResponse struct {
	Namespace string            `json:"namespace"`
	Pairs     []bridge.PairInfo `json:"pairs"`
}

type DropsResponse struct {
	Drops []bridge.DropSample `json:"drops"`
	Mux   ax25.MuxStats       `json:"mux"`
}

type EventsResponse struct {
	Bus    events.Stats   `json:"bus"`
	Events []events.Event `json:"events"`
}

type InterfaceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	AdminUp   bool   `json:"admin-up"`
	MTU       int    `json:"mtu"`
	MAC       string `json:"mac,omitempty"`
	Namespace string `json:"namespace,omitempty"`
	Paired    string `json:"paired,omitempty"`
}

type Status struct {
	State         string   `json:"state"`
	ListenAddress string   `json:"listen-address"`
	Collectors    []string `json:"collectors"`
	Running       bool     `json:"running"`
}
