package config

import "github.com/veesix-networks/eoax/pkg/config/system"

type Config struct {
	Logging system.LoggingConfig    `json:"logging,omitempty" yaml:"logging,omitempty"`
	Bridge  system.BridgeConfig     `json:"bridge,omitempty" yaml:"bridge,omitempty"`
	Monitor system.MonitoringConfig `json:"monitor,omitempty" yaml:"monitor,omitempty"`
	Events  system.EventsConfig     `json:"events,omitempty" yaml:"events,omitempty"`
}
