package system

import "time"

const DefaultListenAddress = "127.0.0.1:9325"

type MonitoringConfig struct {
	Enabled            bool          `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	ListenAddress      string        `json:"listen-address,omitempty" yaml:"listen-address,omitempty"`
	DisabledCollectors []string      `json:"disabled-collectors,omitempty" yaml:"disabled-collectors,omitempty"`
	CollectInterval    time.Duration `json:"collect-interval,omitempty" yaml:"collect-interval,omitempty"`
	EventHistory       int           `json:"event-history,omitempty" yaml:"event-history,omitempty"`
}

func DefaultMonitoringConfig() MonitoringConfig {
	return MonitoringConfig{
		ListenAddress:   DefaultListenAddress,
		CollectInterval: 10 * time.Second,
		EventHistory:    256,
	}
}
