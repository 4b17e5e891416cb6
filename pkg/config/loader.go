package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/veesix-networks/eoax/pkg/config/system"
)

const DefaultPath = "/etc/eoax/eoax.yaml"

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

func (c *Config) applyDefaults() {
	logging := system.DefaultLoggingConfig()
	if c.Logging.Format == "" {
		c.Logging.Format = logging.Format
	}
	if c.Logging.Level == "" {
		c.Logging.Level = logging.Level
	}

	if c.Bridge.NameTemplate == "" {
		c.Bridge.NameTemplate = system.DefaultNameTemplate
	}

	monitor := system.DefaultMonitoringConfig()
	if c.Monitor.ListenAddress == "" {
		c.Monitor.ListenAddress = monitor.ListenAddress
	}
	if c.Monitor.CollectInterval == 0 {
		c.Monitor.CollectInterval = monitor.CollectInterval
	}
	if c.Monitor.EventHistory == 0 {
		c.Monitor.EventHistory = monitor.EventHistory
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format: unknown format '%s'", c.Logging.Format))
	}
	if !system.ValidLogLevel(c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level '%s'", c.Logging.Level))
	}
	for name, level := range c.Logging.Components {
		if !system.ValidLogLevel(level) {
			errs = append(errs, fmt.Errorf("logging.components.%s: unknown level '%s'", name, level))
		}
	}

	tmpl := c.Bridge.NameTemplate
	if strings.Count(tmpl, "%d") != 1 || strings.Count(tmpl, "%") != 1 {
		errs = append(errs, fmt.Errorf("bridge.name-template: '%s' must contain exactly one %%d", tmpl))
	} else if len(tmpl)-2+4 > 15 {
		// Linux interface names are limited to 15 bytes.
		errs = append(errs, fmt.Errorf("bridge.name-template: '%s' is too long", tmpl))
	}
	if strings.ContainsAny(c.Bridge.Namespace, "/ ") {
		errs = append(errs, fmt.Errorf("bridge.namespace: invalid name '%s'", c.Bridge.Namespace))
	}

	if c.Monitor.Enabled {
		if _, _, err := net.SplitHostPort(c.Monitor.ListenAddress); err != nil {
			errs = append(errs, fmt.Errorf("monitor.listen-address: %w", err))
		}
	}
	if c.Monitor.EventHistory < 0 {
		errs = append(errs, fmt.Errorf("monitor.event-history: must not be negative"))
	}
	if c.Events.QueueSize < 0 {
		errs = append(errs, fmt.Errorf("events.queue-size: must not be negative"))
	}

	return errors.Join(errs...)
}
