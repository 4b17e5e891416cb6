package system

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

type LoggingConfig struct {
	Format     string            `json:"format,omitempty" yaml:"format,omitempty"`
	Level      string            `json:"level,omitempty" yaml:"level,omitempty"`
	Components map[string]string `json:"components,omitempty" yaml:"components,omitempty"`
}

func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Format: "text",
		Level:  "info",
	}
}

func ValidLogLevel(level string) bool {
	return logLevels[level]
}
