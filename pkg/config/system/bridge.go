package system

const DefaultNameTemplate = "eoax%d"

type BridgeConfig struct {
	// NameTemplate names new virtual interfaces; %d is replaced by the
	// lowest free unit number.
	NameTemplate string `json:"name-template,omitempty" yaml:"name-template,omitempty"`
	AutoUp       bool   `json:"auto-up,omitempty" yaml:"auto-up,omitempty"`
	// Namespace is a named network namespace. Empty means the namespace the
	// daemon was started in.
	Namespace  string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	DumpFrames bool   `json:"dump-frames,omitempty" yaml:"dump-frames,omitempty"`
}

type EventsConfig struct {
	QueueSize   int      `json:"queue-size,omitempty" yaml:"queue-size,omitempty"`
	DebugTopics []string `json:"debug-topics,omitempty" yaml:"debug-topics,omitempty"`
}
