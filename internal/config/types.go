package config

// Config is the top-level configuration structure for mec.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Run       RunConfig       `yaml:"run"`
	History   HistoryConfig   `yaml:"history"`
	Transport TransportConfig `yaml:"transport"`
	Plugins   []string        `yaml:"plugins,omitempty"`
	EnvFiles  []string        `yaml:"envFiles,omitempty"`
}

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn, error (default: info)
	Format string `yaml:"format,omitempty"` // text or json (default: text)
}

// RunConfig holds the defaults for mec run. Command-line flags override them.
type RunConfig struct {
	StopOnError bool `yaml:"stopOnError,omitempty"`
	FailFast    bool `yaml:"failFast,omitempty"`
	Parallel    int  `yaml:"parallel,omitempty"` // suites run at once (default: 1)
	Verbose     bool `yaml:"verbose,omitempty"`
}

// HistoryConfig controls the run history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"` // in-memory store when empty
}

// TransportConfig configures the transport registry.
type TransportConfig struct {
	QueueDir string `yaml:"queueDir,omitempty"`
	Prompt   string `yaml:"prompt,omitempty"`
}
