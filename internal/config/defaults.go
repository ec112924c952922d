package config

const (
	// DefaultParallel is the number of suites run at once.
	DefaultParallel = 1

	// DefaultPrompt is the console producer prompt.
	DefaultPrompt = "> "

	// SuitesKind is the Storage kind holding saved suites.
	SuitesKind = "suites"
)

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Run: RunConfig{
			Parallel: DefaultParallel,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Transport: TransportConfig{
			Prompt: DefaultPrompt,
		},
	}
}
