package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"mec/pkg/logging"

	"gopkg.in/yaml.v3"
)

const (
	userConfigDir  = ".config/mec"
	configFileName = "config.yaml"
)

// osUserHomeDir is swapped in tests.
var osUserHomeDir = os.UserHomeDir

// GetUserConfigDir returns ~/.config/mec.
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine user config directory: %w", err)
	}
	return filepath.Join(homeDir, userConfigDir), nil
}

// LoadConfig loads config.yaml from configPath on top of the defaults. A
// missing file yields the defaults.
func LoadConfig(configPath string) (Config, error) {
	configFilePath := filepath.Join(configPath, configFileName)
	config := GetDefaultConfig()

	data, err := os.ReadFile(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No config.yaml found at %s, using defaults", configFilePath)
			return config, nil
		}
		return Config{}, fmt.Errorf("error reading config from %s: %w", configFilePath, err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("error loading config from %s: %w", configFilePath, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", configFilePath, err)
	}

	// Relative paths are taken from the configuration directory.
	config.History.Path = resolve(configPath, config.History.Path)
	config.Transport.QueueDir = resolve(configPath, config.Transport.QueueDir)
	for i, p := range config.Plugins {
		config.Plugins[i] = resolve(configPath, p)
	}
	for i, p := range config.EnvFiles {
		config.EnvFiles[i] = resolve(configPath, p)
	}

	logging.Debug("Config", "Loaded configuration from %s", configFilePath)
	return config, nil
}

// Validate checks values that would otherwise fail later at run time.
func (c Config) Validate() error {
	switch c.Logging.Format {
	case "", string(logging.FormatText), string(logging.FormatJSON):
	default:
		return fmt.Errorf("unknown log format %q", c.Logging.Format)
	}
	if c.Run.Parallel < 0 {
		return fmt.Errorf("run.parallel must not be negative, got %d", c.Run.Parallel)
	}
	return nil
}

// InitLogging applies the logging section.
func (c Config) InitLogging(level logging.LogLevel, out io.Writer) {
	format := logging.FormatText
	if c.Logging.Format == string(logging.FormatJSON) {
		format = logging.FormatJSON
	}
	logging.Init(format, level, out)
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
