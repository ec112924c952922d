package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"mec/internal/command"
	"mec/internal/config"
	"mec/internal/factory"
	"mec/internal/history"
	"mec/internal/suite"
	"mec/internal/transport"
	"mec/pkg/logging"
)

// newFactoryRegistry returns a registry with the builtin commands, the case
// and suite factories and every listed plugin.
func newFactoryRegistry(plugins []string) (*factory.Registry, error) {
	r := factory.NewRegistry()
	r.Register(command.NewBuiltin())
	suite.Register(r)

	for _, p := range plugins {
		if _, err := r.LoadPlugin(p); err != nil {
			r.Close()
			return nil, fmt.Errorf("failed to load plugin %s: %w", p, err)
		}
		logging.Info("CLI", "Loaded plugin %s", p)
	}
	return r, nil
}

func newTransports(cfg config.Config) *transport.Registry {
	return transport.NewRegistry(
		transport.WithQueueDir(cfg.Transport.QueueDir),
		transport.WithPrompt(cfg.Transport.Prompt),
	)
}

// historyPath returns where run history lives, defaulting to a directory
// beside config.yaml.
func historyPath(cfg config.Config) string {
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return filepath.Join(configPath, "history")
}

func openHistory(cfg config.Config) (*history.Store, error) {
	path := historyPath(cfg)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}
	return history.Open(path)
}

// resolveSuitePaths maps arguments to files. An argument that is not an
// existing path is looked up among the saved suites. No arguments selects
// every saved suite.
func resolveSuitePaths(storage *config.Storage, args []string) ([]string, error) {
	if len(args) == 0 {
		names, err := storage.List(config.SuitesKind)
		if err != nil {
			return nil, err
		}
		if len(names) == 0 {
			return nil, fmt.Errorf("no suite paths given and no saved suites found")
		}
		args = names
	}

	paths := make([]string, 0, len(args))
	for _, arg := range args {
		if _, err := os.Stat(arg); err == nil {
			paths = append(paths, arg)
			continue
		}
		p, err := storage.Path(config.SuitesKind, arg)
		if err != nil {
			return nil, fmt.Errorf("%s is neither a file nor a saved suite: %w", arg, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
