// Package config loads mec configuration.
//
// Configuration is read from a single directory, ~/.config/mec by default,
// or the directory given with --config-path. The directory contains:
//   - config.yaml (main configuration file)
//   - suites/ (stored suite documents, managed through Storage)
//
// Values missing from config.yaml keep their defaults:
//
//	logging:
//	  level: info          # debug, info, warn, error
//	  format: text         # text or json
//	run:
//	  stopOnError: false   # stop a suite at its first failing case
//	  failFast: false      # stop running suites after the first failing suite
//	  parallel: 1          # number of suites run at once
//	  verbose: false       # print per-case lines
//	history:
//	  enabled: true
//	  path: ""             # badger directory, in-memory when empty
//	transport:
//	  queueDir: ""         # base directory for queue: targets
//	  prompt: "> "         # console producer prompt
//	plugins: []            # factory plugins loaded at start-up
//	envFiles: []           # .env files merged into every suite environment
//
// # Environment Files
//
// LoadEnvFiles reads .env files with godotenv. Later files override earlier
// ones. ParseEnvPairs turns KEY=VALUE flag values into the same map form.
//
// # Storage
//
// Storage keeps YAML documents in kind subdirectories of the configuration
// directory. The CLI uses it for suites saved from the shell and for running
// a stored suite by name.
package config
