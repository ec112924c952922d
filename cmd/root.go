package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"mec/internal/config"
	"mec/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeTestsFailed indicates that suites ran but at least one did not pass.
	ExitCodeTestsFailed = 2
	// ExitCodeInvalidSuite indicates that suite files could not be loaded.
	ExitCodeInvalidSuite = 3
)

var (
	configPath string
	debugMode  bool
	quietMode  bool

	// appConfig is loaded before any subcommand runs.
	appConfig = config.GetDefaultConfig()
)

// rootCmd represents the base command for the mec application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "mec",
	Short: "Run hierarchical test suites",
	Long: `mec runs test suites made of test cases, each a list of commands that
read and write data through named outlets (files, memory buffers, durable
queues or the console). Suites are JSON or YAML documents.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// This function is called by main.main().
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "mec version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	if err == nil {
		return ExitCodeSuccess
	}

	var failed *TestsFailedError
	if errors.As(err, &failed) {
		return ExitCodeTestsFailed
	}

	var invalid *InvalidSuiteError
	if errors.As(err, &invalid) {
		return ExitCodeInvalidSuite
	}

	return ExitCodeError
}

// loadConfig reads config.yaml and sets up logging for every subcommand.
func loadConfig(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		dir, err := config.GetUserConfigDir()
		if err != nil {
			return err
		}
		configPath = dir
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	appConfig = cfg

	level := logging.ParseLevel(cfg.Logging.Level)
	switch {
	case debugMode:
		level = logging.LevelDebug
	case quietMode:
		level = logging.LevelError
	}
	cfg.InitLogging(level, cmd.ErrOrStderr())
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", "", "Configuration directory (default $HOME/.config/mec)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&quietMode, "quiet", false, "Only log errors and print a one-line summary")
	rootCmd.MarkFlagsMutuallyExclusive("debug", "quiet")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newShellCmd())
}
