package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"mec/internal/config"
	"mec/internal/history"
	"mec/internal/testing"
	"mec/internal/watch"
	"mec/pkg/logging"
)

// Output formats accepted by --output.
const (
	outputText  = "text"
	outputJSON  = "json"
	outputQuiet = "quiet"
)

type runOptions struct {
	stopOnError bool
	failFast    bool
	parallel    int
	verbose     bool
	suite       string
	timeout     time.Duration
	reportPath  string
	output      string
	env         []string
	envFiles    []string
	plugins     []string
	history     bool
	watch       bool
	debounce    time.Duration
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run [paths or saved suite names...]",
		Short: "Run test suites",
		Long: `Run loads suite files (JSON or YAML) and runs every suite they contain.

Arguments may be files, directories (walked recursively for .json, .yaml and
.yml files) or names of suites saved from the shell. With no arguments every
saved suite is run. A file holding a single test case is run as a suite of
one.

Examples:
  mec run suites/                      # Run every suite under suites/
  mec run smoke.yaml --verbose         # Show each case as it finishes
  mec run suites/ --parallel=4         # Run four suites at once
  mec run suites/ --fail-fast          # Skip remaining suites after a failure
  mec run suites/ --env HOST=localhost # Add to every suite environment
  mec run suites/ --watch              # Re-run suites when their files change`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuites(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.stopOnError, "stop-on-error", false, "Stop each suite at its first failing case")
	f.BoolVar(&opts.failFast, "fail-fast", false, "Do not start new suites after the first failing suite")
	f.IntVar(&opts.parallel, "parallel", 0, "Number of suites run at once (default from config)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "Print every case result")
	f.StringVar(&opts.suite, "suite", "", "Only run suites whose name contains this text")
	f.DurationVar(&opts.timeout, "timeout", 0, "Do not start suites after this long (0 means no limit)")
	f.StringVar(&opts.reportPath, "report", "", "Directory to write a JSON report to")
	f.StringVarP(&opts.output, "output", "o", outputText, "Output format: text, json or quiet")
	f.StringArrayVar(&opts.env, "env", nil, "Environment entry KEY=VALUE for every suite (repeatable)")
	f.StringArrayVar(&opts.envFiles, "env-file", nil, "Read environment entries from a .env file (repeatable)")
	f.StringArrayVar(&opts.plugins, "plugin", nil, "Load a factory plugin (repeatable)")
	f.BoolVar(&opts.history, "history", true, "Record the run in history")
	f.BoolVar(&opts.watch, "watch", false, "Keep running and re-run suites whose files change")
	f.DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "Quiet period before a changed file is re-run")

	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{outputText, outputJSON, outputQuiet}, cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if opts.parallel < 0 {
			return fmt.Errorf("parallel must not be negative, got %d", opts.parallel)
		}
		switch opts.output {
		case outputText, outputJSON, outputQuiet:
		default:
			return fmt.Errorf("unknown output format %q", opts.output)
		}
		return nil
	}
	return cmd
}

// testConfiguration merges the flags over the configuration file.
func (o *runOptions) testConfiguration(cmd *cobra.Command, cfg config.Config, paths []string) (testing.TestConfiguration, error) {
	tc := testing.TestConfiguration{
		Paths:       paths,
		Suite:       o.suite,
		Parallel:    cfg.Run.Parallel,
		FailFast:    cfg.Run.FailFast || o.failFast,
		StopOnError: cfg.Run.StopOnError || o.stopOnError,
		Timeout:     o.timeout,
		Verbose:     cfg.Run.Verbose || o.verbose,
		Debug:       debugMode,
		ReportPath:  o.reportPath,
	}
	if cmd.Flags().Changed("parallel") {
		tc.Parallel = o.parallel
	}

	env, err := config.LoadEnvFiles(append(append([]string(nil), cfg.EnvFiles...), o.envFiles...)...)
	if err != nil {
		return tc, err
	}
	pairs, err := config.ParseEnvPairs(o.env)
	if err != nil {
		return tc, err
	}
	for k, v := range pairs {
		env[k] = v
	}
	if len(env) > 0 {
		tc.Environment = env
	}
	return tc, nil
}

func (o *runOptions) reporter(out io.Writer, tc testing.TestConfiguration) testing.TestReporter {
	switch {
	case o.output == outputJSON:
		return testing.NewJSONReporter(out)
	case o.output == outputQuiet || quietMode:
		return testing.NewQuietReporter(out)
	default:
		return testing.NewTestReporter(out, tc.Verbose, tc.Debug, tc.ReportPath)
	}
}

func runSuites(cmd *cobra.Command, opts *runOptions, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := appConfig
	out := cmd.OutOrStdout()

	paths, err := resolveSuitePaths(config.NewStorageWithPath(configPath), args)
	if err != nil {
		return err
	}
	tc, err := opts.testConfiguration(cmd, cfg, paths)
	if err != nil {
		return err
	}

	registry, err := newFactoryRegistry(append(append([]string(nil), cfg.Plugins...), opts.plugins...))
	if err != nil {
		return err
	}
	defer registry.Close()

	transports := newTransports(cfg)
	defer transports.Close()

	logger := testing.NewSilentLogger(tc.Verbose, tc.Debug)
	if opts.output == outputText && !quietMode {
		logger = testing.NewWriterLogger(out, cmd.ErrOrStderr(), tc.Verbose, tc.Debug)
	}
	loader := testing.NewSuiteLoader(registry, logger)

	suites, err := loadWithSpinner(cmd.ErrOrStderr(), loader, tc, opts.output == outputText && !quietMode && !tc.Verbose, paths...)
	if err != nil {
		return err
	}
	if len(suites) == 0 {
		fmt.Fprintf(out, "⚠️  No suites matched in %v\n", paths)
		return nil
	}

	runnerOpts := []testing.RunnerOption{
		testing.WithTransports(transports),
		testing.WithLogger(logger),
	}
	if opts.history && cfg.History.Enabled {
		store, err := openHistory(cfg)
		if err != nil {
			// history is best effort; a locked or broken store must not block a run
			logging.Warn("CLI", "Run history disabled: %v", err)
		} else {
			defer store.Close()
			runnerOpts = append(runnerOpts, testing.WithHistory(history.NewTracker(store)))
		}
	}
	runner := testing.NewTestRunner(opts.reporter(out, tc), runnerOpts...)

	result, err := runner.Run(ctx, tc, suites)
	if opts.watch {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Warn("CLI", "Run ended early: %v", err)
		}
		return watchAndRerun(ctx, opts, loader, runner, tc)
	}
	if err != nil {
		return fmt.Errorf("test execution failed: %w", err)
	}
	if !result.Passed() {
		return &TestsFailedError{Failed: result.FailedSuites + result.ErrorSuites, Total: result.TotalSuites}
	}
	return nil
}

// loadWithSpinner loads and filters suites, showing a spinner while files
// are decoded.
func loadWithSpinner(errOut io.Writer, loader testing.SuiteLoader, tc testing.TestConfiguration, showSpinner bool, paths ...string) ([]testing.LoadedSuite, error) {
	var s *spinner.Spinner
	if showSpinner {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(errOut))
		s.Suffix = " Loading suites..."
		s.Start()
	}
	suites, err := loader.LoadSuites(paths...)
	if s != nil {
		s.Stop()
	}

	if err != nil {
		var errs config.ErrorCollection
		if errors.As(err, &errs) {
			fmt.Fprintln(errOut, errs.Report())
		}
		return nil, &InvalidSuiteError{Err: err}
	}
	return loader.FilterSuites(suites, tc), nil
}

// watchAndRerun re-runs the suites of every changed file until ctx ends.
// The runner keeps the transports of the first run, so memory outlets and
// queues keep their contents between runs.
func watchAndRerun(ctx context.Context, opts *runOptions, loader testing.SuiteLoader, runner testing.TestRunner, tc testing.TestConfiguration) error {
	detector := watch.NewDetector(opts.debounce, testing.IsSuiteFile)
	for _, p := range tc.Paths {
		if err := detector.Add(p); err != nil {
			return err
		}
	}

	changes := make(chan watch.Event, 16)
	if err := detector.Start(ctx, changes); err != nil {
		return fmt.Errorf("failed to start watching: %w", err)
	}
	defer detector.Stop()

	logging.Info("CLI", "Watching %d paths for changes, press Ctrl+C to stop", len(tc.Paths))
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-changes:
			if ev.Operation == watch.OperationDelete {
				logging.Info("CLI", "Suite file removed: %s", ev.Path)
				continue
			}
			suites, err := loader.LoadSuites(ev.Path)
			if err != nil {
				logging.Error("CLI", err, "Failed to reload %s", ev.Path)
				continue
			}
			suites = loader.FilterSuites(suites, tc)
			if len(suites) == 0 {
				continue
			}
			logging.Info("CLI", "Re-running %d suites from %s", len(suites), ev.Path)
			if _, err := runner.Run(ctx, tc, suites); err != nil && !errors.Is(err, context.Canceled) {
				logging.Warn("CLI", "Run ended early: %v", err)
			}
		}
	}
}
