package testing

import (
	"bytes"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mec/internal/dataflow"
	"mec/internal/result"
	"mec/internal/suite"
	"mec/internal/tobject"
	"mec/pkg/logging"
)

// testRunner implements the TestRunner interface
type testRunner struct {
	reporter   TestReporter
	transports dataflow.Opener
	history    HistoryRecorder
	logger     TestLogger
}

// RunnerOption configures a runner.
type RunnerOption func(*testRunner)

// WithTransports sets the opener suites plug their outlets on.
func WithTransports(o dataflow.Opener) RunnerOption {
	return func(r *testRunner) { r.transports = o }
}

// WithHistory records every finished run.
func WithHistory(h HistoryRecorder) RunnerOption {
	return func(r *testRunner) { r.history = h }
}

// WithLogger sets the runner logger.
func WithLogger(l TestLogger) RunnerOption {
	return func(r *testRunner) { r.logger = l }
}

// NewTestRunner creates a new test runner
func NewTestRunner(reporter TestReporter, opts ...RunnerOption) TestRunner {
	r := &testRunner{
		reporter: reporter,
		logger:   NewSilentLogger(false, false),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.reporter == nil {
		r.reporter = NewQuietReporter(nil)
	}
	return r
}

// Run executes suites according to the configuration. Suites run one at a
// time unless config.Parallel is above one. With FailFast no suite is started
// after the first failing one; suites not started are reported as skipped.
func (r *testRunner) Run(ctx context.Context, cfg TestConfiguration, suites []LoadedSuite) (*TestRunResult, error) {
	run := &TestRunResult{
		StartTime:     time.Now(),
		TotalSuites:   len(suites),
		SuiteResults:  make([]TestSuiteResult, len(suites)),
		Configuration: cfg,
	}

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	r.reporter.ReportStart(cfg, suites)

	parallel := cfg.Parallel
	if parallel < 1 {
		parallel = 1
	}
	r.reporter.SetParallelMode(parallel > 1)

	var stopped atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(parallel)

	for i, s := range suites {
		if stopped.Load() || ctx.Err() != nil {
			run.SuiteResults[i] = skippedSuite(s)
			continue
		}
		g.Go(func() error {
			if stopped.Load() || ctx.Err() != nil {
				run.SuiteResults[i] = skippedSuite(s)
				return nil
			}
			if parallel > 1 {
				r.logger.Debug("🔄 Running suite %s in parallel\n", s.Name())
			}
			res := r.runSuite(s, cfg)
			run.SuiteResults[i] = res
			r.reporter.ReportSuiteResult(res)
			if cfg.FailFast && res.Result != ResultPassed {
				stopped.Store(true)
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, res := range run.SuiteResults {
		switch res.Result {
		case ResultPassed:
			run.PassedSuites++
		case ResultFailed:
			run.FailedSuites++
		case ResultSkipped:
			run.SkippedSuites++
		default:
			run.ErrorSuites++
		}
	}

	run.EndTime = time.Now()
	run.Duration = run.EndTime.Sub(run.StartTime)

	if r.history != nil {
		id, err := r.history.RecordRun(run)
		if err != nil {
			logging.Error("Runner", err, "Failed to record run in history")
		} else {
			run.ID = id
		}
	}

	r.reporter.ReportRunResult(*run)
	return run, ctx.Err()
}

func skippedSuite(s LoadedSuite) TestSuiteResult {
	return TestSuiteResult{Name: s.Name(), File: s.File, Result: ResultSkipped}
}

// runSuite drives one suite through open, execute and close with its own
// output buffer.
func (r *testRunner) runSuite(s LoadedSuite, cfg TestConfiguration) TestSuiteResult {
	ts := s.Suite
	res := TestSuiteResult{Name: ts.Name(), File: s.File, StartTime: time.Now()}
	r.reporter.ReportSuiteStart(ts.Name())

	var out syncBuffer
	rc := tobject.NewRunContext(
		tobject.WithOutput(&out),
		tobject.WithTransports(r.transports),
		tobject.WithEnvironment(cfg.Environment),
		tobject.WithObserver(tobject.ObserverFunc(func(e tobject.Event) {
			if e.Kind != tobject.EventFinished || !e.Object.Type().IsA(suite.TypeTestCase) {
				return
			}
			r.reporter.ReportCaseResult(ts.Name(), TestCaseResult{
				Name:   e.Object.Name(),
				Result: resultOf(e.Result),
				Value:  e.Result.Text(),
			})
		})),
	)

	var outcome result.Result
	if open := ts.Open(); open.IsFatal() {
		outcome = open
		res.Error = "suite could not be opened in state " + ts.State().String()
	} else {
		outcome = ts.Execute(rc, cfg.StopOnError || ts.StopOnError)
		ts.Close()
	}

	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	res.Output = out.String()
	res.Stats = ts.Stats()
	res.Result = resultOf(outcome)
	if res.Result == ResultError && res.Error == "" {
		res.Error = "suite ended FATAL"
	}

	for _, o := range ts.Outcomes() {
		cr := TestCaseResult{Name: o.Name, Duration: o.Duration, Result: ResultSkipped}
		if !o.Skipped {
			cr.Result = resultOf(o.Result)
			cr.Value = o.Result.Text()
		}
		res.CaseResults = append(res.CaseResults, cr)
	}

	logging.Info("Runner", "Suite %s: %s (%d/%d cases passed)", res.Name, res.Result, res.Stats.Passed, res.Stats.Total)
	return res
}

func resultOf(r result.Result) TestResult {
	switch {
	case r.IsFatal():
		return ResultError
	case r.Truthy():
		return ResultPassed
	default:
		return ResultFailed
	}
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of thread
// started commands.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
