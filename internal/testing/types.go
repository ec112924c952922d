package testing

import (
	"context"
	"time"

	"mec/internal/suite"
)

// TestResult is the outcome of a suite or case.
type TestResult string

const (
	// ResultPassed indicates the test passed successfully
	ResultPassed TestResult = "PASSED"
	// ResultFailed indicates the test failed
	ResultFailed TestResult = "FAILED"
	// ResultSkipped indicates the test was not run
	ResultSkipped TestResult = "SKIPPED"
	// ResultError indicates the test could not run or ended FATAL
	ResultError TestResult = "ERROR"
)

// TestLogger provides centralized logging for test execution
type TestLogger interface {
	// Debug logs debug-level messages (only shown when debug=true)
	Debug(format string, args ...interface{})
	// Info logs info-level messages (shown when verbose=true or debug=true)
	Info(format string, args ...interface{})
	// Error logs error-level messages (always shown)
	Error(format string, args ...interface{})
	// IsDebugEnabled returns whether debug logging is enabled
	IsDebugEnabled() bool
	// IsVerboseEnabled returns whether verbose logging is enabled
	IsVerboseEnabled() bool
}

// TestConfiguration defines the overall test execution configuration
type TestConfiguration struct {
	// Paths are the suite files and directories to run
	Paths []string `json:"paths"`
	// Suite filter: only suites whose name matches are run
	Suite string `json:"suite,omitempty"`
	// Parallel is the number of suites run at once
	Parallel int `json:"parallel"`
	// FailFast stops starting new suites after the first failing suite
	FailFast bool `json:"fail_fast"`
	// StopOnError stops each suite at its first failing case
	StopOnError bool `json:"stop_on_error"`
	// Timeout bounds the whole run; zero means no limit
	Timeout time.Duration `json:"timeout,omitempty"`
	// Verbose enables per-case output
	Verbose bool `json:"verbose"`
	// Debug enables debug logging
	Debug bool `json:"debug"`
	// ReportPath is the directory for the JSON report
	ReportPath string `json:"report_path,omitempty"`
	// Environment is merged into every suite environment
	Environment map[string]string `json:"environment,omitempty"`
}

// LoadedSuite is a suite decoded from a file.
type LoadedSuite struct {
	Suite *suite.TestSuite
	File  string
}

// Name returns the suite name.
func (l LoadedSuite) Name() string { return l.Suite.Name() }

// TestRunResult represents the overall result of a run.
type TestRunResult struct {
	// ID identifies the run in history
	ID string `json:"id,omitempty"`
	// StartTime when test execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when test execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of test execution
	Duration time.Duration `json:"duration"`
	// TotalSuites is the number of suites selected
	TotalSuites int `json:"total_suites"`
	// PassedSuites is the number of suites that passed
	PassedSuites int `json:"passed_suites"`
	// FailedSuites is the number of suites that failed
	FailedSuites int `json:"failed_suites"`
	// SkippedSuites is the number of suites not run because of fail-fast
	SkippedSuites int `json:"skipped_suites"`
	// ErrorSuites is the number of suites that could not run
	ErrorSuites int `json:"error_suites"`
	// SuiteResults contains individual suite results in input order
	SuiteResults []TestSuiteResult `json:"suite_results"`
	// Configuration used for this run
	Configuration TestConfiguration `json:"configuration"`
}

// Passed reports whether every selected suite passed.
func (r *TestRunResult) Passed() bool {
	return r.FailedSuites == 0 && r.ErrorSuites == 0
}

// TestSuiteResult represents the result of a single suite.
type TestSuiteResult struct {
	// Name of the suite
	Name string `json:"name"`
	// File the suite was loaded from
	File string `json:"file,omitempty"`
	// Result is the overall result of the suite
	Result TestResult `json:"result"`
	// StartTime when suite execution began
	StartTime time.Time `json:"start_time"`
	// EndTime when suite execution completed
	EndTime time.Time `json:"end_time"`
	// Duration of suite execution
	Duration time.Duration `json:"duration"`
	// Stats counts the case outcomes
	Stats suite.Stats `json:"stats"`
	// CaseResults contains individual case results
	CaseResults []TestCaseResult `json:"case_results"`
	// Output written by the suite's commands
	Output string `json:"output,omitempty"`
	// Error message if the suite failed or had an error
	Error string `json:"error,omitempty"`
}

// TestCaseResult represents the result of a single case.
type TestCaseResult struct {
	// Name of the case
	Name string `json:"name"`
	// Result of the case
	Result TestResult `json:"result"`
	// Value is the case result rendered as text
	Value string `json:"value,omitempty"`
	// Duration of case execution
	Duration time.Duration `json:"duration"`
}

// TestRunner interface defines the test execution engine
type TestRunner interface {
	// Run executes suites according to the configuration
	Run(ctx context.Context, config TestConfiguration, suites []LoadedSuite) (*TestRunResult, error)
}

// SuiteLoader loads and filters suites.
type SuiteLoader interface {
	// LoadSuites loads suites from files and directories
	LoadSuites(paths ...string) ([]LoadedSuite, error)
	// FilterSuites filters suites based on the configuration
	FilterSuites(suites []LoadedSuite, config TestConfiguration) []LoadedSuite
}

// TestReporter interface defines how test results are reported. Calls may
// come from several goroutines when suites run in parallel.
type TestReporter interface {
	// ReportStart is called when test execution begins
	ReportStart(config TestConfiguration, suites []LoadedSuite)
	// ReportSuiteStart is called when a suite begins
	ReportSuiteStart(name string)
	// ReportCaseResult is called when a case completes
	ReportCaseResult(suiteName string, caseResult TestCaseResult)
	// ReportSuiteResult is called when a suite completes
	ReportSuiteResult(suiteResult TestSuiteResult)
	// ReportRunResult is called when all suites complete
	ReportRunResult(runResult TestRunResult)
	// SetParallelMode enables or disables parallel output buffering
	SetParallelMode(parallel bool)
}

// HistoryRecorder persists finished runs.
type HistoryRecorder interface {
	// RecordRun stores a run and returns its ID
	RecordRun(run *TestRunResult) (string, error)
}
